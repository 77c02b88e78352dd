// Package compiler turns CUE rule packs into engine IR.
//
// A rule pack is a CUE struct with three optional top-level fields:
//
//	conditions:    named condition expressions
//	filters:       named query filter presets
//	relationships: relationship seed edges
//
// Compilation is strict where runtime evaluation is lenient: an
// unknown operator, function, or context kind is a positioned compile
// error here, while the evaluator only warns and yields false. Authors
// find their typos at compile time; live game state never crashes.
package compiler
