// Package eval implements the condition evaluator.
//
// The evaluator is pure and synchronous: it reads the caller-supplied
// game state snapshot, never mutates it, and never panics across its
// public boundary. Malformed expressions (unknown operator, function, or
// context kind; bad arity; bad parameter shapes) are logged at warn and
// resolve to false so a single bad condition can never abort a batch.
//
// Randomized functions (probability, dice_roll) draw from the
// RandomSource injected through the evaluation context. Production
// callers use NewRandomSource(); tests inject a seeded or fixed source
// for determinism.
package eval
