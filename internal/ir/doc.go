// Package ir provides the canonical data model for the LORE rule engine.
//
// This package contains type definitions and canonical serialization only.
// All other internal packages import ir; ir imports nothing internal. This
// keeps the data model the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Condition is a sealed sum type - only the four variants implement it
//   - Relationship strength is always clamped to [0,1] at construction
//   - All JSON tags use snake_case
//   - Fingerprints use RFC 8785-style canonical JSON with domain separation
package ir
