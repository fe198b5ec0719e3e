// Package ir provides the shared types for hyperjoin: relations, query
// schemas, decomposition specs, result sets, and configuration errors.
//
// All other internal packages import ir; ir imports nothing internal. This
// keeps ir the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Relations are binary. A schema with any other arity is a configuration
//     error (CodeArity), surfaced by the index builder and query validation.
//   - Values are int64. There are no floats and no nulls anywhere.
//   - Relations use set semantics: NewRelation collapses duplicate tuples.
//   - Everything here is immutable once constructed. Evaluation shares these
//     values by reference across goroutines without locking.
//   - Result sets are compared by content via canonical JSON and a
//     domain-separated SHA-256 fingerprint, never by enumeration order.
package ir
