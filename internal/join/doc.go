// Package join implements the worst-case-optimal generic join over binary
// relations.
//
// Instead of joining relations pairwise, the join binds query variables one
// at a time. For each variable it asks every relation that mentions the
// variable for the values it still allows given the variables bound so far,
// and intersects those candidate sets smallest-first. Intermediate results
// therefore never exceed what the final output could be in the worst case.
//
// # Structure
//
//   - Layout maps attributes to dense slots so that partial assignments are
//     fixed-size arrays rather than maps.
//   - Scope is a compiled variable order plus the relation edges in scope.
//     The flat join uses one Scope over every relation; a decomposition bag
//     uses one Scope over its χ and λ.
//   - AllowedValues is the candidate resolver for one variable.
//   - Enumerate is the backtracking enumerator. It runs on an explicit frame
//     stack, so deep variable orders do not grow the goroutine stack, and it
//     restores every binding on every exit path.
//
// # Concurrency
//
// A Scope and the index it reads are immutable and may be shared across
// goroutines. Each enumeration owns its own working assignment. With
// WithWorkers, Join partitions the candidates of the first variable across
// an errgroup and concatenates the partitions in candidate order, so output
// order does not depend on scheduling.
package join
