// Package engine is the evaluation facade used by the CLI and the
// conformance harness.
//
// An Engine owns one loaded database, one query and the index built over
// them. It exposes the two evaluation modes:
//
//   - EvaluateFlat runs the worst-case-optimal generic join over every
//     relation with a chosen variable order.
//   - EvaluateTree compiles a hypertree decomposition and walks it lazily.
//
// Both modes return the same de-duplicated result set for any valid
// decomposition, so the CLI can cross-check one against the other.
//
// RUNS:
//
// Every evaluation is a run. A run gets an ID from a RunIDGenerator
// (UUIDv7 in production, FixedGenerator in tests) and a sequence number
// from the engine's Clock. Both appear on every log line of the run and in
// the Result, next to the result fingerprint and join counters.
//
// ERRORS:
//
// Configuration problems are ir.ConfigErrors. Failed runs are wrapped in a
// RunError carrying the run ID and a coarse code (CONFIG, CANCELLED,
// INTERNAL); the cause stays reachable through errors.Unwrap. An empty
// result is never an error.
//
// METRICS:
//
// WithMetrics reports run counts, durations, result sizes and the join and
// walker counters to Prometheus collectors registered on a caller-supplied
// registerer.
package engine
