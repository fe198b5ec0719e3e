// Package harness provides conformance testing for join evaluation.
//
// A scenario is a small, self-contained join problem: a query, inline
// relation data, an optional decomposition and the expected outcome. Run
// evaluates it every way the module can and requires all of them to agree.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: two_way
//	description: "R1(A1,A2) joined with R2(A2,A3)"
//	query:
//	  attributes: [A1, A2, A3]
//	  relations:
//	    - {name: R1, attributes: [A1, A2]}
//	    - {name: R2, attributes: [A2, A3]}
//	data:
//	  R1: [[1, 2], [2, 3]]
//	  R2: [[2, 10], [3, 20]]
//	decomposition:           # optional
//	  root: B1
//	  bags:
//	    - {id: B1, chi: [A1, A2], lambda: [R1], children: [B2]}
//	    - {id: B2, chi: [A2, A3], lambda: [R2]}
//	order: [A2, A1, A3]      # optional flat binding order
//	expect:
//	  rows: [[1, 2, 10], [2, 3, 20]]
//
// expect may instead name a configuration error code, for example
// "error: UNKNOWN_ATTRIBUTE". Without expect the evaluations only have to
// agree with each other.
//
// # Checks
//
//   - flat generic join, with the scenario's binding order
//   - decomposition walk, when a decomposition is given
//   - nested-loop join (baseline.NestedLoopJoin)
//   - SQLite (crosscheck.Check)
//   - expected rows or expected error code
//
// # Deterministic Testing
//
// Run IDs come from testutil.SequenceRunIDGenerator prefixed with the
// scenario name, so golden snapshots are identical across runs.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/two_way.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
