package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/hyperjoin/internal/ir"
)

// ResultSnapshot captures the observable outcome of a scenario.
// All fields use canonical JSON serialization for deterministic comparison.
type ResultSnapshot struct {
	Scenario  string
	RunIDs    []string
	ErrorCode string
	Rows      *ir.ResultSet
}

// toCanonicalMap converts a ResultSnapshot to a map[string]any for canonical JSON serialization.
// This is required because ir.MarshalCanonical only handles IR types and primitives.
func (s *ResultSnapshot) toCanonicalMap() (map[string]any, error) {
	m := map[string]any{
		"scenario": s.Scenario,
		"run_ids":  s.RunIDs,
	}
	if s.ErrorCode != "" {
		m["error"] = s.ErrorCode
	}
	if s.Rows != nil {
		fp, err := s.Rows.Fingerprint()
		if err != nil {
			return nil, err
		}
		m["result"] = s.Rows
		m["fingerprint"] = fp
	}
	return m, nil
}

// RunWithGolden executes a scenario and compares its result against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the result doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}

// Snapshot returns the canonical JSON golden content for a result.
func Snapshot(scenarioName string, result *Result) ([]byte, error) {
	snapshot := ResultSnapshot{
		Scenario:  scenarioName,
		RunIDs:    result.RunIDs(),
		ErrorCode: result.ErrorCode,
		Rows:      result.Rows,
	}
	canonicalMap, err := snapshot.toCanonicalMap()
	if err != nil {
		return nil, err
	}
	return ir.MarshalCanonical(canonicalMap)
}
