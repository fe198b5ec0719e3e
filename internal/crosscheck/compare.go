package crosscheck

import (
	"context"
	"fmt"

	"github.com/roach88/hyperjoin/internal/ir"
)

// Report is the outcome of comparing an engine result with the SQL oracle.
type Report struct {
	Match bool `json:"match"`

	ExpectedFingerprint string `json:"expected_fingerprint"`
	ActualFingerprint   string `json:"actual_fingerprint"`

	ExpectedRows int `json:"expected_rows"`
	ActualRows   int `json:"actual_rows"`

	// Missing holds oracle rows absent from the engine result.
	Missing []ir.Row `json:"missing,omitempty"`

	// Extra holds engine rows the oracle does not produce.
	Extra []ir.Row `json:"extra,omitempty"`
}

// Compare diffs actual against expected. Both must use the same attribute
// order; actual is projected onto expected's order first when they differ.
func Compare(expected, actual *ir.ResultSet) (*Report, error) {
	if len(actual.Attributes) != len(expected.Attributes) {
		return nil, fmt.Errorf("compare: result has %d attributes, oracle has %d", len(actual.Attributes), len(expected.Attributes))
	}
	actual, err := actual.Project(expected.Attributes)
	if err != nil {
		return nil, fmt.Errorf("compare: %w", err)
	}

	ef, err := expected.Fingerprint()
	if err != nil {
		return nil, err
	}
	af, err := actual.Fingerprint()
	if err != nil {
		return nil, err
	}

	missing, extra := expected.Diff(actual)
	return &Report{
		Match:               ef == af,
		ExpectedFingerprint: ef,
		ActualFingerprint:   af,
		ExpectedRows:        expected.Len(),
		ActualRows:          actual.Len(),
		Missing:             missing,
		Extra:               extra,
	}, nil
}

// Check loads db into a fresh in-memory store, evaluates q there, and
// compares actual against it.
func Check(ctx context.Context, db ir.Database, q *ir.QuerySpec, actual *ir.ResultSet) (*Report, error) {
	s, err := Open(MemoryPath)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	if err := s.Load(ctx, db); err != nil {
		return nil, err
	}
	expected, err := s.Evaluate(ctx, q)
	if err != nil {
		return nil, err
	}
	return Compare(expected, actual)
}
