package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/hyperjoin/internal/baseline"
	"github.com/roach88/hyperjoin/internal/crosscheck"
	"github.com/roach88/hyperjoin/internal/engine"
	"github.com/roach88/hyperjoin/internal/ir"
	"github.com/roach88/hyperjoin/internal/testutil"
)

// maxReportedRows caps how many differing rows a single error message
// lists.
const maxReportedRows = 5

// Harness is the test execution engine.
// It runs one scenario with deterministic run IDs.
type Harness struct {
	scenario *Scenario
	db       ir.Database
	runIDs   *testutil.SequenceRunIDGenerator
	logger   *slog.Logger
	result   *Result
}

// Run executes a test scenario and returns the result.
//
// Execution flow:
// 1. Build the database from inline data
// 2. Evaluate the flat join, then the decomposition if present
// 3. Evaluate the nested-loop and SQLite oracles
// 4. Compare every evaluation with the flat result and the expectation
//
// Mismatches and unexpected configuration errors are reported in the
// result. The returned error is reserved for failures of the harness itself.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	db, err := scenario.Database()
	if err != nil {
		return nil, fmt.Errorf("failed to build database: %w", err)
	}

	h := &Harness{
		scenario: scenario,
		db:       db,
		runIDs:   testutil.NewSequenceRunIDGenerator(scenario.Name),
		logger:   slog.New(slog.DiscardHandler), // Suppress logs in tests
		result:   NewResult(scenario.Name),
	}
	if err := h.run(ctx); err != nil {
		return nil, err
	}
	return h.result, nil
}

func (h *Harness) run(ctx context.Context) error {
	s := h.scenario
	eng, err := engine.New(h.db, &s.Query,
		engine.WithRunIDGenerator(h.runIDs),
		engine.WithLogger(h.logger),
		engine.WithWorkers(s.Workers))
	if err != nil {
		return h.configError(err)
	}

	flat, err := eng.EvaluateFlat(ctx, s.Order)
	if err != nil {
		return h.configError(err)
	}
	if err := h.result.AddCheck(CheckFlat, flat.RunID, flat.Rows); err != nil {
		return err
	}

	if s.Decomposition != nil {
		tree, err := eng.EvaluateTree(ctx, s.Decomposition)
		if err != nil {
			return h.configError(err)
		}
		if err := h.result.AddCheck(CheckTree, tree.RunID, tree.Rows); err != nil {
			return err
		}
		h.compare(CheckTree, flat.Rows, tree.Rows)
	}

	if s.Expect != nil && s.Expect.Error != "" {
		h.result.AddError(fmt.Sprintf("expected error %s, evaluation succeeded", s.Expect.Error))
	}

	nested, err := baseline.NestedLoopJoin(ctx, h.db, &s.Query)
	if err != nil {
		return fmt.Errorf("nested-loop join: %w", err)
	}
	if err := h.result.AddCheck(CheckNestedLoop, "", nested); err != nil {
		return err
	}
	h.compare(CheckNestedLoop, nested, flat.Rows)

	report, err := crosscheck.Check(ctx, h.db, &s.Query, flat.Rows)
	if err != nil {
		return fmt.Errorf("sqlite cross-check: %w", err)
	}
	h.result.Checks = append(h.result.Checks, CheckResult{
		Check:       CheckSQLite,
		Rows:        report.ExpectedRows,
		Fingerprint: report.ExpectedFingerprint,
	})
	if !report.Match {
		h.mismatch(CheckSQLite, report.Missing, report.Extra)
	}

	if s.Expect != nil && s.Expect.Error == "" {
		rows := make([]ir.Row, len(s.Expect.Rows))
		for i, r := range s.Expect.Rows {
			rows[i] = ir.Row(r)
		}
		h.compare("expect", ir.NewResultSet(s.Query.Attributes, rows), flat.Rows)
	}

	h.result.Rows = flat.Rows
	return nil
}

// compare records a mismatch between want and the flat result got.
func (h *Harness) compare(c Check, want, got *ir.ResultSet) {
	if want.Equal(got) {
		return
	}
	missing, extra := want.Diff(got)
	h.mismatch(c, missing, extra)
}

func (h *Harness) mismatch(c Check, missing, extra []ir.Row) {
	h.result.AddError(fmt.Sprintf("%s: %d missing rows %v, %d extra rows %v",
		c, len(missing), truncate(missing), len(extra), truncate(extra)))
}

// configError turns an expected configuration error into a pass and an
// unexpected one into a failure. Any other error aborts the run.
func (h *Harness) configError(err error) error {
	var ce *ir.ConfigError
	if !errors.As(err, &ce) {
		return err
	}
	h.result.ErrorCode = string(ce.Code)

	want := ""
	if h.scenario.Expect != nil {
		want = h.scenario.Expect.Error
	}
	switch {
	case want == "":
		h.result.AddError(fmt.Sprintf("unexpected configuration error: %v", err))
	case want != string(ce.Code):
		h.result.AddError(fmt.Sprintf("expected error %s, got %s: %v", want, ce.Code, err))
	}
	return nil
}

func truncate(rows []ir.Row) []ir.Row {
	if len(rows) > maxReportedRows {
		return rows[:maxReportedRows]
	}
	return rows
}
