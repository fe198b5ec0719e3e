package harness

import "github.com/roach88/hyperjoin/internal/ir"

// Check names one way of evaluating a scenario.
type Check string

const (
	CheckFlat       Check = "flat"
	CheckTree       Check = "tree"
	CheckNestedLoop Check = "nested_loop"
	CheckSQLite     Check = "sqlite"
)

// CheckResult summarises one evaluation of a scenario.
type CheckResult struct {
	Check       Check  `json:"check"`
	RunID       string `json:"run_id,omitempty"`
	Rows        int    `json:"rows"`
	Fingerprint string `json:"fingerprint"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	Pass bool `json:"pass"`

	Scenario string `json:"scenario"`

	// Rows is the flat join result. Nil when evaluation failed with a
	// configuration error.
	Rows *ir.ResultSet `json:"result,omitempty"`

	// ErrorCode is the configuration error evaluation stopped with, if any.
	ErrorCode string `json:"error_code,omitempty"`

	// Checks lists every evaluation that ran, in order.
	Checks []CheckResult `json:"checks"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult(scenario string) *Result {
	return &Result{
		Pass:     true,
		Scenario: scenario,
		Checks:   []CheckResult{},
		Errors:   []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddCheck records an evaluation.
func (r *Result) AddCheck(c Check, runID string, rs *ir.ResultSet) error {
	fp, err := rs.Fingerprint()
	if err != nil {
		return err
	}
	r.Checks = append(r.Checks, CheckResult{Check: c, RunID: runID, Rows: rs.Len(), Fingerprint: fp})
	return nil
}

// RunIDs returns the run IDs of the engine evaluations.
func (r *Result) RunIDs() []string {
	ids := []string{}
	for _, c := range r.Checks {
		if c.RunID != "" {
			ids = append(ids, c.RunID)
		}
	}
	return ids
}
