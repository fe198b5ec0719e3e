package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/hyperjoin/internal/harness"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions
	Data    string
	Workers int
}

// CheckOutput is the JSON payload of the check command.
type CheckOutput struct {
	Pass   bool                  `json:"pass"`
	Rows   int                   `json:"rows"`
	Checks []harness.CheckResult `json:"checks"`
	Errors []string              `json:"errors,omitempty"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check <config-dir>",
		Short: "Cross-check every evaluator on the same input",
		Long: `Evaluate the query in <config-dir> over the relations in --data with the
generic join, the decomposition walker (when a decomposition is declared),
a nested-loop join and SQLite, and compare the results.

Exit codes:
  0 - Every evaluation agrees
  1 - Evaluations disagree
  2 - Command error (missing files, configuration errors)

Examples:
  hyperjoin check ./config --data ./data
  hyperjoin check ./config --data ./data --workers 4 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Data, "data", "", "directory of <relation>.csv files")
	cmd.Flags().IntVar(&opts.Workers, "workers", 1, "goroutines per evaluation")
	_ = cmd.MarkFlagRequired("data")

	return cmd
}

func runCheck(opts *CheckOptions, configDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	cfg, db, err := LoadInputs(configDir, opts.Data)
	if err != nil {
		return commandError(formatter, err)
	}

	name := filepath.Base(filepath.Clean(configDir))
	s := harness.FromDatabase(name, cfg.Query, db, cfg.Decomposition)
	s.Workers = opts.Workers
	formatter.VerboseLog("Cross-checking %s over %d relation(s)", name, len(db))

	result, err := harness.RunContext(cmd.Context(), s)
	if err != nil {
		return commandError(formatter, err)
	}

	if result.ErrorCode != "" {
		msg := "configuration rejected"
		if len(result.Errors) > 0 {
			msg = result.Errors[0]
		}
		_ = formatter.Error(result.ErrorCode, msg, nil)
		return NewExitError(ExitCommandError, result.ErrorCode)
	}

	if formatter.Format == "json" {
		if err := formatter.Success(CheckOutput{
			Pass:   result.Pass,
			Rows:   result.Rows.Len(),
			Checks: result.Checks,
			Errors: result.Errors,
		}); err != nil {
			return err
		}
	} else {
		w := formatter.Writer
		for _, c := range result.Checks {
			line := fmt.Sprintf("%-12s %d rows  %s", c.Check, c.Rows, shortFingerprint(c.Fingerprint))
			if c.RunID != "" {
				line += "  " + dimColor(c.RunID)
			}
			fmt.Fprintf(w, "%s %s\n", passMark(), line)
		}
		for _, e := range result.Errors {
			fmt.Fprintf(w, "%s %s\n", failMark(), e)
		}
		if result.Pass {
			fmt.Fprintf(w, "%s %d evaluations agree\n", passColor("PASS"), len(result.Checks))
		} else {
			fmt.Fprintf(w, "%s evaluations disagree\n", failColor("FAIL"))
		}
	}

	if !result.Pass {
		return NewExitError(ExitFailure, "evaluations disagree")
	}
	return nil
}
