package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/hyperjoin/internal/compiler"
	"github.com/roach88/hyperjoin/internal/engine"
	"github.com/roach88/hyperjoin/internal/ir"
)

// ValidationError is one problem found in a configuration.
type ValidationError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Line      int    `json:"line,omitempty"`
	Relation  string `json:"relation,omitempty"`
	Attribute string `json:"attribute,omitempty"`
	Bag       string `json:"bag,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid      bool              `json:"valid"`
	Attributes int               `json:"attributes,omitempty"`
	Relations  int               `json:"relations,omitempty"`
	Bags       int               `json:"bags,omitempty"`
	Complete   []string          `json:"complete_bags,omitempty"` // bags whose root path binds every attribute
	Errors     []ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <config-dir>",
		Short: "Validate a query and decomposition without data",
		Long: `Validate the CUE query and decomposition in a directory.

Checks the configuration shape, the query schema, and, when present, the
decomposition tree: links, cycles, coverage and connectedness. No relation
data is read.

Exit codes:
  0 - Configuration valid
  1 - Configuration invalid
  2 - Command error (directory missing, CUE does not load, etc.)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, configDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	loadResult, err := LoadConfig(configDir)
	if err != nil {
		if isShapeError(err) {
			var le *LoadError
			errors.As(err, &le)
			return outputValidationErrors(formatter, []ValidationError{{
				Code:    le.Code,
				Message: le.Message,
				Line:    getLineFromCuePos(le),
			}})
		}
		return outputValidateError(formatter, configErrorCode(err), errorMessage(err), nil)
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, configDir)

	result, err := validateConfig(loadResult.Config, opts.Logger(formatter.GetErrWriter()))
	if err != nil {
		var ce *ir.ConfigError
		if errors.As(err, &ce) {
			return outputValidationErrors(formatter, []ValidationError{fromConfigError(ce)})
		}
		return outputValidateError(formatter, ErrCodeGeneric, err.Error(), nil)
	}

	return outputValidateSuccess(formatter, result)
}

// validateConfig checks the query and compiles the decomposition against an
// empty database with the query's schema.
func validateConfig(cfg *compiler.Config, logger *slog.Logger) (ValidationResult, error) {
	q := cfg.Query
	result := ValidationResult{
		Attributes: len(q.Attributes),
		Relations:  len(q.Relations),
	}
	if err := q.Validate(); err != nil {
		return result, err
	}

	db := make(ir.Database, len(q.Relations))
	for _, rs := range q.Relations {
		db[rs.Name] = ir.NewRelation(rs.Name, rs.Attributes)
	}
	eng, err := engine.New(db, q, engine.WithLogger(logger))
	if err != nil {
		return result, err
	}

	if cfg.Decomposition != nil {
		tree, err := eng.CompileTree(cfg.Decomposition)
		if err != nil {
			return result, err
		}
		result.Bags = len(tree.Bags())
		for _, b := range tree.Bags() {
			if b.PathCovers() {
				result.Complete = append(result.Complete, b.ID())
			}
			logger.Debug("bag compiled", "bag", b.ID(), "chi", b.Chi(), "depth", b.Depth(), "path_covers", b.PathCovers())
		}
	}
	result.Valid = true
	return result, nil
}

func fromConfigError(ce *ir.ConfigError) ValidationError {
	return ValidationError{
		Code:      string(ce.Code),
		Message:   ce.Message,
		Relation:  ce.Relation,
		Attribute: string(ce.Attribute),
		Bag:       ce.Bag,
	}
}

// getLineFromCuePos extracts the line number of a load error.
func getLineFromCuePos(le *LoadError) int {
	if le != nil && le.Pos.IsValid() {
		return le.Pos.Line()
	}
	return 0
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "%s Configuration valid: %d attributes, %d relations", passMark(), result.Attributes, result.Relations)
	if result.Bags > 0 {
		fmt.Fprintf(formatter.Writer, ", %d bags", result.Bags)
	}
	fmt.Fprintln(formatter.Writer)
	if len(result.Complete) > 0 {
		fmt.Fprintf(formatter.Writer, "  complete at: %s\n", strings.Join(result.Complete, ", "))
	}
	return nil
}

// outputValidateError outputs a single command-level error.
func outputValidateError(formatter *OutputFormatter, code, message string, details interface{}) error {
	_ = formatter.Error(code, message, details)
	// Load errors are command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs validation errors.
func outputValidationErrors(formatter *OutputFormatter, errs []ValidationError) error {
	if formatter.Format == "json" {
		result := ValidationResult{
			Valid:  false,
			Errors: errs,
		}

		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	// Text format
	fmt.Fprintf(formatter.Writer, "%s Validation failed\n\n", failMark())

	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", err.Code, err.Message)
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}

// ValidateConfigDir validates the configuration in a directory.
// This is a helper function for external callers.
func ValidateConfigDir(configDir string) (ValidationResult, error) {
	loadResult, err := LoadConfig(configDir)
	if err != nil {
		return ValidationResult{}, err
	}
	return validateConfig(loadResult.Config, slog.New(slog.NewTextHandler(io.Discard, nil)))
}
