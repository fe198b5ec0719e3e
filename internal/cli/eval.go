package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/hyperjoin/internal/decomp"
	"github.com/roach88/hyperjoin/internal/engine"
	"github.com/roach88/hyperjoin/internal/ir"
	"github.com/roach88/hyperjoin/internal/join"
)

// EvalOptions holds flags for the eval command.
type EvalOptions struct {
	*RootOptions
	Data      string // relation CSV directory
	Mode      string // "auto" | "flat" | "tree"
	Order     string // comma-separated binding order for flat mode
	Workers   int
	CacheSize int
	Limit     int // rows to print in text mode, 0 for all
}

// EvalOutput is the JSON payload of the eval command.
type EvalOutput struct {
	RunID       string                `json:"run_id"`
	Mode        engine.Mode           `json:"mode"`
	Attributes  []ir.Attribute        `json:"attributes"`
	Rows        []ir.Row              `json:"rows"`
	Count       int                   `json:"count"`
	Fingerprint string                `json:"fingerprint"`
	DurationNS  int64                 `json:"duration_ns"`
	Join        join.StatsSnapshot    `json:"join"`
	Walk        *decomp.StatsSnapshot `json:"walk,omitempty"`
}

// NewEvalCommand creates the eval command.
func NewEvalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EvalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "eval <config-dir>",
		Short: "Evaluate a query over CSV relations",
		Long: `Evaluate the query in <config-dir> over the relation files in --data.

In flat mode the whole query is evaluated by one generic join. In tree mode
the decomposition is walked lazily. The default, auto, uses tree mode when
the configuration declares a decomposition.

Exit codes:
  0 - Evaluation succeeded (an empty result is a success)
  2 - Command error (missing files, configuration errors, cancellation)

Examples:
  hyperjoin eval ./config --data ./data
  hyperjoin eval ./config --data ./data --mode flat --order A3,A1,A2
  hyperjoin eval ./config --data ./data --workers 8 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Data, "data", "", "directory of <relation>.csv files")
	cmd.Flags().StringVar(&opts.Mode, "mode", "auto", "evaluation mode (auto|flat|tree)")
	cmd.Flags().StringVar(&opts.Order, "order", "", "flat-mode binding order, e.g. A2,A1,A3")
	cmd.Flags().IntVar(&opts.Workers, "workers", 1, "goroutines per evaluation")
	cmd.Flags().IntVar(&opts.CacheSize, "cache-size", decomp.DefaultCacheSize, "tree-mode subtree cache entries (0 disables)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "print at most this many rows in text mode")
	_ = cmd.MarkFlagRequired("data")

	return cmd
}

func runEval(opts *EvalOptions, configDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	cfg, db, err := LoadInputs(configDir, opts.Data)
	if err != nil {
		return commandError(formatter, err)
	}

	mode, err := resolveMode(opts.Mode, cfg.Decomposition != nil)
	if err != nil {
		return commandError(formatter, err)
	}
	formatter.VerboseLog("Loaded %d relation(s), evaluating in %s mode", len(db), mode)

	reg := prometheus.NewRegistry()
	eng, err := engine.New(db, cfg.Query,
		engine.WithWorkers(opts.Workers),
		engine.WithCacheSize(opts.CacheSize),
		engine.WithLogger(opts.Logger(formatter.GetErrWriter())),
		engine.WithMetrics(engine.NewMetrics(reg)))
	if err != nil {
		return commandError(formatter, err)
	}

	var res *engine.Result
	switch mode {
	case engine.ModeTree:
		res, err = eng.EvaluateTree(cmd.Context(), cfg.Decomposition)
	default:
		res, err = eng.EvaluateFlat(cmd.Context(), parseOrder(opts.Order))
	}
	if err != nil {
		return commandError(formatter, err)
	}
	logCounters(formatter, reg)

	if formatter.Format == "json" {
		return formatter.Success(EvalOutput{
			RunID:       res.RunID,
			Mode:        res.Mode,
			Attributes:  res.Rows.Attributes,
			Rows:        res.Rows.Rows,
			Count:       res.Rows.Len(),
			Fingerprint: res.Fingerprint,
			DurationNS:  res.Duration.Nanoseconds(),
			Join:        res.Join,
			Walk:        res.Walk,
		})
	}

	w := formatter.Writer
	if err := WriteRows(w, res.Rows.Attributes, res.Rows.Rows, opts.Limit); err != nil {
		return err
	}
	if opts.Limit > 0 && res.Rows.Len() > opts.Limit {
		fmt.Fprintf(w, "... %d more\n", res.Rows.Len()-opts.Limit)
	}
	fmt.Fprintf(w, "%s\n", dimColor(fmt.Sprintf("%d rows (%s, run %s, fingerprint %s)",
		res.Rows.Len(), res.Mode, res.RunID, shortFingerprint(res.Fingerprint))))
	return nil
}

// resolveMode maps the --mode flag to an engine mode.
func resolveMode(flag string, haveTree bool) (engine.Mode, error) {
	if flag == "auto" {
		if haveTree {
			return engine.ModeTree, nil
		}
		return engine.ModeFlat, nil
	}
	mode, ok := engine.ParseMode(flag)
	if !ok {
		return "", fmt.Errorf("invalid mode %q: must be auto, flat or tree", flag)
	}
	if mode == engine.ModeTree && !haveTree {
		return "", errors.New("tree mode needs a decomposition in the configuration")
	}
	return mode, nil
}

// parseOrder splits a comma-separated attribute list. An empty flag means
// the query's attribute order.
func parseOrder(flag string) []ir.Attribute {
	if strings.TrimSpace(flag) == "" {
		return nil
	}
	parts := strings.Split(flag, ",")
	order := make([]ir.Attribute, 0, len(parts))
	for _, p := range parts {
		order = append(order, ir.Attribute(strings.TrimSpace(p)))
	}
	return order
}

// commandError reports err and returns it as a command error.
func commandError(formatter *OutputFormatter, err error) error {
	code := configErrorCode(err)
	if engine.IsCancelled(err) {
		code = string(engine.ErrCodeCancelled)
	}
	_ = formatter.Error(code, errorMessage(err), nil)
	return WrapExitError(ExitCommandError, code, err)
}

// logCounters writes the non-zero counters of reg in verbose mode.
func logCounters(formatter *OutputFormatter, reg prometheus.Gatherer) {
	if !formatter.Verbose {
		return
	}
	families, err := reg.Gather()
	if err != nil {
		formatter.VerboseLog("metrics: %v", err)
		return
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			c := m.GetCounter()
			if c == nil || c.GetValue() == 0 {
				continue
			}
			labels := make([]string, 0, len(m.GetLabel()))
			for _, l := range m.GetLabel() {
				labels = append(labels, l.GetName()+"="+l.GetValue())
			}
			formatter.VerboseLog("%s{%s} %g", mf.GetName(), strings.Join(labels, ","), c.GetValue())
		}
	}
}
