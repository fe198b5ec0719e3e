package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/roach88/hyperjoin/internal/decomp"
	"github.com/roach88/hyperjoin/internal/index"
	"github.com/roach88/hyperjoin/internal/ir"
	"github.com/roach88/hyperjoin/internal/join"
)

// Mode selects the evaluation strategy.
type Mode string

const (
	// ModeFlat runs the generic join over every relation at once.
	ModeFlat Mode = "flat"

	// ModeTree walks a hypertree decomposition.
	ModeTree Mode = "tree"
)

// ParseMode converts a mode name.
func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case ModeFlat, ModeTree:
		return Mode(s), true
	}
	return "", false
}

// Engine evaluates one query over one loaded database.
//
// The index is built once in New; every evaluation reads it without
// locking, so an Engine may serve concurrent evaluations.
type Engine struct {
	db        ir.Database
	query     *ir.QuerySpec
	index     *index.Index
	clock     *Clock
	runIDs    RunIDGenerator
	workers   int
	cacheSize int
	logger    *slog.Logger
	metrics   *Metrics
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithWorkers sets the goroutine budget of each evaluation. Values below 2
// evaluate on the calling goroutine.
func WithWorkers(n int) EngineOption {
	return func(e *Engine) {
		e.workers = n
	}
}

// WithCacheSize bounds the decomposition walker's subtree memo.
//
// Default: decomp.DefaultCacheSize. Zero disables memoization.
func WithCacheSize(n int) EngineOption {
	return func(e *Engine) {
		e.cacheSize = n
	}
}

// WithRunIDGenerator replaces the UUIDv7 run IDs, typically with a
// FixedGenerator in tests.
func WithRunIDGenerator(g RunIDGenerator) EngineOption {
	return func(e *Engine) {
		e.runIDs = g
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithMetrics reports every evaluation to m.
func WithMetrics(m *Metrics) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

// New validates q against db and builds the index. A nil q is inferred
// from the database with ir.InferQuery.
func New(db ir.Database, q *ir.QuerySpec, opts ...EngineOption) (*Engine, error) {
	if q == nil {
		q = ir.InferQuery(db)
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	for _, rs := range q.Relations {
		rel, ok := db[rs.Name]
		if !ok {
			return nil, ir.NewConfigError(ir.CodeUnknownRelation, "relation %s is not loaded", rs.Name).WithRelation(rs.Name)
		}
		for _, a := range rs.Attributes {
			if rel.Position(a) < 0 {
				return nil, ir.NewConfigError(ir.CodeUnknownAttribute, "loaded relation %s has no attribute %s", rs.Name, a).
					WithRelation(rs.Name).WithAttribute(a)
			}
		}
	}

	idx, err := index.Build(db)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		db:        db,
		query:     q,
		index:     idx,
		clock:     NewClock(),
		runIDs:    UUIDv7Generator{},
		workers:   1,
		cacheSize: decomp.DefaultCacheSize,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger.Debug("index built", "relations", len(idx.Relations()), "tuples", idx.Tuples())
	return e, nil
}

// Query returns the evaluated query.
func (e *Engine) Query() *ir.QuerySpec { return e.query }

// Database returns the loaded relations.
func (e *Engine) Database() ir.Database { return e.db }

// Index returns the shared index.
func (e *Engine) Index() *index.Index { return e.index }

// Result is the outcome of one evaluation.
type Result struct {
	RunID       string                `json:"run_id"`
	Seq         int64                 `json:"seq"`
	Mode        Mode                  `json:"mode"`
	Rows        *ir.ResultSet         `json:"result"`
	Fingerprint string                `json:"fingerprint"`
	Duration    time.Duration         `json:"duration_ns"`
	Join        join.StatsSnapshot    `json:"join"`
	Walk        *decomp.StatsSnapshot `json:"walk,omitempty"`
}

// EvaluateFlat runs the generic join with the given binding order, or the
// query attribute order when order is nil.
func (e *Engine) EvaluateFlat(ctx context.Context, order []ir.Attribute) (*Result, error) {
	run := e.begin(ModeFlat)
	var js join.Stats
	rs, err := join.GenericJoin(ctx, e.index, e.query, order,
		join.WithWorkers(e.workers), join.WithStats(&js), join.WithLogger(run.logger))
	run.res.Join = js.Snapshot()
	e.metrics.observeJoin(ModeFlat, run.res.Join)
	return e.finish(run, rs, err)
}

// CompileTree validates a decomposition against the engine's query and
// index.
func (e *Engine) CompileTree(spec *ir.DecompositionSpec) (*decomp.Tree, error) {
	return decomp.Compile(spec, e.query, e.index)
}

// EvaluateTree compiles spec and walks it.
func (e *Engine) EvaluateTree(ctx context.Context, spec *ir.DecompositionSpec) (*Result, error) {
	run := e.begin(ModeTree)
	tree, err := e.CompileTree(spec)
	if err != nil {
		return e.finish(run, nil, err)
	}

	var js join.Stats
	var ws decomp.Stats
	w, err := decomp.NewWalker(tree,
		decomp.WithWorkers(e.workers),
		decomp.WithCacheSize(e.cacheSize),
		decomp.WithStats(&ws),
		decomp.WithJoinStats(&js),
		decomp.WithLogger(run.logger))
	if err != nil {
		return e.finish(run, nil, err)
	}
	rs, err := w.Evaluate(ctx)

	walk := ws.Snapshot()
	run.res.Walk = &walk
	run.res.Join = js.Snapshot()
	e.metrics.observeJoin(ModeTree, run.res.Join)
	e.metrics.observeWalk(walk)
	return e.finish(run, rs, err)
}

type run struct {
	res    *Result
	start  time.Time
	logger *slog.Logger
}

func (e *Engine) begin(mode Mode) *run {
	r := &run{
		res: &Result{
			RunID: e.runIDs.Generate(),
			Seq:   e.clock.Next(),
			Mode:  mode,
		},
		start: time.Now(),
	}
	r.logger = e.logger.With("run_id", r.res.RunID, "mode", mode)
	r.logger.Debug("evaluation starting", "seq", r.res.Seq, "workers", e.workers)
	return r
}

func (e *Engine) finish(r *run, rs *ir.ResultSet, err error) (*Result, error) {
	r.res.Duration = time.Since(r.start)
	if err != nil {
		re := newRunError(r.res.RunID, r.res.Mode, err)
		result := "error"
		if re.Code == ErrCodeCancelled {
			result = "cancelled"
		}
		e.metrics.observeRun(r.res.Mode, result, r.res.Duration, 0)
		r.logger.Warn("evaluation failed", "code", re.Code, "error", err)
		return nil, re
	}

	fp, err := rs.Fingerprint()
	if err != nil {
		re := newRunError(r.res.RunID, r.res.Mode, err)
		e.metrics.observeRun(r.res.Mode, "error", r.res.Duration, 0)
		return nil, re
	}
	r.res.Rows = rs
	r.res.Fingerprint = fp
	e.metrics.observeRun(r.res.Mode, "ok", r.res.Duration, rs.Len())
	r.logger.Info("evaluation complete",
		"rows", rs.Len(),
		"duration", r.res.Duration,
		"fingerprint", fp)
	return r.res, nil
}
