package join

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/hyperjoin/internal/index"
	"github.com/roach88/hyperjoin/internal/ir"
)

// ErrStop may be returned by an emit callback to end enumeration early
// without reporting an error.
var ErrStop = errors.New("join: stop enumeration")

// cancelCheckInterval is the number of descents between context checks.
const cancelCheckInterval = 1024

// Option configures enumeration.
type Option func(*options)

type options struct {
	workers int
	stats   *Stats
	logger  *slog.Logger
}

// WithWorkers sets how many goroutines Join may use. Values below 2 keep
// enumeration on the calling goroutine.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithStats accumulates counters into s.
func WithStats(s *Stats) Option {
	return func(o *options) {
		o.stats = s
	}
}

// WithLogger sets the logger for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

func buildOptions(opts []Option) options {
	o := options{workers: 1, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// frame is one level of the explicit binding stack.
type frame struct {
	res   *resolver
	cands index.ValueSet
	next  int
}

// enumerator walks the scope depth-first. cur starts as a copy of the
// constraints and is extended by one binding per level; leaving a level
// restores the slot to its constraint state.
type enumerator struct {
	scope  *Scope
	fixed  *Assignment
	cur    *Assignment
	frames []frame
	count  StatsSnapshot
	steps  int
}

func newEnumerator(s *Scope, constraints *Assignment) *enumerator {
	fixed := constraints
	if fixed == nil {
		fixed = s.layout.NewAssignment()
	}
	e := &enumerator{
		scope:  s,
		fixed:  fixed,
		cur:    fixed.Clone(),
		frames: make([]frame, len(s.vars)),
	}
	for i := range e.frames {
		e.frames[i].res = newResolver(s, &e.count)
	}
	return e
}

// restore returns slot s of the working assignment to its constraint state.
func (e *enumerator) restore(s int) {
	if v, ok := e.fixed.Get(s); ok {
		e.cur.Set(s, v)
	} else {
		e.cur.Unset(s)
	}
}

func (e *enumerator) row() ir.Row {
	row := make(ir.Row, len(e.scope.order))
	for i, s := range e.scope.order {
		row[i] = e.cur.vals[s]
	}
	return row
}

// run enumerates every assignment of the variables from depth start onward.
// Variables before start must already be bound in cur.
func (e *enumerator) run(ctx context.Context, start int, emit func(ir.Row) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n := len(e.scope.order)
	if start == n {
		e.count.Emitted++
		return emit(e.row())
	}

	e.frames[start].cands = e.frames[start].res.allowed(start, e.cur, e.fixed)
	e.frames[start].next = 0
	if len(e.frames[start].cands) == 0 {
		e.count.Pruned++
	}

	depth := start
	for depth >= start {
		f := &e.frames[depth]
		slot := e.scope.order[depth]
		if f.next >= len(f.cands) {
			e.restore(slot)
			depth--
			continue
		}
		e.cur.Set(slot, f.cands[f.next])
		f.next++

		if depth == n-1 {
			e.count.Emitted++
			if err := emit(e.row()); err != nil {
				e.unwind(start, depth)
				return err
			}
			continue
		}

		e.steps++
		if e.steps%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				e.unwind(start, depth)
				return err
			}
		}

		depth++
		g := &e.frames[depth]
		g.cands = g.res.allowed(depth, e.cur, e.fixed)
		g.next = 0
		if len(g.cands) == 0 {
			e.count.Pruned++
		}
	}
	return nil
}

// unwind restores every slot bound at levels start..depth.
func (e *enumerator) unwind(start, depth int) {
	for d := depth; d >= start; d-- {
		e.restore(e.scope.order[d])
	}
}

// Enumerate calls emit with every assignment of the scope variables that
// satisfies all edges and agrees with constraints. Rows are in binding
// order and each row is a fresh slice. Enumeration is depth-first and
// candidates are tried in ascending order, so no row repeats within a call.
//
// constraints may be nil and is never modified. If emit returns ErrStop the
// enumeration ends and Enumerate returns nil; any other error is returned
// as is. Context cancellation is checked between levels.
func (s *Scope) Enumerate(ctx context.Context, constraints *Assignment, emit func(ir.Row) error, opts ...Option) error {
	o := buildOptions(opts)
	e := newEnumerator(s, constraints)
	err := e.run(ctx, 0, emit)
	o.stats.add(e.count)
	if errors.Is(err, ErrStop) {
		return nil
	}
	return err
}

// Join collects every row Enumerate would produce.
//
// With WithWorkers(n > 1) the candidates of the first variable are split
// across up to n goroutines, each with its own working assignment, and the
// partitions are concatenated in candidate order.
func (s *Scope) Join(ctx context.Context, constraints *Assignment, opts ...Option) ([]ir.Row, error) {
	o := buildOptions(opts)
	if o.workers < 2 || len(s.vars) < 2 {
		var rows []ir.Row
		err := s.Enumerate(ctx, constraints, func(r ir.Row) error {
			rows = append(rows, r)
			return nil
		}, opts...)
		return rows, err
	}
	return s.parallelJoin(ctx, constraints, o)
}

func (s *Scope) parallelJoin(ctx context.Context, constraints *Assignment, o options) ([]ir.Row, error) {
	root := newEnumerator(s, constraints)
	first := root.frames[0].res.allowed(0, root.cur, root.fixed)
	cands := make([]int64, len(first))
	copy(cands, first)
	if len(cands) == 0 {
		root.count.Pruned++
	}
	o.stats.add(root.count)

	o.logger.Debug("parallel join", "first_var", s.vars[0], "candidates", len(cands), "workers", o.workers)

	parts := make([][]ir.Row, len(cands))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)
	for i, v := range cands {
		g.Go(func() error {
			e := newEnumerator(s, constraints)
			e.cur.Set(s.order[0], v)
			err := e.run(gctx, 1, func(r ir.Row) error {
				parts[i] = append(parts[i], r)
				return nil
			})
			o.stats.add(e.count)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var total int
	for _, p := range parts {
		total += len(p)
	}
	rows := make([]ir.Row, 0, total)
	for _, p := range parts {
		rows = append(rows, p...)
	}
	return rows, nil
}
