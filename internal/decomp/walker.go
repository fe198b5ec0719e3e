package decomp

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/hyperjoin/internal/ir"
	"github.com/roach88/hyperjoin/internal/join"
)

// DefaultCacheSize is the default number of memoized subtree results.
const DefaultCacheSize = 4096

// Option configures a Walker.
type Option func(*Walker)

// WithWorkers sets how many root rows are expanded concurrently.
func WithWorkers(n int) Option {
	return func(w *Walker) {
		w.workers = n
	}
}

// WithCacheSize bounds the subtree memo. Zero disables memoization.
func WithCacheSize(n int) Option {
	return func(w *Walker) {
		w.cacheSize = n
	}
}

// WithStats records walker counters into s.
func WithStats(s *Stats) Option {
	return func(w *Walker) {
		if s != nil {
			w.stats = s
		}
	}
}

// WithJoinStats records the counters of every bag-local join into s.
func WithJoinStats(s *join.Stats) Option {
	return func(w *Walker) {
		w.joinStats = s
	}
}

// WithLogger sets the logger for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(w *Walker) {
		w.logger = l
	}
}

// Walker evaluates a compiled Tree.
type Walker struct {
	tree      *Tree
	workers   int
	cacheSize int
	cache     *lru.Cache[string, []ir.Row]
	stats     *Stats
	joinStats *join.Stats
	logger    *slog.Logger
}

// NewWalker creates a walker over t.
func NewWalker(t *Tree, opts ...Option) (*Walker, error) {
	w := &Walker{
		tree:      t,
		workers:   1,
		cacheSize: DefaultCacheSize,
		stats:     &Stats{},
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.cacheSize > 0 {
		c, err := lru.New[string, []ir.Row](w.cacheSize)
		if err != nil {
			return nil, fmt.Errorf("create subtree cache: %w", err)
		}
		w.cache = c
	}
	return w, nil
}

// Stats returns the walker's counters.
func (w *Walker) Stats() *Stats {
	return w.stats
}

// Evaluate joins the root bag once, expands every root row through the
// child subtrees and returns the de-duplicated result in query attribute
// order.
//
// The subtree memo persists across calls, so evaluating the same walker
// twice reuses earlier child results.
func (w *Walker) Evaluate(ctx context.Context) (*ir.ResultSet, error) {
	root := w.tree.root
	rootRows, err := root.scope.Join(ctx, nil, join.WithStats(w.joinStats))
	if err != nil {
		return nil, fmt.Errorf("evaluate root bag %s: %w", root.id, err)
	}
	w.stats.bagEvaluations.Add(1)
	w.stats.rootRows.Add(int64(len(rootRows)))
	w.logger.Debug("root bag evaluated", "bag", root.id, "rows", len(rootRows))

	var rows []ir.Row
	if w.workers < 2 || len(rootRows) < 2 {
		for _, r := range rootRows {
			out, err := w.fromRoot(ctx, r)
			if err != nil {
				return nil, fmt.Errorf("walk decomposition: %w", err)
			}
			rows = append(rows, out...)
		}
	} else {
		parts := make([][]ir.Row, len(rootRows))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(w.workers)
		for i, r := range rootRows {
			g.Go(func() error {
				out, err := w.fromRoot(gctx, r)
				parts[i] = out
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return nil, fmt.Errorf("walk decomposition: %w", err)
		}
		for _, p := range parts {
			rows = append(rows, p...)
		}
	}

	rs := ir.NewResultSet(w.tree.query.Attributes, rows)
	w.stats.emitted.Add(int64(rs.Len()))
	w.logger.Debug("decomposition evaluated", "rows", rs.Len())
	return rs, nil
}

func (w *Walker) fromRoot(ctx context.Context, row ir.Row) ([]ir.Row, error) {
	root := w.tree.root
	a := w.tree.layout.NewAssignment()
	for i, s := range root.chiSlots {
		a.Set(s, row[i])
	}
	return w.extend(ctx, root, a)
}

// extend combines the extensions of b's children under a, which binds b's
// ancestors and χ. Rows are over b.newSlots.
func (w *Walker) extend(ctx context.Context, b *Bag, a *join.Assignment) ([]ir.Row, error) {
	childExts := make([][]ir.Row, len(b.children))
	for i, c := range b.children {
		exts, err := w.subtree(ctx, c, a)
		if err != nil {
			return nil, err
		}
		if len(exts) == 0 {
			return nil, nil
		}
		childExts[i] = exts
	}

	var out []ir.Row
	cur := a.Clone()
	var combine func(i int)
	combine = func(i int) {
		if i == len(b.children) {
			row := make(ir.Row, len(b.newSlots))
			for j, s := range b.newSlots {
				row[j], _ = cur.Get(s)
			}
			out = append(out, row)
			return
		}
		c := b.children[i]
		for _, e := range childExts[i] {
			for j, s := range c.newSlots {
				cur.Set(s, e[j])
			}
			combine(i + 1)
		}
	}
	combine(0)
	return out, nil
}

// subtree returns the distinct extensions of c's subtree under the parent
// assignment a. The result is shared through the cache and must not be
// modified.
func (w *Walker) subtree(ctx context.Context, c *Bag, a *join.Assignment) ([]ir.Row, error) {
	var key string
	if w.cache != nil {
		key = cacheKey(c, a)
		if exts, ok := w.cache.Get(key); ok {
			w.stats.cacheHits.Add(1)
			return exts, nil
		}
		w.stats.cacheMisses.Add(1)
	}

	rows, err := c.scope.Join(ctx, a, join.WithStats(w.joinStats))
	if err != nil {
		return nil, fmt.Errorf("bag %s: %w", c.id, err)
	}
	w.stats.bagEvaluations.Add(1)

	var exts []ir.Row
	for _, row := range rows {
		if !consistent(c, a, row) {
			w.stats.inconsistent.Add(1)
			continue
		}
		n := a.Clone()
		for i, s := range c.chiSlots {
			n.Set(s, row[i])
		}
		sub, err := w.extend(ctx, c, n)
		if err != nil {
			return nil, err
		}
		exts = append(exts, sub...)
	}
	exts = ir.NewResultSet(nil, exts).Rows

	if w.cache != nil {
		w.cache.Add(key, exts)
	}
	return exts, nil
}

// consistent reports whether row agrees with a on every χ variable a binds.
func consistent(c *Bag, a *join.Assignment, row ir.Row) bool {
	for i, s := range c.chiSlots {
		if v, ok := a.Get(s); ok && v != row[i] {
			return false
		}
	}
	return true
}

func cacheKey(c *Bag, a *join.Assignment) string {
	buf := make([]byte, 0, len(c.id)+8*len(c.keySlots))
	buf = append(buf, c.id...)
	for _, s := range c.keySlots {
		v, _ := a.Get(s)
		buf = append(buf, ':')
		buf = strconv.AppendInt(buf, v, 10)
	}
	return string(buf)
}
