package join

import (
	"context"
	"fmt"
	"slices"

	"github.com/roach88/hyperjoin/internal/index"
	"github.com/roach88/hyperjoin/internal/ir"
)

// FlatScope compiles a scope over every relation of q. order is the binding
// order and must be a permutation of q.Attributes; a nil order binds in
// attribute order.
func FlatScope(idx *index.Index, q *ir.QuerySpec, order []ir.Attribute) (*Scope, error) {
	if order == nil {
		order = q.Attributes
	}
	if len(order) != len(q.Attributes) {
		return nil, ir.NewConfigError(ir.CodeIncompleteCover,
			"variable order has %d attributes, query has %d", len(order), len(q.Attributes))
	}
	for _, a := range order {
		if !slices.Contains(q.Attributes, a) {
			return nil, ir.NewConfigError(ir.CodeUnknownAttribute, "order names unknown attribute %s", a).WithAttribute(a)
		}
	}

	layout, err := NewLayout(q.Attributes)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(q.Relations))
	for i, r := range q.Relations {
		names[i] = r.Name
	}
	edges, err := EdgesFor(q, names, order)
	if err != nil {
		return nil, err
	}
	return NewScope(idx, layout, order, edges)
}

// GenericJoin evaluates the natural join of every relation in q. The result
// is de-duplicated and its rows follow q.Attributes regardless of the
// binding order.
func GenericJoin(ctx context.Context, idx *index.Index, q *ir.QuerySpec, order []ir.Attribute, opts ...Option) (*ir.ResultSet, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	s, err := FlatScope(idx, q, order)
	if err != nil {
		return nil, err
	}

	o := buildOptions(opts)
	o.logger.Debug("generic join", "order", s.vars, "relations", len(s.rels), "workers", o.workers)

	rows, err := s.Join(ctx, nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("generic join: %w", err)
	}
	return NewResult(s, q.Attributes, rows)
}

// NewResult reorders rows produced by s from binding order into attrs and
// builds a result set. Every attribute of attrs must be a scope variable.
func NewResult(s *Scope, attrs []ir.Attribute, rows []ir.Row) (*ir.ResultSet, error) {
	pos := make([]int, len(attrs))
	identity := len(attrs) == len(s.vars)
	for i, a := range attrs {
		p := slices.Index(s.vars, a)
		if p < 0 {
			return nil, ir.NewConfigError(ir.CodeUnknownAttribute, "attribute %s is not bound by the join", a).WithAttribute(a)
		}
		pos[i] = p
		identity = identity && p == i
	}
	if !identity {
		for i, r := range rows {
			out := make(ir.Row, len(pos))
			for j, p := range pos {
				out[j] = r[p]
			}
			rows[i] = out
		}
	}
	return ir.NewResultSet(attrs, rows), nil
}
