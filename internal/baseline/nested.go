package baseline

import (
	"context"

	"github.com/roach88/hyperjoin/internal/ir"
)

// cancelCheckInterval is the number of tuple probes between context checks.
const cancelCheckInterval = 4096

// NestedLoopJoin evaluates the natural join of every relation in q by
// extending partial assignments one relation at a time. It is exponential
// in the worst case and only meant for small inputs.
//
// Each database relation must carry the same attribute pair as its query
// schema, in either order.
func NestedLoopJoin(ctx context.Context, db ir.Database, q *ir.QuerySpec) (*ir.ResultSet, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	slot := make(map[ir.Attribute]int, len(q.Attributes))
	for i, a := range q.Attributes {
		slot[a] = i
	}

	type partial struct {
		vals  []int64
		bound []bool
	}
	parts := []partial{{vals: make([]int64, len(q.Attributes)), bound: make([]bool, len(q.Attributes))}}

	type input struct {
		rel    *ir.Relation
		cols   [2]int
		s0, s1 int
	}
	inputs := make([]input, len(q.Relations))
	for i, rs := range q.Relations {
		rel, ok := db[rs.Name]
		if !ok {
			return nil, ir.NewConfigError(ir.CodeUnknownRelation, "relation %s not loaded", rs.Name).WithRelation(rs.Name)
		}
		cols, err := columns(rs, rel)
		if err != nil {
			return nil, err
		}
		inputs[i] = input{rel: rel, cols: cols, s0: slot[rs.Attributes[0]], s1: slot[rs.Attributes[1]]}
	}

	probes := 0
	for _, in := range inputs {
		rel, cols, s0, s1 := in.rel, in.cols, in.s0, in.s1

		var next []partial
		for _, p := range parts {
			for _, t := range rel.Tuples {
				probes++
				if probes%cancelCheckInterval == 0 {
					if err := ctx.Err(); err != nil {
						return nil, err
					}
				}
				v0, v1 := t[cols[0]], t[cols[1]]
				if p.bound[s0] && p.vals[s0] != v0 {
					continue
				}
				if p.bound[s1] && p.vals[s1] != v1 {
					continue
				}
				n := partial{vals: append([]int64(nil), p.vals...), bound: append([]bool(nil), p.bound...)}
				n.vals[s0], n.bound[s0] = v0, true
				n.vals[s1], n.bound[s1] = v1, true
				next = append(next, n)
			}
		}
		parts = next
		if len(parts) == 0 {
			break
		}
	}

	rows := make([]ir.Row, 0, len(parts))
	for _, p := range parts {
		rows = append(rows, ir.Row(p.vals))
	}
	return ir.NewResultSet(q.Attributes, rows), nil
}

// columns maps the query schema of rs onto tuple positions of rel.
func columns(rs ir.RelationSchema, rel *ir.Relation) ([2]int, error) {
	var cols [2]int
	if len(rel.Schema) != 2 {
		return cols, ir.NewConfigError(ir.CodeArity, "relation %s has arity %d, want 2", rel.Name, len(rel.Schema)).
			WithRelation(rs.Name)
	}
	for i, a := range rs.Attributes {
		p := rel.Position(a)
		if p < 0 {
			return cols, ir.NewConfigError(ir.CodeUnknownAttribute, "relation %s has no attribute %s", rs.Name, a).
				WithRelation(rs.Name).WithAttribute(a)
		}
		cols[i] = p
	}
	return cols, nil
}
