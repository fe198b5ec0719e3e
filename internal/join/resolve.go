package join

import (
	"slices"

	"github.com/roach88/hyperjoin/internal/index"
	"github.com/roach88/hyperjoin/internal/ir"
)

// resolver computes candidate sets. It owns scratch buffers and must not be
// shared between goroutines.
type resolver struct {
	scope *Scope
	sets  []index.ValueSet
	bufA  index.ValueSet
	bufB  index.ValueSet
	one   [1]int64
	count *StatsSnapshot
}

func newResolver(s *Scope, count *StatsSnapshot) *resolver {
	return &resolver{scope: s, count: count}
}

// allowed returns the values variable i of the scope may take under the
// working assignment cur. fixed carries the externally supplied constraints.
//
// The returned set may alias index storage or the resolver's buffers; it is
// valid until the next call and must not be modified.
func (r *resolver) allowed(i int, cur, fixed *Assignment) index.ValueSet {
	r.count.Resolutions++

	// Step 1: one candidate set per edge. A bound other attribute restricts
	// through adjacency; an unbound one contributes the full projection.
	sets := r.sets[:0]
	for _, e := range r.scope.edges[i] {
		if e.otherSlot >= 0 && cur.bound[e.otherSlot] {
			sets = append(sets, e.rel.Neighbors(1-e.pos, cur.vals[e.otherSlot]))
		} else {
			sets = append(sets, e.rel.Projection(e.pos))
		}
	}
	r.sets = sets

	// Step 2: a variable without edges admits nothing. NewScope rejects such
	// scopes, so this only guards direct misuse.
	if len(sets) == 0 {
		return nil
	}

	// Step 4 shortcut: a constrained variable admits its value iff every
	// candidate set contains it, which is the same as intersecting and then
	// testing membership.
	slot := r.scope.order[i]
	if v, ok := fixed.Get(slot); ok {
		for _, s := range sets {
			if !s.Contains(v) {
				return nil
			}
		}
		r.one[0] = v
		return r.one[:]
	}

	// Step 3: intersect smallest first and stop at the first empty result.
	slices.SortFunc(sets, func(a, b index.ValueSet) int { return len(a) - len(b) })
	result := sets[0]
	if len(result) == 0 {
		return nil
	}
	useA := true
	for _, s := range sets[1:] {
		r.count.Intersections++
		if useA {
			r.bufA = result.Intersect(s, r.bufA[:0])
			result = r.bufA
		} else {
			r.bufB = result.Intersect(s, r.bufB[:0])
			result = r.bufB
		}
		useA = !useA
		if len(result) == 0 {
			return nil
		}
	}
	return result
}

// AllowedValues returns the values v may take, in ascending order, given the
// variables bound in prefix and the external constraints. Either assignment
// may be nil. An empty result means no extension of prefix binds v.
func (s *Scope) AllowedValues(v ir.Attribute, prefix, constraints *Assignment) (index.ValueSet, error) {
	i := slices.Index(s.vars, v)
	if i < 0 {
		return nil, ir.NewConfigError(ir.CodeUnknownAttribute, "variable %s is not in scope", v).WithAttribute(v)
	}
	fixed := constraints
	if fixed == nil {
		fixed = s.layout.NewAssignment()
	}
	cur := fixed.Clone()
	if prefix != nil {
		for slot, b := range prefix.bound {
			if b {
				cur.Set(slot, prefix.vals[slot])
			}
		}
	}
	var count StatsSnapshot
	out := newResolver(s, &count).allowed(i, cur, fixed)
	return slices.Clone(out), nil
}
