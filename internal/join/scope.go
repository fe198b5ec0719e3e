package join

import (
	"slices"

	"github.com/roach88/hyperjoin/internal/index"
	"github.com/roach88/hyperjoin/internal/ir"
)

// Edge is a relation together with the attributes of its schema that lie in
// a scope. Binary scopes have both attributes in scope; an edge with one
// attribute restricts that variable to the relation's projection.
type Edge struct {
	Relation   string
	Attributes []ir.Attribute
}

// EdgesFor restricts the schemas of the named query relations to vars.
// Relations with no attribute in vars are dropped.
func EdgesFor(q *ir.QuerySpec, relations []string, vars []ir.Attribute) ([]Edge, error) {
	edges := make([]Edge, 0, len(relations))
	for _, name := range relations {
		rs, ok := q.Relation(name)
		if !ok {
			return nil, ir.NewConfigError(ir.CodeUnknownRelation, "relation %s is not part of the query", name).WithRelation(name)
		}
		var inScope []ir.Attribute
		for _, a := range rs.Attributes {
			if slices.Contains(vars, a) {
				inScope = append(inScope, a)
			}
		}
		if len(inScope) > 0 {
			edges = append(edges, Edge{Relation: name, Attributes: inScope})
		}
	}
	return edges, nil
}

// edgeRef is an edge as seen from one variable of the scope.
type edgeRef struct {
	rel *index.RelationIndex

	// pos is the schema position of the variable being resolved.
	pos int

	// otherSlot is the layout slot of the relation's other attribute, or -1
	// if that attribute is not in the layout.
	otherSlot int
}

// Scope is a compiled variable order and the edges in scope.
type Scope struct {
	layout *Layout
	vars   []ir.Attribute
	order  []int
	edges  [][]edgeRef
	rels   []string
}

// NewScope compiles a scope over the indexed relations.
//
// vars is the binding order. Every attribute of every edge must be in vars,
// every edge relation must be indexed with the edge attributes in its
// schema, and every variable must be touched by at least one edge.
// Violations are returned as ConfigErrors.
func NewScope(idx *index.Index, layout *Layout, vars []ir.Attribute, edges []Edge) (*Scope, error) {
	s := &Scope{
		layout: layout,
		vars:   slices.Clone(vars),
		order:  make([]int, len(vars)),
		edges:  make([][]edgeRef, len(vars)),
	}

	position := make(map[ir.Attribute]int, len(vars))
	for i, v := range vars {
		slot, ok := layout.Slot(v)
		if !ok {
			return nil, ir.NewConfigError(ir.CodeUnknownAttribute, "variable %s is not in layout", v).WithAttribute(v)
		}
		if _, dup := position[v]; dup {
			return nil, ir.NewConfigError(ir.CodeDuplicate, "variable %s appears twice in order", v).WithAttribute(v)
		}
		position[v] = i
		s.order[i] = slot
	}

	for _, e := range edges {
		ri, ok := idx.Relation(e.Relation)
		if !ok {
			return nil, ir.NewConfigError(ir.CodeUnknownRelation, "relation %s is not indexed", e.Relation).WithRelation(e.Relation)
		}
		if len(e.Attributes) == 0 || len(e.Attributes) > 2 {
			return nil, ir.NewConfigError(ir.CodeArity, "edge %s has %d attributes in scope", e.Relation, len(e.Attributes)).
				WithRelation(e.Relation)
		}
		s.rels = append(s.rels, e.Relation)
		for _, a := range e.Attributes {
			pos := ri.Position(a)
			if pos < 0 {
				return nil, ir.NewConfigError(ir.CodeUnknownAttribute, "attribute %s is not in schema of %s", a, e.Relation).
					WithRelation(e.Relation).WithAttribute(a)
			}
			i, ok := position[a]
			if !ok {
				return nil, ir.NewConfigError(ir.CodeUnknownAttribute, "edge %s attribute %s is not in scope", e.Relation, a).
					WithRelation(e.Relation).WithAttribute(a)
			}
			otherSlot := -1
			if slot, ok := layout.Slot(ri.Schema()[1-pos]); ok {
				otherSlot = slot
			}
			s.edges[i] = append(s.edges[i], edgeRef{rel: ri, pos: pos, otherSlot: otherSlot})
		}
	}

	for i, v := range vars {
		if len(s.edges[i]) == 0 {
			return nil, ir.NewConfigError(ir.CodeUncoveredVariable, "variable %s is not mentioned by any relation in scope", v).
				WithAttribute(v)
		}
	}
	return s, nil
}

// Vars returns the binding order.
func (s *Scope) Vars() []ir.Attribute {
	return slices.Clone(s.vars)
}

// Layout returns the slot layout the scope binds into.
func (s *Scope) Layout() *Layout {
	return s.layout
}

// Slots returns the layout slot of each variable in binding order.
func (s *Scope) Slots() []int {
	return slices.Clone(s.order)
}

// Relations returns the relation names in scope, in edge order.
func (s *Scope) Relations() []string {
	return slices.Clone(s.rels)
}
