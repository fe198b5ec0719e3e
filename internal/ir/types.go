package ir

import (
	"cmp"
	"slices"
)

// Attribute names a query variable (e.g. "A1"). Its domain is int64.
type Attribute string

// Tuple is a single row of a binary relation, ordered by the relation schema.
type Tuple [2]int64

// Relation is a named binary relation with set semantics.
//
// Tuples are kept sorted and distinct. A Relation must not be mutated after
// construction; the index builder and the oracles read it concurrently.
type Relation struct {
	Name   string      `json:"name"`
	Schema []Attribute `json:"schema"`
	Tuples []Tuple     `json:"tuples"`
}

// NewRelation creates a relation, collapsing duplicate tuples.
//
// The schema is copied as given; its arity is validated later by
// index.Build and QuerySpec.Validate so that malformed input surfaces as a
// ConfigError rather than a panic here.
func NewRelation(name string, schema []Attribute, tuples ...Tuple) *Relation {
	ts := slices.Clone(tuples)
	slices.SortFunc(ts, compareTuples)
	ts = slices.Compact(ts)
	return &Relation{
		Name:   name,
		Schema: slices.Clone(schema),
		Tuples: ts,
	}
}

// Len returns the number of distinct tuples.
func (r *Relation) Len() int {
	return len(r.Tuples)
}

// Position returns the schema position of attr, or -1.
func (r *Relation) Position(attr Attribute) int {
	return slices.Index(r.Schema, attr)
}

func compareTuples(a, b Tuple) int {
	if c := cmp.Compare(a[0], b[0]); c != 0 {
		return c
	}
	return cmp.Compare(a[1], b[1])
}

// Database maps relation names to relations.
type Database map[string]*Relation

// NewDatabase builds a Database from relations. A later relation with the
// same name replaces an earlier one.
func NewDatabase(rels ...*Relation) Database {
	db := make(Database, len(rels))
	for _, r := range rels {
		db[r.Name] = r
	}
	return db
}

// Names returns relation names in sorted order for deterministic iteration.
func (db Database) Names() []string {
	names := make([]string, 0, len(db))
	for name := range db {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// RelationSchema declares one relation of a query.
type RelationSchema struct {
	Name       string      `json:"name" yaml:"name"`
	Attributes []Attribute `json:"attributes" yaml:"attributes"`
}

// QuerySpec describes the natural join to evaluate.
//
// Attributes is the canonical output order of result tuples. Relations are
// kept in declaration order.
type QuerySpec struct {
	Attributes []Attribute      `json:"attributes"`
	Relations  []RelationSchema `json:"relations"`
}

// Relation returns the schema declared for name.
func (q *QuerySpec) Relation(name string) (RelationSchema, bool) {
	for _, r := range q.Relations {
		if r.Name == name {
			return r, true
		}
	}
	return RelationSchema{}, false
}

// Validate checks the query for configuration errors: non-binary
// relations, attributes missing from the attribute list, duplicate names,
// and attributes no relation mentions.
func (q *QuerySpec) Validate() error {
	if len(q.Attributes) == 0 {
		return NewConfigError(CodeIncompleteCover, "query declares no attributes")
	}
	known := make(map[Attribute]bool, len(q.Attributes))
	for _, a := range q.Attributes {
		if a == "" {
			return NewConfigError(CodeUnknownAttribute, "empty attribute name")
		}
		if known[a] {
			return NewConfigError(CodeDuplicate, "attribute %s declared twice", a)
		}
		known[a] = true
	}

	covered := make(map[Attribute]bool, len(q.Attributes))
	seen := make(map[string]bool, len(q.Relations))
	for _, r := range q.Relations {
		if seen[r.Name] {
			return NewConfigError(CodeDuplicate, "relation %s declared twice", r.Name).WithRelation(r.Name)
		}
		seen[r.Name] = true
		if len(r.Attributes) != 2 {
			return NewConfigError(CodeArity, "relation %s has arity %d, want 2", r.Name, len(r.Attributes)).WithRelation(r.Name)
		}
		if r.Attributes[0] == r.Attributes[1] {
			return NewConfigError(CodeDuplicate, "relation %s repeats attribute %s", r.Name, r.Attributes[0]).WithRelation(r.Name)
		}
		for _, a := range r.Attributes {
			if !known[a] {
				return NewConfigError(CodeUnknownAttribute, "relation %s references undeclared attribute %s", r.Name, a).
					WithRelation(r.Name).WithAttribute(a)
			}
			covered[a] = true
		}
	}
	for _, a := range q.Attributes {
		if !covered[a] {
			return NewConfigError(CodeUncoveredVariable, "attribute %s appears in no relation", a).WithAttribute(a)
		}
	}
	return nil
}

// InferQuery derives a QuerySpec from a database. Relations are taken in
// name order and attributes in order of first appearance.
func InferQuery(db Database) *QuerySpec {
	q := &QuerySpec{}
	seen := make(map[Attribute]bool)
	for _, name := range db.Names() {
		r := db[name]
		q.Relations = append(q.Relations, RelationSchema{Name: name, Attributes: slices.Clone(r.Schema)})
		for _, a := range r.Schema {
			if !seen[a] {
				seen[a] = true
				q.Attributes = append(q.Attributes, a)
			}
		}
	}
	return q
}

// BagSpec is one node of a decomposition tree as supplied by configuration.
//
// Chi is the bag's ordered variable set and doubles as its local variable
// order. Lambda names the relations evaluated in the bag.
type BagSpec struct {
	ID       string      `json:"id" yaml:"id"`
	Chi      []Attribute `json:"chi" yaml:"chi"`
	Lambda   []string    `json:"lambda" yaml:"lambda"`
	Parent   string      `json:"parent,omitempty" yaml:"parent,omitempty"`
	Children []string    `json:"children,omitempty" yaml:"children,omitempty"`
}

// DecompositionSpec is a static bag tree. Root may be left empty, in which
// case the unique bag without a parent is the root.
type DecompositionSpec struct {
	Root string    `json:"root,omitempty" yaml:"root,omitempty"`
	Bags []BagSpec `json:"bags" yaml:"bags"`
}

// Bag returns the bag with the given id.
func (d *DecompositionSpec) Bag(id string) (BagSpec, bool) {
	for _, b := range d.Bags {
		if b.ID == id {
			return b, true
		}
	}
	return BagSpec{}, false
}
