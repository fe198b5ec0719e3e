// Package index builds the global projection and adjacency index over a set
// of binary relations.
//
// For every relation R(X, Y) the index holds:
//   - the projection of X and of Y (sorted distinct values), and
//   - adjacency maps X -> {y : (x, y) ∈ R} and Y -> {x : (x, y) ∈ R}.
//
// The index is built once per evaluation and is read-only afterwards, so
// any number of goroutines may read it without synchronization. A lookup
// for a value that does not occur returns an empty set: a miss means "no
// matching tuples", never "unrestricted".
package index

import (
	"cmp"
	"slices"

	"github.com/roach88/hyperjoin/internal/ir"
)

// Index is the global index over a database.
type Index struct {
	relations map[string]*RelationIndex
	tuples    int
}

// RelationIndex holds the projections and adjacency maps of one relation.
// Positions refer to the relation schema: 0 for its first attribute and 1
// for its second.
type RelationIndex struct {
	name   string
	schema [2]ir.Attribute
	proj   [2]ValueSet
	adj    [2]map[int64]ValueSet
	size   int
}

// Build indexes every relation of db.
//
// Returns a ConfigError with CodeArity if a relation schema is not binary,
// and CodeDuplicate if both schema positions name the same attribute.
func Build(db ir.Database) (*Index, error) {
	idx := &Index{relations: make(map[string]*RelationIndex, len(db))}
	for _, name := range db.Names() {
		ri, err := buildRelation(name, db[name])
		if err != nil {
			return nil, err
		}
		idx.relations[name] = ri
		idx.tuples += ri.size
	}
	return idx, nil
}

func buildRelation(name string, r *ir.Relation) (*RelationIndex, error) {
	if len(r.Schema) != 2 {
		return nil, ir.NewConfigError(ir.CodeArity, "relation %s has arity %d, want 2", name, len(r.Schema)).
			WithRelation(name)
	}
	if r.Schema[0] == r.Schema[1] {
		return nil, ir.NewConfigError(ir.CodeDuplicate, "relation %s repeats attribute %s", name, r.Schema[0]).
			WithRelation(name)
	}

	// Sorted distinct tuples make every adjacency list come out sorted
	// without a second pass: for a fixed x the y values ascend, and for a
	// fixed y the x values ascend because x is the primary sort key.
	tuples := slices.Clone(r.Tuples)
	slices.SortFunc(tuples, func(a, b ir.Tuple) int {
		if c := cmp.Compare(a[0], b[0]); c != 0 {
			return c
		}
		return cmp.Compare(a[1], b[1])
	})
	tuples = slices.Compact(tuples)

	ri := &RelationIndex{
		name:   name,
		schema: [2]ir.Attribute{r.Schema[0], r.Schema[1]},
		adj:    [2]map[int64]ValueSet{make(map[int64]ValueSet), make(map[int64]ValueSet)},
		size:   len(tuples),
	}
	for _, t := range tuples {
		x, y := t[0], t[1]
		if _, ok := ri.adj[0][x]; !ok {
			ri.proj[0] = append(ri.proj[0], x)
		}
		ri.adj[0][x] = append(ri.adj[0][x], y)
		ri.adj[1][y] = append(ri.adj[1][y], x)
	}
	ri.proj[1] = make(ValueSet, 0, len(ri.adj[1]))
	for y := range ri.adj[1] {
		ri.proj[1] = append(ri.proj[1], y)
	}
	slices.Sort(ri.proj[1])
	return ri, nil
}

// Relation returns the index of the named relation.
func (idx *Index) Relation(name string) (*RelationIndex, bool) {
	ri, ok := idx.relations[name]
	return ri, ok
}

// Relations returns the indexed relation names in sorted order.
func (idx *Index) Relations() []string {
	names := make([]string, 0, len(idx.relations))
	for name := range idx.relations {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Tuples returns the total number of distinct tuples indexed.
func (idx *Index) Tuples() int {
	return idx.tuples
}

// Projection returns the distinct values of attr in relation rel.
func (idx *Index) Projection(rel string, attr ir.Attribute) (ValueSet, error) {
	ri, pos, err := idx.lookup(rel, attr)
	if err != nil {
		return nil, err
	}
	return ri.Projection(pos), nil
}

// Adjacent returns the values of rel's other attribute that co-occur with
// attr = v. A value absent from the relation yields an empty set.
func (idx *Index) Adjacent(rel string, attr ir.Attribute, v int64) (ValueSet, error) {
	ri, pos, err := idx.lookup(rel, attr)
	if err != nil {
		return nil, err
	}
	return ri.Neighbors(pos, v), nil
}

func (idx *Index) lookup(rel string, attr ir.Attribute) (*RelationIndex, int, error) {
	ri, ok := idx.relations[rel]
	if !ok {
		return nil, 0, ir.NewConfigError(ir.CodeUnknownRelation, "relation %s is not indexed", rel).WithRelation(rel)
	}
	pos := ri.Position(attr)
	if pos < 0 {
		return nil, 0, ir.NewConfigError(ir.CodeUnknownAttribute, "attribute %s is not in schema of %s", attr, rel).
			WithRelation(rel).WithAttribute(attr)
	}
	return ri, pos, nil
}

// Name returns the relation name.
func (ri *RelationIndex) Name() string {
	return ri.name
}

// Schema returns the relation's ordered attribute pair.
func (ri *RelationIndex) Schema() [2]ir.Attribute {
	return ri.schema
}

// Size returns the number of distinct tuples.
func (ri *RelationIndex) Size() int {
	return ri.size
}

// Position returns 0 or 1 for an attribute of the schema, -1 otherwise.
func (ri *RelationIndex) Position(attr ir.Attribute) int {
	switch attr {
	case ri.schema[0]:
		return 0
	case ri.schema[1]:
		return 1
	}
	return -1
}

// Projection returns the distinct values at schema position pos.
func (ri *RelationIndex) Projection(pos int) ValueSet {
	return ri.proj[pos]
}

// Neighbors returns the values at the other schema position that co-occur
// with value v at position pos. Missing keys yield an empty set.
func (ri *RelationIndex) Neighbors(pos int, v int64) ValueSet {
	return ri.adj[pos][v]
}
