package decomp

import (
	"errors"
	"slices"
	"strings"

	"github.com/roach88/hyperjoin/internal/index"
	"github.com/roach88/hyperjoin/internal/ir"
	"github.com/roach88/hyperjoin/internal/join"
)

// Bag is a compiled decomposition node.
type Bag struct {
	id       string
	chi      []ir.Attribute
	lambda   []string
	parent   *Bag
	children []*Bag
	depth    int

	scope    *join.Scope
	chiSlots []int

	// keySlots are the slots bound by ancestors that the subtree reads.
	keySlots []int

	// newSlots are the slots the subtree binds below its ancestors, in
	// layout order.
	newSlots []int

	pathCovers bool
}

// ID returns the bag identifier.
func (b *Bag) ID() string { return b.id }

// Chi returns the bag's variables in binding order.
func (b *Bag) Chi() []ir.Attribute { return slices.Clone(b.chi) }

// Lambda returns the bag's relations.
func (b *Bag) Lambda() []string { return slices.Clone(b.lambda) }

// Parent returns the parent bag id, or "" for the root.
func (b *Bag) Parent() string {
	if b.parent == nil {
		return ""
	}
	return b.parent.id
}

// Children returns the child bag ids in declaration order.
func (b *Bag) Children() []string {
	ids := make([]string, len(b.children))
	for i, c := range b.children {
		ids[i] = c.id
	}
	return ids
}

// Depth is 0 for the root.
func (b *Bag) Depth() int { return b.depth }

// IsLeaf reports whether the bag has no children.
func (b *Bag) IsLeaf() bool { return len(b.children) == 0 }

// PathCovers reports whether the union of χ along the path from the root to
// this bag covers every query attribute. An assignment completed at such a
// bag needs nothing from its siblings' subtrees.
func (b *Bag) PathCovers() bool { return b.pathCovers }

// Scope returns the bag-local join scope.
func (b *Bag) Scope() *join.Scope { return b.scope }

// Tree is a validated, compiled decomposition.
type Tree struct {
	query  *ir.QuerySpec
	layout *join.Layout
	root   *Bag
	bags   []*Bag
	byID   map[string]*Bag
}

// Root returns the root bag.
func (t *Tree) Root() *Bag { return t.root }

// Bags returns every bag in depth-first pre-order.
func (t *Tree) Bags() []*Bag { return slices.Clone(t.bags) }

// Bag returns the bag with the given id.
func (t *Tree) Bag(id string) (*Bag, bool) {
	b, ok := t.byID[id]
	return b, ok
}

// Layout returns the slot layout shared by every bag.
func (t *Tree) Layout() *join.Layout { return t.layout }

// Query returns the query the tree decomposes.
func (t *Tree) Query() *ir.QuerySpec { return t.query }

// Compile validates spec against q and idx and compiles every bag.
//
// It checks, in order: bag ids and χ/λ contents, parent and children
// links, cycles, the root, reachability, coverage of every query relation
// and attribute, and the connectedness condition. Each bag's scope is then
// compiled, which additionally rejects χ variables that no λ relation
// mentions. All failures are ConfigErrors.
func Compile(spec *ir.DecompositionSpec, q *ir.QuerySpec, idx *index.Index) (*Tree, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if len(spec.Bags) == 0 {
		return nil, ir.NewConfigError(ir.CodeNoRoot, "decomposition has no bags")
	}

	specs := make(map[string]ir.BagSpec, len(spec.Bags))
	for _, bs := range spec.Bags {
		if err := checkBag(bs, q); err != nil {
			return nil, err
		}
		if _, dup := specs[bs.ID]; dup {
			return nil, ir.NewConfigError(ir.CodeDuplicate, "bag %s declared twice", bs.ID).WithBag(bs.ID)
		}
		specs[bs.ID] = bs
	}

	parentOf, err := checkLinks(spec.Bags, specs)
	if err != nil {
		return nil, err
	}

	g := make(childGraph, len(spec.Bags))
	for _, bs := range spec.Bags {
		g[bs.ID] = bs.Children
	}
	if cycles := findCycles(g); len(cycles) > 0 {
		return nil, ir.NewConfigError(ir.CodeCycle, "bag tree has a cycle: %s", strings.Join(cycles[0], " -> ")).
			WithBag(cycles[0][0])
	}

	rootID, err := findRoot(spec, specs, parentOf)
	if err != nil {
		return nil, err
	}

	layout, err := join.NewLayout(q.Attributes)
	if err != nil {
		return nil, err
	}
	t := &Tree{
		query:  q,
		layout: layout,
		byID:   make(map[string]*Bag, len(specs)),
	}
	t.root = t.build(specs, rootID, nil)

	for _, bs := range spec.Bags {
		if _, ok := t.byID[bs.ID]; !ok {
			return nil, ir.NewConfigError(ir.CodeUnreachable, "bag %s is not reachable from root %s", bs.ID, rootID).
				WithBag(bs.ID)
		}
	}

	if err := t.checkCoverage(); err != nil {
		return nil, err
	}
	if err := t.checkConnected(); err != nil {
		return nil, err
	}
	if err := t.compileScopes(idx); err != nil {
		return nil, err
	}
	t.derive()
	return t, nil
}

func checkBag(bs ir.BagSpec, q *ir.QuerySpec) error {
	if bs.ID == "" {
		return ir.NewConfigError(ir.CodeBadLink, "bag with empty id")
	}
	if len(bs.Chi) == 0 {
		return ir.NewConfigError(ir.CodeIncompleteCover, "bag %s has an empty chi", bs.ID).WithBag(bs.ID)
	}
	for i, a := range bs.Chi {
		if !slices.Contains(q.Attributes, a) {
			return ir.NewConfigError(ir.CodeUnknownAttribute, "bag %s chi names unknown attribute %s", bs.ID, a).
				WithBag(bs.ID).WithAttribute(a)
		}
		if slices.Contains(bs.Chi[:i], a) {
			return ir.NewConfigError(ir.CodeDuplicate, "bag %s chi repeats attribute %s", bs.ID, a).
				WithBag(bs.ID).WithAttribute(a)
		}
	}
	for i, name := range bs.Lambda {
		rs, ok := q.Relation(name)
		if !ok {
			return ir.NewConfigError(ir.CodeUnknownRelation, "bag %s lambda names unknown relation %s", bs.ID, name).
				WithBag(bs.ID).WithRelation(name)
		}
		if slices.Contains(bs.Lambda[:i], name) {
			return ir.NewConfigError(ir.CodeDuplicate, "bag %s lambda repeats relation %s", bs.ID, name).
				WithBag(bs.ID).WithRelation(name)
		}
		for _, a := range rs.Attributes {
			if !slices.Contains(bs.Chi, a) {
				return ir.NewConfigError(ir.CodeUnknownAttribute, "relation %s attribute %s is outside chi of bag %s", name, a, bs.ID).
					WithBag(bs.ID).WithRelation(name).WithAttribute(a)
			}
		}
	}
	return nil
}

// checkLinks verifies that children exist, have one parent, and agree with
// any explicit Parent field. It returns the parent of every non-root bag.
func checkLinks(bags []ir.BagSpec, specs map[string]ir.BagSpec) (map[string]string, error) {
	parentOf := make(map[string]string, len(bags))
	for _, bs := range bags {
		for _, c := range bs.Children {
			child, ok := specs[c]
			if !ok {
				return nil, ir.NewConfigError(ir.CodeBadLink, "bag %s lists unknown child %s", bs.ID, c).WithBag(bs.ID)
			}
			if c == bs.ID {
				return nil, ir.NewConfigError(ir.CodeCycle, "bag tree has a cycle: %s -> %s", c, c).WithBag(c)
			}
			if p, seen := parentOf[c]; seen {
				return nil, ir.NewConfigError(ir.CodeBadLink, "bag %s is a child of both %s and %s", c, p, bs.ID).WithBag(c)
			}
			if child.Parent != "" && child.Parent != bs.ID {
				return nil, ir.NewConfigError(ir.CodeBadLink, "bag %s names parent %s but is listed by %s", c, child.Parent, bs.ID).
					WithBag(c)
			}
			parentOf[c] = bs.ID
		}
	}
	for _, bs := range bags {
		if bs.Parent == "" {
			continue
		}
		if _, ok := specs[bs.Parent]; !ok {
			return nil, ir.NewConfigError(ir.CodeBadLink, "bag %s names unknown parent %s", bs.ID, bs.Parent).WithBag(bs.ID)
		}
		if parentOf[bs.ID] != bs.Parent {
			return nil, ir.NewConfigError(ir.CodeBadLink, "bag %s names parent %s which does not list it as a child", bs.ID, bs.Parent).
				WithBag(bs.ID)
		}
	}
	return parentOf, nil
}

func findRoot(spec *ir.DecompositionSpec, specs map[string]ir.BagSpec, parentOf map[string]string) (string, error) {
	if spec.Root != "" {
		if _, ok := specs[spec.Root]; !ok {
			return "", ir.NewConfigError(ir.CodeNoRoot, "root bag %s is not declared", spec.Root).WithBag(spec.Root)
		}
		if p, ok := parentOf[spec.Root]; ok {
			return "", ir.NewConfigError(ir.CodeBadLink, "root bag %s has parent %s", spec.Root, p).WithBag(spec.Root)
		}
		return spec.Root, nil
	}

	var roots []string
	for _, bs := range spec.Bags {
		if _, ok := parentOf[bs.ID]; !ok {
			roots = append(roots, bs.ID)
		}
	}
	switch len(roots) {
	case 0:
		return "", ir.NewConfigError(ir.CodeNoRoot, "every bag has a parent")
	case 1:
		return roots[0], nil
	default:
		return "", ir.NewConfigError(ir.CodeMultipleRoots, "bags %s have no parent", strings.Join(roots, ", ")).
			WithBag(roots[1])
	}
}

func (t *Tree) build(specs map[string]ir.BagSpec, id string, parent *Bag) *Bag {
	bs := specs[id]
	b := &Bag{
		id:     id,
		chi:    slices.Clone(bs.Chi),
		lambda: slices.Clone(bs.Lambda),
		parent: parent,
	}
	if parent != nil {
		b.depth = parent.depth + 1
	}
	t.byID[id] = b
	t.bags = append(t.bags, b)
	for _, c := range bs.Children {
		b.children = append(b.children, t.build(specs, c, b))
	}
	return b
}

func (t *Tree) checkCoverage() error {
	for _, rs := range t.query.Relations {
		found := false
		for _, b := range t.bags {
			if slices.Contains(b.lambda, rs.Name) {
				found = true
				break
			}
		}
		if !found {
			return ir.NewConfigError(ir.CodeIncompleteCover, "relation %s is in no bag", rs.Name).WithRelation(rs.Name)
		}
	}
	for _, a := range t.query.Attributes {
		found := false
		for _, b := range t.bags {
			if slices.Contains(b.chi, a) {
				found = true
				break
			}
		}
		if !found {
			return ir.NewConfigError(ir.CodeIncompleteCover, "attribute %s is in no bag", a).WithAttribute(a)
		}
	}
	return nil
}

// checkConnected verifies that the bags holding each attribute form one
// connected subtree: exactly one of them has a parent without the
// attribute.
func (t *Tree) checkConnected() error {
	for _, a := range t.query.Attributes {
		var tops []string
		for _, b := range t.bags {
			if !slices.Contains(b.chi, a) {
				continue
			}
			if b.parent == nil || !slices.Contains(b.parent.chi, a) {
				tops = append(tops, b.id)
			}
		}
		if len(tops) > 1 {
			return ir.NewConfigError(ir.CodeDisconnected, "attribute %s occurs in disconnected bags %s",
				a, strings.Join(tops, ", ")).WithAttribute(a).WithBag(tops[1])
		}
	}
	return nil
}

func (t *Tree) compileScopes(idx *index.Index) error {
	for _, b := range t.bags {
		edges, err := join.EdgesFor(t.query, b.lambda, b.chi)
		if err != nil {
			return inBag(err, b.id)
		}
		s, err := join.NewScope(idx, t.layout, b.chi, edges)
		if err != nil {
			return inBag(err, b.id)
		}
		b.scope = s
		b.chiSlots = s.Slots()
	}
	return nil
}

// inBag tags a configuration error with the bag it was found in.
func inBag(err error, id string) error {
	var ce *ir.ConfigError
	if errors.As(err, &ce) && ce.Bag == "" {
		return ce.WithBag(id)
	}
	return err
}

// derive computes the per-bag slot sets used during evaluation.
func (t *Tree) derive() {
	n := t.layout.Len()
	var visit func(b *Bag, above []bool) []bool
	visit = func(b *Bag, above []bool) []bool {
		path := slices.Clone(above)
		for _, s := range b.chiSlots {
			path[s] = true
		}
		b.pathCovers = !slices.Contains(path, false)

		sub := make([]bool, n)
		for _, s := range b.chiSlots {
			sub[s] = true
		}
		for _, c := range b.children {
			for s, in := range visit(c, path) {
				sub[s] = sub[s] || in
			}
		}

		b.keySlots, b.newSlots = nil, nil
		for s := range n {
			switch {
			case sub[s] && above[s]:
				b.keySlots = append(b.keySlots, s)
			case sub[s]:
				b.newSlots = append(b.newSlots, s)
			}
		}
		return sub
	}
	visit(t.root, make([]bool, n))
}
