package join

import (
	"slices"

	"github.com/roach88/hyperjoin/internal/ir"
)

// Layout assigns each attribute a dense slot.
type Layout struct {
	attrs []ir.Attribute
	slots map[ir.Attribute]int
}

// NewLayout creates a layout over attrs in the given order.
func NewLayout(attrs []ir.Attribute) (*Layout, error) {
	l := &Layout{
		attrs: slices.Clone(attrs),
		slots: make(map[ir.Attribute]int, len(attrs)),
	}
	for i, a := range attrs {
		if _, dup := l.slots[a]; dup {
			return nil, ir.NewConfigError(ir.CodeDuplicate, "attribute %s appears twice in layout", a).WithAttribute(a)
		}
		l.slots[a] = i
	}
	return l, nil
}

// Len returns the number of slots.
func (l *Layout) Len() int {
	return len(l.attrs)
}

// Attributes returns the attributes in slot order.
func (l *Layout) Attributes() []ir.Attribute {
	return slices.Clone(l.attrs)
}

// Slot returns the slot of a.
func (l *Layout) Slot(a ir.Attribute) (int, bool) {
	s, ok := l.slots[a]
	return s, ok
}

// Attribute returns the attribute held in slot s.
func (l *Layout) Attribute(s int) ir.Attribute {
	return l.attrs[s]
}

// NewAssignment returns an empty assignment over the layout.
func (l *Layout) NewAssignment() *Assignment {
	return &Assignment{
		vals:  make([]int64, len(l.attrs)),
		bound: make([]bool, len(l.attrs)),
	}
}

// Assign builds an assignment from attribute/value pairs.
func (l *Layout) Assign(values map[ir.Attribute]int64) (*Assignment, error) {
	a := l.NewAssignment()
	for attr, v := range values {
		s, ok := l.slots[attr]
		if !ok {
			return nil, ir.NewConfigError(ir.CodeUnknownAttribute, "attribute %s is not in layout", attr).WithAttribute(attr)
		}
		a.Set(s, v)
	}
	return a, nil
}

// Assignment is a partial assignment of values to layout slots.
//
// An Assignment is not safe for concurrent mutation. Enumeration never
// mutates the assignments passed in; it works on a private copy.
type Assignment struct {
	vals  []int64
	bound []bool
}

// Set binds slot s to v.
func (a *Assignment) Set(s int, v int64) {
	a.vals[s] = v
	a.bound[s] = true
}

// Unset clears slot s.
func (a *Assignment) Unset(s int) {
	a.vals[s] = 0
	a.bound[s] = false
}

// Get returns the value bound to slot s.
func (a *Assignment) Get(s int) (int64, bool) {
	return a.vals[s], a.bound[s]
}

// IsBound reports whether slot s is bound.
func (a *Assignment) IsBound(s int) bool {
	return a.bound[s]
}

// Bound returns the number of bound slots.
func (a *Assignment) Bound() int {
	n := 0
	for _, b := range a.bound {
		if b {
			n++
		}
	}
	return n
}

// Clone returns an independent copy.
func (a *Assignment) Clone() *Assignment {
	return &Assignment{
		vals:  slices.Clone(a.vals),
		bound: slices.Clone(a.bound),
	}
}

// Equal reports whether both assignments bind the same slots to the same
// values.
func (a *Assignment) Equal(b *Assignment) bool {
	if len(a.bound) != len(b.bound) {
		return false
	}
	for i := range a.bound {
		if a.bound[i] != b.bound[i] {
			return false
		}
		if a.bound[i] && a.vals[i] != b.vals[i] {
			return false
		}
	}
	return true
}

// Map returns the bound slots keyed by attribute.
func (a *Assignment) Map(l *Layout) map[ir.Attribute]int64 {
	m := make(map[ir.Attribute]int64)
	for i, b := range a.bound {
		if b {
			m[l.attrs[i]] = a.vals[i]
		}
	}
	return m
}

// Row returns the values of every slot in layout order. All slots must be
// bound.
func (a *Assignment) Row() (ir.Row, bool) {
	row := make(ir.Row, len(a.vals))
	for i, b := range a.bound {
		if !b {
			return nil, false
		}
		row[i] = a.vals[i]
	}
	return row, true
}
