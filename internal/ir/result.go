package ir

import (
	"slices"
)

// Row is a complete assignment over a query's attribute order.
type Row []int64

// ResultSet is a de-duplicated, lexicographically sorted set of rows over a
// fixed attribute order.
type ResultSet struct {
	Attributes []Attribute `json:"attributes"`
	Rows       []Row       `json:"rows"`
}

// NewResultSet sorts rows and drops duplicates. The rows slice is reused.
func NewResultSet(attrs []Attribute, rows []Row) *ResultSet {
	slices.SortFunc(rows, slices.Compare[Row])
	rows = slices.CompactFunc(rows, slices.Equal[Row])
	if rows == nil {
		rows = []Row{}
	}
	return &ResultSet{
		Attributes: slices.Clone(attrs),
		Rows:       rows,
	}
}

// Len returns the number of distinct rows.
func (rs *ResultSet) Len() int {
	return len(rs.Rows)
}

// Contains reports whether row is in the set.
func (rs *ResultSet) Contains(row Row) bool {
	_, found := slices.BinarySearchFunc(rs.Rows, row, slices.Compare[Row])
	return found
}

// Equal reports whether two result sets hold the same rows over the same
// attribute order.
func (rs *ResultSet) Equal(other *ResultSet) bool {
	if !slices.Equal(rs.Attributes, other.Attributes) {
		return false
	}
	return slices.EqualFunc(rs.Rows, other.Rows, slices.Equal[Row])
}

// Project returns the rows reordered to attrs. Every attribute of attrs must
// be present in rs.
func (rs *ResultSet) Project(attrs []Attribute) (*ResultSet, error) {
	pos := make([]int, len(attrs))
	for i, a := range attrs {
		p := slices.Index(rs.Attributes, a)
		if p < 0 {
			return nil, NewConfigError(CodeUnknownAttribute, "attribute %s not in result", a).WithAttribute(a)
		}
		pos[i] = p
	}
	rows := make([]Row, len(rs.Rows))
	for i, r := range rs.Rows {
		out := make(Row, len(pos))
		for j, p := range pos {
			out[j] = r[p]
		}
		rows[i] = out
	}
	return NewResultSet(attrs, rows), nil
}

// Diff returns rows present only in rs (missing from other) and rows present
// only in other (extra). Both sets must share the attribute order.
func (rs *ResultSet) Diff(other *ResultSet) (onlyHere, onlyThere []Row) {
	i, j := 0, 0
	for i < len(rs.Rows) && j < len(other.Rows) {
		switch c := slices.Compare(rs.Rows[i], other.Rows[j]); {
		case c < 0:
			onlyHere = append(onlyHere, rs.Rows[i])
			i++
		case c > 0:
			onlyThere = append(onlyThere, other.Rows[j])
			j++
		default:
			i++
			j++
		}
	}
	onlyHere = append(onlyHere, rs.Rows[i:]...)
	onlyThere = append(onlyThere, other.Rows[j:]...)
	return onlyHere, onlyThere
}
