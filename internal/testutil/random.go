package testutil

import (
	"fmt"
	"math/rand/v2"

	"github.com/roach88/hyperjoin/internal/ir"
)

// RandomDatabase fills every relation of q with up to n tuples whose values
// are drawn from [1, domain]. The same seed always yields the same database.
//
// Small domains produce dense joins; large domains produce mostly empty ones.
func RandomDatabase(seed uint64, q *ir.QuerySpec, n int, domain int64) ir.Database {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	rels := make([]*ir.Relation, 0, len(q.Relations))
	for _, rs := range q.Relations {
		tuples := make([]ir.Tuple, n)
		for i := range tuples {
			tuples[i] = ir.Tuple{rng.Int64N(domain) + 1, rng.Int64N(domain) + 1}
		}
		rels = append(rels, ir.NewRelation(rs.Name, rs.Attributes, tuples...))
	}
	return ir.NewDatabase(rels...)
}

// LineQuery returns the line query R1(A1,A2), R2(A2,A3), ..., Rk(Ak,Ak+1).
func LineQuery(k int) *ir.QuerySpec {
	q := &ir.QuerySpec{}
	for i := 1; i <= k+1; i++ {
		q.Attributes = append(q.Attributes, ir.Attribute(fmt.Sprintf("A%d", i)))
	}
	for i := 1; i <= k; i++ {
		q.Relations = append(q.Relations, ir.RelationSchema{
			Name:       fmt.Sprintf("R%d", i),
			Attributes: []ir.Attribute{q.Attributes[i-1], q.Attributes[i]},
		})
	}
	return q
}

// TriangleQuery returns R(A,B), S(B,C), T(A,C).
func TriangleQuery() *ir.QuerySpec {
	return &ir.QuerySpec{
		Attributes: []ir.Attribute{"A", "B", "C"},
		Relations: []ir.RelationSchema{
			{Name: "R", Attributes: []ir.Attribute{"A", "B"}},
			{Name: "S", Attributes: []ir.Attribute{"B", "C"}},
			{Name: "T", Attributes: []ir.Attribute{"A", "C"}},
		},
	}
}

// SixCycleQuery returns the seven-relation query over A1..A6 used as the
// running decomposition example: a triangle A1-A2-A3, a bridge A3-A4 and a
// triangle A4-A5-A6.
func SixCycleQuery() *ir.QuerySpec {
	rel := func(name string, a, b ir.Attribute) ir.RelationSchema {
		return ir.RelationSchema{Name: name, Attributes: []ir.Attribute{a, b}}
	}
	return &ir.QuerySpec{
		Attributes: []ir.Attribute{"A1", "A2", "A3", "A4", "A5", "A6"},
		Relations: []ir.RelationSchema{
			rel("R1", "A1", "A2"),
			rel("R2", "A2", "A3"),
			rel("R3", "A1", "A3"),
			rel("R4", "A3", "A4"),
			rel("R5", "A4", "A5"),
			rel("R6", "A5", "A6"),
			rel("R7", "A4", "A6"),
		},
	}
}

// SixCycleDecomposition returns the four-bag tree for SixCycleQuery:
//
//	B1{A1,A2,A3; R1,R2}
//	├── B2{A1,A3; R3}
//	└── B3{A3,A4,A5; R4,R5}
//	    └── B4{A4,A5,A6; R6,R7}
func SixCycleDecomposition() *ir.DecompositionSpec {
	return &ir.DecompositionSpec{
		Root: "B1",
		Bags: []ir.BagSpec{
			{ID: "B1", Chi: []ir.Attribute{"A1", "A2", "A3"}, Lambda: []string{"R1", "R2"}, Children: []string{"B2", "B3"}},
			{ID: "B2", Chi: []ir.Attribute{"A1", "A3"}, Lambda: []string{"R3"}, Parent: "B1"},
			{ID: "B3", Chi: []ir.Attribute{"A3", "A4", "A5"}, Lambda: []string{"R4", "R5"}, Parent: "B1", Children: []string{"B4"}},
			{ID: "B4", Chi: []ir.Attribute{"A4", "A5", "A6"}, Lambda: []string{"R6", "R7"}, Parent: "B3"},
		},
	}
}
