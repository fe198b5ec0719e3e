package decomp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hyperjoin/internal/index"
	"github.com/roach88/hyperjoin/internal/ir"
	"github.com/roach88/hyperjoin/internal/testutil"
)

func emptyIndex(t *testing.T, q *ir.QuerySpec) *index.Index {
	t.Helper()
	rels := make([]*ir.Relation, len(q.Relations))
	for i, rs := range q.Relations {
		rels[i] = ir.NewRelation(rs.Name, rs.Attributes)
	}
	idx, err := index.Build(ir.NewDatabase(rels...))
	require.NoError(t, err)
	return idx
}

func bag(id string, chi []ir.Attribute, lambda []string, children ...string) ir.BagSpec {
	return ir.BagSpec{ID: id, Chi: chi, Lambda: lambda, Children: children}
}

func attrs(names ...string) []ir.Attribute {
	out := make([]ir.Attribute, len(names))
	for i, n := range names {
		out[i] = ir.Attribute(n)
	}
	return out
}

func TestCompile_SixCycle(t *testing.T) {
	q := testutil.SixCycleQuery()
	tree, err := Compile(testutil.SixCycleDecomposition(), q, emptyIndex(t, q))
	require.NoError(t, err)

	assert.Equal(t, "B1", tree.Root().ID())
	var ids []string
	for _, b := range tree.Bags() {
		ids = append(ids, b.ID())
	}
	assert.Equal(t, []string{"B1", "B2", "B3", "B4"}, ids)

	b3, ok := tree.Bag("B3")
	require.True(t, ok)
	assert.Equal(t, "B1", b3.Parent())
	assert.Equal(t, []string{"B4"}, b3.Children())
	assert.Equal(t, 1, b3.Depth())
	// B3's subtree reads A3 from B1 and introduces A4, A5, A6.
	assert.Equal(t, []int{2}, b3.keySlots)
	assert.Equal(t, []int{3, 4, 5}, b3.newSlots)

	b2, _ := tree.Bag("B2")
	assert.Equal(t, []int{0, 2}, b2.keySlots)
	assert.Empty(t, b2.newSlots)
	assert.True(t, b2.IsLeaf())

	covers := map[string]bool{}
	for _, b := range tree.Bags() {
		covers[b.ID()] = b.PathCovers()
	}
	assert.Equal(t, map[string]bool{"B1": false, "B2": false, "B3": false, "B4": true}, covers)
}

func TestCompile_RootFromParentLinks(t *testing.T) {
	q := testutil.LineQuery(2)
	spec := &ir.DecompositionSpec{Bags: []ir.BagSpec{
		{ID: "Y", Chi: attrs("A2", "A3"), Lambda: []string{"R2"}, Parent: "X"},
		bag("X", attrs("A1", "A2"), []string{"R1"}, "Y"),
	}}
	tree, err := Compile(spec, q, emptyIndex(t, q))
	require.NoError(t, err)
	assert.Equal(t, "X", tree.Root().ID())
}

func TestCompile_Errors(t *testing.T) {
	line2 := testutil.LineQuery(2)
	line3 := testutil.LineQuery(3)

	tests := []struct {
		name string
		q    *ir.QuerySpec
		spec *ir.DecompositionSpec
		code ir.ConfigErrorCode
		bag  string
	}{
		{
			name: "no bags",
			q:    line2,
			spec: &ir.DecompositionSpec{},
			code: ir.CodeNoRoot,
		},
		{
			name: "duplicate bag",
			q:    line2,
			spec: &ir.DecompositionSpec{Bags: []ir.BagSpec{
				bag("B1", attrs("A1", "A2", "A3"), []string{"R1", "R2"}),
				bag("B1", attrs("A1", "A2"), []string{"R1"}),
			}},
			code: ir.CodeDuplicate,
			bag:  "B1",
		},
		{
			name: "unknown relation in lambda",
			q:    line2,
			spec: &ir.DecompositionSpec{Bags: []ir.BagSpec{
				bag("B1", attrs("A1", "A2", "A3"), []string{"R1", "R9"}),
			}},
			code: ir.CodeUnknownRelation,
			bag:  "B1",
		},
		{
			name: "relation outside chi",
			q:    line2,
			spec: &ir.DecompositionSpec{Bags: []ir.BagSpec{
				bag("B1", attrs("A1", "A2"), []string{"R1", "R2"}),
			}},
			code: ir.CodeUnknownAttribute,
			bag:  "B1",
		},
		{
			name: "unknown attribute in chi",
			q:    line2,
			spec: &ir.DecompositionSpec{Bags: []ir.BagSpec{
				bag("B1", attrs("A1", "A2", "Z"), []string{"R1"}),
			}},
			code: ir.CodeUnknownAttribute,
			bag:  "B1",
		},
		{
			name: "unknown child",
			q:    line2,
			spec: &ir.DecompositionSpec{Bags: []ir.BagSpec{
				bag("B1", attrs("A1", "A2", "A3"), []string{"R1", "R2"}, "B9"),
			}},
			code: ir.CodeBadLink,
			bag:  "B1",
		},
		{
			name: "parent disagrees with children",
			q:    line2,
			spec: &ir.DecompositionSpec{Bags: []ir.BagSpec{
				bag("B1", attrs("A1", "A2"), []string{"R1"}),
				{ID: "B2", Chi: attrs("A2", "A3"), Lambda: []string{"R2"}, Parent: "B1"},
			}},
			code: ir.CodeBadLink,
			bag:  "B2",
		},
		{
			name: "self loop",
			q:    line2,
			spec: &ir.DecompositionSpec{Bags: []ir.BagSpec{
				bag("B1", attrs("A1", "A2", "A3"), []string{"R1", "R2"}, "B1"),
			}},
			code: ir.CodeCycle,
			bag:  "B1",
		},
		{
			name: "two bag cycle",
			q:    line2,
			spec: &ir.DecompositionSpec{Bags: []ir.BagSpec{
				bag("B1", attrs("A1", "A2"), []string{"R1"}, "B2"),
				bag("B2", attrs("A2", "A3"), []string{"R2"}, "B1"),
			}},
			code: ir.CodeCycle,
			bag:  "B1",
		},
		{
			name: "multiple roots",
			q:    line2,
			spec: &ir.DecompositionSpec{Bags: []ir.BagSpec{
				bag("B1", attrs("A1", "A2"), []string{"R1"}),
				bag("B2", attrs("A2", "A3"), []string{"R2"}),
			}},
			code: ir.CodeMultipleRoots,
			bag:  "B2",
		},
		{
			name: "unreachable",
			q:    line2,
			spec: &ir.DecompositionSpec{Root: "B1", Bags: []ir.BagSpec{
				bag("B1", attrs("A1", "A2", "A3"), []string{"R1", "R2"}),
				bag("B2", attrs("A2", "A3"), []string{"R2"}),
			}},
			code: ir.CodeUnreachable,
			bag:  "B2",
		},
		{
			name: "root with parent",
			q:    line2,
			spec: &ir.DecompositionSpec{Root: "B2", Bags: []ir.BagSpec{
				bag("B1", attrs("A1", "A2"), []string{"R1"}, "B2"),
				bag("B2", attrs("A2", "A3"), []string{"R2"}),
			}},
			code: ir.CodeBadLink,
			bag:  "B2",
		},
		{
			name: "relation in no bag",
			q:    line2,
			spec: &ir.DecompositionSpec{Bags: []ir.BagSpec{
				bag("B1", attrs("A1", "A2", "A3"), []string{"R1"}),
			}},
			code: ir.CodeIncompleteCover,
		},
		{
			name: "disconnected variable",
			q:    line3,
			spec: &ir.DecompositionSpec{Bags: []ir.BagSpec{
				bag("B1", attrs("A1", "A2"), []string{"R1"}, "B2"),
				bag("B2", attrs("A2", "A3"), []string{"R2"}, "B3"),
				bag("B3", attrs("A3", "A4", "A1"), []string{"R3"}),
			}},
			code: ir.CodeDisconnected,
			bag:  "B3",
		},
		{
			name: "chi variable without relation",
			q:    line2,
			spec: &ir.DecompositionSpec{Bags: []ir.BagSpec{
				bag("B1", attrs("A1", "A2", "A3"), []string{"R1"}, "B2"),
				bag("B2", attrs("A2", "A3"), []string{"R2"}),
			}},
			code: ir.CodeUncoveredVariable,
			bag:  "B1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.spec, tt.q, emptyIndex(t, tt.q))
			require.Error(t, err)

			var ce *ir.ConfigError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.code, ce.Code, "error: %v", err)
			if tt.bag != "" {
				assert.Equal(t, tt.bag, ce.Bag)
			}
		})
	}
}

func TestFindCycles(t *testing.T) {
	g := childGraph{
		"A": {"B"},
		"B": {"C"},
		"C": {"A"},
		"D": {},
	}
	assert.Equal(t, [][]string{{"A", "B", "C", "A"}}, findCycles(g))
	assert.Empty(t, findCycles(childGraph{"A": {"B"}, "B": {}}))
}
