package baseline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hyperjoin/internal/ir"
	"github.com/roach88/hyperjoin/internal/testutil"
)

func twoWay(r1, r2 []ir.Tuple) (ir.Database, *ir.QuerySpec) {
	db := ir.NewDatabase(
		ir.NewRelation("R1", []ir.Attribute{"A1", "A2"}, r1...),
		ir.NewRelation("R2", []ir.Attribute{"A2", "A3"}, r2...),
	)
	return db, testutil.LineQuery(2)
}

func TestNestedLoopJoin_Scenarios(t *testing.T) {
	tests := []struct {
		name string
		r1   []ir.Tuple
		r2   []ir.Tuple
		want []ir.Row
	}{
		{
			name: "shared attribute",
			r1:   []ir.Tuple{{1, 2}, {2, 3}},
			r2:   []ir.Tuple{{2, 10}, {3, 20}},
			want: []ir.Row{{1, 2, 10}, {2, 3, 20}},
		},
		{
			name: "no match",
			r1:   []ir.Tuple{{1, 2}},
			r2:   []ir.Tuple{{99, 5}},
			want: []ir.Row{},
		},
		{
			name: "fan out",
			r1:   []ir.Tuple{{1, 5}},
			r2:   []ir.Tuple{{5, 10}, {5, 20}},
			want: []ir.Row{{1, 5, 10}, {1, 5, 20}},
		},
		{
			name: "empty relation",
			r1:   nil,
			r2:   []ir.Tuple{{5, 10}},
			want: []ir.Row{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, q := twoWay(tt.r1, tt.r2)
			rs, err := NestedLoopJoin(context.Background(), db, q)
			require.NoError(t, err)
			assert.Equal(t, tt.want, rs.Rows)
			assert.Equal(t, q.Attributes, rs.Attributes)
		})
	}
}

func TestNestedLoopJoin_SchemaOrderIndependent(t *testing.T) {
	// R2 is stored as (A3, A2) but declared as (A2, A3) in the query.
	db := ir.NewDatabase(
		ir.NewRelation("R1", []ir.Attribute{"A1", "A2"}, ir.Tuple{1, 2}),
		ir.NewRelation("R2", []ir.Attribute{"A3", "A2"}, ir.Tuple{10, 2}),
	)
	rs, err := NestedLoopJoin(context.Background(), db, testutil.LineQuery(2))
	require.NoError(t, err)
	assert.Equal(t, []ir.Row{{1, 2, 10}}, rs.Rows)
}

func TestNestedLoopJoin_Triangle(t *testing.T) {
	db := ir.NewDatabase(
		ir.NewRelation("R", []ir.Attribute{"A", "B"}, ir.Tuple{1, 2}, ir.Tuple{1, 3}),
		ir.NewRelation("S", []ir.Attribute{"B", "C"}, ir.Tuple{2, 4}, ir.Tuple{3, 5}),
		ir.NewRelation("T", []ir.Attribute{"A", "C"}, ir.Tuple{1, 4}),
	)
	rs, err := NestedLoopJoin(context.Background(), db, testutil.TriangleQuery())
	require.NoError(t, err)
	assert.Equal(t, []ir.Row{{1, 2, 4}}, rs.Rows)
}

func TestNestedLoopJoin_Errors(t *testing.T) {
	q := testutil.LineQuery(2)

	_, err := NestedLoopJoin(context.Background(), ir.NewDatabase(
		ir.NewRelation("R1", []ir.Attribute{"A1", "A2"}),
	), q)
	assert.True(t, ir.HasCode(err, ir.CodeUnknownRelation))

	_, err = NestedLoopJoin(context.Background(), ir.NewDatabase(
		ir.NewRelation("R1", []ir.Attribute{"A1", "A2"}),
		ir.NewRelation("R2", []ir.Attribute{"A2", "X"}),
	), q)
	assert.True(t, ir.HasCode(err, ir.CodeUnknownAttribute))
}

func TestNestedLoopJoin_ValidatesAfterEmptyRelation(t *testing.T) {
	// R is empty, so the join is empty before T is reached; T must still be
	// checked.
	q := testutil.TriangleQuery()

	_, err := NestedLoopJoin(context.Background(), ir.NewDatabase(
		ir.NewRelation("R", []ir.Attribute{"A", "B"}),
		ir.NewRelation("S", []ir.Attribute{"B", "C"}, ir.Tuple{2, 4}),
	), q)
	assert.True(t, ir.HasCode(err, ir.CodeUnknownRelation))

	_, err = NestedLoopJoin(context.Background(), ir.NewDatabase(
		ir.NewRelation("R", []ir.Attribute{"A", "B"}),
		ir.NewRelation("S", []ir.Attribute{"B", "C"}, ir.Tuple{2, 4}),
		ir.NewRelation("T", []ir.Attribute{"A", "X"}, ir.Tuple{1, 4}),
	), q)
	assert.True(t, ir.HasCode(err, ir.CodeUnknownAttribute))
}

func TestHashJoin(t *testing.T) {
	left := ir.NewRelation("R1", []ir.Attribute{"A1", "A2"}, ir.Tuple{1, 5}, ir.Tuple{2, 6})
	right := ir.NewRelation("R2", []ir.Attribute{"A2", "A3"}, ir.Tuple{5, 10}, ir.Tuple{5, 20}, ir.Tuple{7, 1})

	assert.Equal(t, []Triple{{1, 5, 10}, {1, 5, 20}}, HashJoin(left, right))
}

func TestLineJoinAndRemoveDanglingAgree(t *testing.T) {
	for seed := uint64(1); seed <= 20; seed++ {
		q := testutil.LineQuery(4)
		db := testutil.RandomDatabase(seed, q, 15, 6)
		rels := make([]*ir.Relation, len(q.Relations))
		for i, rs := range q.Relations {
			rels[i] = db[rs.Name]
		}

		want, err := NestedLoopJoin(context.Background(), db, q)
		require.NoError(t, err)

		line := ir.NewResultSet(q.Attributes, LineJoin(rels))
		reduced := ir.NewResultSet(q.Attributes, RemoveDangling(rels))

		assert.True(t, want.Equal(line), "seed %d: LineJoin differs from nested loop", seed)
		assert.True(t, want.Equal(reduced), "seed %d: RemoveDangling differs from nested loop", seed)
	}
}

func TestLineJoin_EmptyIntermediate(t *testing.T) {
	rels := []*ir.Relation{
		ir.NewRelation("R1", []ir.Attribute{"A1", "A2"}, ir.Tuple{1, 2}),
		ir.NewRelation("R2", []ir.Attribute{"A2", "A3"}, ir.Tuple{9, 3}),
		ir.NewRelation("R3", []ir.Attribute{"A3", "A4"}, ir.Tuple{3, 4}),
	}
	assert.Empty(t, LineJoin(rels))
	assert.Empty(t, RemoveDangling(rels))
}

func TestRemoveDangling_SkipsDeadEnds(t *testing.T) {
	rels := []*ir.Relation{
		ir.NewRelation("R1", []ir.Attribute{"A1", "A2"}, ir.Tuple{1, 2}, ir.Tuple{1, 3}),
		ir.NewRelation("R2", []ir.Attribute{"A2", "A3"}, ir.Tuple{2, 4}, ir.Tuple{3, 5}),
		ir.NewRelation("R3", []ir.Attribute{"A3", "A4"}, ir.Tuple{4, 8}),
	}
	assert.Equal(t, []ir.Row{{1, 2, 4, 8}}, RemoveDangling(rels))
}
