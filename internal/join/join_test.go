package join

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hyperjoin/internal/baseline"
	"github.com/roach88/hyperjoin/internal/index"
	"github.com/roach88/hyperjoin/internal/ir"
	"github.com/roach88/hyperjoin/internal/testutil"
)

func buildIndex(t *testing.T, db ir.Database) *index.Index {
	t.Helper()
	idx, err := index.Build(db)
	require.NoError(t, err)
	return idx
}

func twoWay(r1, r2 []ir.Tuple) ir.Database {
	return ir.NewDatabase(
		ir.NewRelation("R1", []ir.Attribute{"A1", "A2"}, r1...),
		ir.NewRelation("R2", []ir.Attribute{"A2", "A3"}, r2...),
	)
}

func TestGenericJoin_Scenarios(t *testing.T) {
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
			r1:   []ir.Tuple{{1, 5}},
			r2:   nil,
			want: []ir.Row{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx := buildIndex(t, twoWay(tt.r1, tt.r2))
			rs, err := GenericJoin(context.Background(), idx, testutil.LineQuery(2), nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, rs.Rows)
		})
	}
}

func TestGenericJoin_MatchesNestedLoop(t *testing.T) {
	queries := map[string]*ir.QuerySpec{
		"line":     testutil.LineQuery(3),
		"triangle": testutil.TriangleQuery(),
		"sixcycle": testutil.SixCycleQuery(),
	}
	for name, q := range queries {
		t.Run(name, func(t *testing.T) {
			for seed := uint64(1); seed <= 10; seed++ {
				db := testutil.RandomDatabase(seed, q, 25, 5)
				want, err := baseline.NestedLoopJoin(context.Background(), db, q)
				require.NoError(t, err)

				got, err := GenericJoin(context.Background(), buildIndex(t, db), q, nil)
				require.NoError(t, err)
				assert.True(t, want.Equal(got), "seed %d", seed)
			}
		})
	}
}

func TestGenericJoin_OrderInvariance(t *testing.T) {
	q := testutil.TriangleQuery()
	db := testutil.RandomDatabase(3, q, 30, 4)
	idx := buildIndex(t, db)

	orders := [][]ir.Attribute{
		{"A", "B", "C"},
		{"A", "C", "B"},
		{"B", "A", "C"},
		{"B", "C", "A"},
		{"C", "A", "B"},
		{"C", "B", "A"},
	}
	want, err := GenericJoin(context.Background(), idx, q, nil)
	require.NoError(t, err)
	for _, order := range orders {
		got, err := GenericJoin(context.Background(), idx, q, order)
		require.NoError(t, err)
		assert.True(t, want.Equal(got), "order %v", order)
		assert.Equal(t, q.Attributes, got.Attributes)
	}
}

func TestGenericJoin_Workers(t *testing.T) {
	q := testutil.SixCycleQuery()
	db := testutil.RandomDatabase(11, q, 40, 6)
	idx := buildIndex(t, db)

	serial, err := GenericJoin(context.Background(), idx, q, nil)
	require.NoError(t, err)

	var stats Stats
	parallel, err := GenericJoin(context.Background(), idx, q, nil, WithWorkers(4), WithStats(&stats))
	require.NoError(t, err)
	assert.True(t, serial.Equal(parallel))
	assert.Equal(t, int64(parallel.Len()), stats.Snapshot().Emitted)
}

func TestGenericJoin_WorkersCountEmptyFirstVariable(t *testing.T) {
	// R1 is empty, so A1 has no candidates at the first level.
	idx := buildIndex(t, twoWay(nil, []ir.Tuple{{2, 10}}))
	q := testutil.LineQuery(2)

	var serial, parallel Stats
	rs, err := GenericJoin(context.Background(), idx, q, nil, WithStats(&serial))
	require.NoError(t, err)
	assert.Equal(t, 0, rs.Len())

	rs, err = GenericJoin(context.Background(), idx, q, nil, WithWorkers(4), WithStats(&parallel))
	require.NoError(t, err)
	assert.Equal(t, 0, rs.Len())

	assert.Equal(t, int64(1), serial.Snapshot().Pruned)
	assert.Equal(t, serial.Snapshot(), parallel.Snapshot())
}

func TestGenericJoin_BadOrder(t *testing.T) {
	idx := buildIndex(t, twoWay(nil, nil))
	q := testutil.LineQuery(2)

	_, err := GenericJoin(context.Background(), idx, q, []ir.Attribute{"A1", "A2"})
	assert.True(t, ir.HasCode(err, ir.CodeIncompleteCover))

	_, err = GenericJoin(context.Background(), idx, q, []ir.Attribute{"A1", "A2", "Z"})
	assert.True(t, ir.HasCode(err, ir.CodeUnknownAttribute))

	_, err = GenericJoin(context.Background(), idx, q, []ir.Attribute{"A1", "A2", "A2"})
	assert.True(t, ir.HasCode(err, ir.CodeDuplicate))
}

func TestGenericJoin_UnindexedRelation(t *testing.T) {
	idx := buildIndex(t, ir.NewDatabase(ir.NewRelation("R1", []ir.Attribute{"A1", "A2"})))
	_, err := GenericJoin(context.Background(), idx, testutil.LineQuery(2), nil)
	assert.True(t, ir.HasCode(err, ir.CodeUnknownRelation))
}

func TestEnumerate_ConstraintsNotMutated(t *testing.T) {
	idx := buildIndex(t, twoWay([]ir.Tuple{{1, 5}, {2, 5}}, []ir.Tuple{{5, 10}, {5, 20}}))
	s, err := FlatScope(idx, testutil.LineQuery(2), nil)
	require.NoError(t, err)

	constraints, err := s.Layout().Assign(map[ir.Attribute]int64{"A1": 2})
	require.NoError(t, err)
	before := constraints.Clone()

	rows, err := s.Join(context.Background(), constraints)
	require.NoError(t, err)
	assert.Equal(t, []ir.Row{{2, 5, 10}, {2, 5, 20}}, rows)
	assert.True(t, before.Equal(constraints))

	// A second call over the same constraints sees the same state.
	again, err := s.Join(context.Background(), constraints)
	require.NoError(t, err)
	assert.Equal(t, rows, again)
}

func TestEnumerate_ConstraintOutsideDomain(t *testing.T) {
	idx := buildIndex(t, twoWay([]ir.Tuple{{1, 5}}, []ir.Tuple{{5, 10}}))
	s, err := FlatScope(idx, testutil.LineQuery(2), nil)
	require.NoError(t, err)

	constraints, err := s.Layout().Assign(map[ir.Attribute]int64{"A2": 6})
	require.NoError(t, err)
	rows, err := s.Join(context.Background(), constraints)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestEnumerate_Stop(t *testing.T) {
	idx := buildIndex(t, twoWay([]ir.Tuple{{1, 5}}, []ir.Tuple{{5, 10}, {5, 20}, {5, 30}}))
	s, err := FlatScope(idx, testutil.LineQuery(2), nil)
	require.NoError(t, err)

	var got []ir.Row
	err = s.Enumerate(context.Background(), nil, func(r ir.Row) error {
		got = append(got, r)
		return ErrStop
	})
	require.NoError(t, err)
	assert.Equal(t, []ir.Row{{1, 5, 10}}, got)
}

func TestEnumerate_EmitError(t *testing.T) {
	idx := buildIndex(t, twoWay([]ir.Tuple{{1, 5}}, []ir.Tuple{{5, 10}}))
	s, err := FlatScope(idx, testutil.LineQuery(2), nil)
	require.NoError(t, err)

	boom := errors.New("boom")
	err = s.Enumerate(context.Background(), nil, func(ir.Row) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestEnumerate_Cancelled(t *testing.T) {
	// A cross product large enough to pass several cancellation checks.
	var r1, r2 []ir.Tuple
	for i := int64(0); i < 200; i++ {
		r1 = append(r1, ir.Tuple{i, 1})
		r2 = append(r2, ir.Tuple{1, i})
	}
	idx := buildIndex(t, twoWay(r1, r2))
	s, err := FlatScope(idx, testutil.LineQuery(2), []ir.Attribute{"A2", "A1", "A3"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Join(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEnumerate_Stats(t *testing.T) {
	idx := buildIndex(t, twoWay([]ir.Tuple{{1, 2}, {2, 3}, {4, 9}}, []ir.Tuple{{2, 10}, {3, 20}}))
	s, err := FlatScope(idx, testutil.LineQuery(2), nil)
	require.NoError(t, err)

	var stats Stats
	rows, err := s.Join(context.Background(), nil, WithStats(&stats))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	snap := stats.Snapshot()
	assert.Equal(t, int64(2), snap.Emitted)
	// A1 = 4 binds A2 = 9, which has no continuation in R2.
	assert.Equal(t, int64(1), snap.Pruned)
	assert.Positive(t, snap.Resolutions)
	assert.Positive(t, snap.Intersections)
}
