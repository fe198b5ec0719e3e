package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomDatabase_Deterministic(t *testing.T) {
	q := LineQuery(3)
	a := RandomDatabase(7, q, 20, 5)
	b := RandomDatabase(7, q, 20, 5)
	assert.Equal(t, a, b)

	for _, rs := range q.Relations {
		rel, ok := a[rs.Name]
		require.True(t, ok)
		assert.Equal(t, rs.Attributes, rel.Schema)
		assert.LessOrEqual(t, rel.Len(), 20)
		for _, tup := range rel.Tuples {
			assert.GreaterOrEqual(t, tup[0], int64(1))
			assert.LessOrEqual(t, tup[1], int64(5))
		}
	}
}

func TestQueriesValidate(t *testing.T) {
	require.NoError(t, LineQuery(4).Validate())
	require.NoError(t, TriangleQuery().Validate())
	require.NoError(t, SixCycleQuery().Validate())

	d := SixCycleDecomposition()
	assert.Equal(t, "B1", d.Root)
	assert.Len(t, d.Bags, 4)
}
