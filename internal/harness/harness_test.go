package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hyperjoin/internal/ir"
	"github.com/roach88/hyperjoin/internal/testutil"
)

func TestScenariosPass(t *testing.T) {
	scenarios, err := LoadScenarios(filepath.Join("testdata", "scenarios"))
	require.NoError(t, err)
	require.NotEmpty(t, scenarios)

	for _, s := range scenarios {
		t.Run(s.Name, func(t *testing.T) {
			result, err := Run(s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRunRecordsEveryCheck(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "six_cycle.yaml"))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)

	require.Len(t, result.Checks, 4)
	checks := []Check{CheckFlat, CheckTree, CheckNestedLoop, CheckSQLite}
	for i, c := range result.Checks {
		assert.Equal(t, checks[i], c.Check)
		assert.Equal(t, 8, c.Rows)
		assert.Equal(t, result.Checks[0].Fingerprint, c.Fingerprint)
	}
	assert.Equal(t, []string{"six_cycle-1", "six_cycle-2"}, result.RunIDs())
}

func TestRunReportsWrongExpectation(t *testing.T) {
	s := twoWayScenario()
	s.Expect = &ExpectClause{Rows: [][]int64{{1, 2, 10}, {9, 9, 9}}}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "expect: 1 missing rows [[9 9 9]], 1 extra rows [[2 3 20]]")
}

func TestRunReportsUnexpectedConfigError(t *testing.T) {
	s := twoWayScenario()
	s.Order = []ir.Attribute{"A1", "A2"}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Equal(t, string(ir.CodeIncompleteCover), result.ErrorCode)
	assert.Contains(t, result.Errors[0], "unexpected configuration error")
}

func TestRunReportsWrongErrorCode(t *testing.T) {
	s := twoWayScenario()
	s.Order = []ir.Attribute{"A1", "A2"}
	s.Expect = &ExpectClause{Error: string(ir.CodeCycle)}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "expected error CYCLE, got INCOMPLETE_COVER")
}

func TestRunReportsMissingError(t *testing.T) {
	s := twoWayScenario()
	s.Expect = &ExpectClause{Error: string(ir.CodeCycle)}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Equal(t, []string{"expected error CYCLE, evaluation succeeded"}, result.Errors)
}

func TestRunRandomAgreement(t *testing.T) {
	q := testutil.SixCycleQuery()
	for seed := uint64(1); seed <= 5; seed++ {
		db := testutil.RandomDatabase(seed, q, 25, 5)
		s := FromDatabase("random", q, db, testutil.SixCycleDecomposition())
		s.Workers = int(seed % 3)
		require.NoError(t, validateScenario(s))

		result, err := Run(s)
		require.NoError(t, err)
		assert.True(t, result.Pass, "seed %d: %v", seed, result.Errors)
	}
}

func TestRunFailsOnMissingData(t *testing.T) {
	s := twoWayScenario()
	delete(s.Data, "R2")

	_, err := Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "data for relation R2 is missing")
}

func twoWayScenario() *Scenario {
	return &Scenario{
		Name:        "two_way_inline",
		Description: "inline two-way join",
		Query: ir.QuerySpec{
			Attributes: []ir.Attribute{"A1", "A2", "A3"},
			Relations: []ir.RelationSchema{
				{Name: "R1", Attributes: []ir.Attribute{"A1", "A2"}},
				{Name: "R2", Attributes: []ir.Attribute{"A2", "A3"}},
			},
		},
		Data: map[string][][]int64{
			"R1": {{1, 2}, {2, 3}},
			"R2": {{2, 10}, {3, 20}},
		},
	}
}
