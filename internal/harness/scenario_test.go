package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hyperjoin/internal/ir"
)

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const validScenario = `
name: inline
description: "inline scenario"
query:
  attributes: [A1, A2, A3]
  relations:
    - {name: R1, attributes: [A1, A2]}
    - {name: R2, attributes: [A2, A3]}
data:
  R1: [[1, 2]]
  R2: []
decomposition:
  root: B1
  bags:
    - {id: B1, chi: [A1, A2], lambda: [R1], children: [B2]}
    - {id: B2, chi: [A2, A3], lambda: [R2]}
order: [A2, A1, A3]
expect:
  rows: []
`

func TestLoadScenario(t *testing.T) {
	s, err := LoadScenario(writeScenario(t, validScenario))
	require.NoError(t, err)

	assert.Equal(t, "inline", s.Name)
	assert.Equal(t, []ir.Attribute{"A1", "A2", "A3"}, s.Query.Attributes)
	assert.Equal(t, "R2", s.Query.Relations[1].Name)
	assert.Equal(t, []ir.Attribute{"A2", "A1", "A3"}, s.Order)
	require.NotNil(t, s.Decomposition)
	assert.Equal(t, "B1", s.Decomposition.Root)
	assert.Equal(t, []string{"B2"}, s.Decomposition.Bags[0].Children)
	require.NotNil(t, s.Expect)
	assert.Empty(t, s.Expect.Rows)

	db, err := s.Database()
	require.NoError(t, err)
	assert.Equal(t, []ir.Tuple{{1, 2}}, db["R1"].Tuples)
	assert.Empty(t, db["R2"].Tuples)
}

func TestLoadScenarioRejectsUnknownField(t *testing.T) {
	_, err := LoadScenario(writeScenario(t, validScenario+"expected: {}\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
	assert.Contains(t, err.Error(), "expected")
}

func TestLoadScenarioMissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestValidateScenario(t *testing.T) {
	base := func() *Scenario {
		return &Scenario{
			Name:        "s",
			Description: "d",
			Query: ir.QuerySpec{
				Attributes: []ir.Attribute{"A1", "A2"},
				Relations:  []ir.RelationSchema{{Name: "R1", Attributes: []ir.Attribute{"A1", "A2"}}},
			},
			Data: map[string][][]int64{"R1": {{1, 2}}},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Scenario)
		want   string
	}{
		{"valid", func(*Scenario) {}, ""},
		{"no name", func(s *Scenario) { s.Name = "" }, "name is required"},
		{"no description", func(s *Scenario) { s.Description = "" }, "description is required"},
		{"no attributes", func(s *Scenario) { s.Query.Attributes = nil }, "query.attributes"},
		{"no relations", func(s *Scenario) { s.Query.Relations = nil }, "query.relations"},
		{"no data", func(s *Scenario) { s.Data = nil }, "data is required"},
		{"extra data", func(s *Scenario) { s.Data["R9"] = nil }, "data.R9: relation is not part of the query"},
		{"bad tuple", func(s *Scenario) { s.Data["R1"] = [][]int64{{1, 2, 3}} }, "data.R1[0]: tuple has 3 values"},
		{"negative workers", func(s *Scenario) { s.Workers = -1 }, "workers"},
		{"rows and error", func(s *Scenario) {
			s.Expect = &ExpectClause{Rows: [][]int64{{1, 2}}, Error: "CYCLE"}
		}, "mutually exclusive"},
		{"row width", func(s *Scenario) {
			s.Expect = &ExpectClause{Rows: [][]int64{{1}}}
		}, "expect.rows[0]: row has 1 values, want 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := base()
			tt.mutate(s)
			err := validateScenario(s)
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
