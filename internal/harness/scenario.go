package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/hyperjoin/internal/ir"
)

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file and
	// prefixes run IDs.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Query declares the attributes and relation schemas.
	Query ir.QuerySpec `yaml:"query"`

	// Data holds the tuples of every query relation. An empty list is an
	// empty relation; a relation missing from Data is an error.
	Data map[string][][]int64 `yaml:"data"`

	// Order is an optional binding order for the flat join.
	Order []ir.Attribute `yaml:"order,omitempty"`

	// Decomposition, when present, is evaluated as well.
	Decomposition *ir.DecompositionSpec `yaml:"decomposition,omitempty"`

	// Workers sets evaluation parallelism. Zero means sequential.
	Workers int `yaml:"workers,omitempty"`

	// Expect specifies the expected outcome. If nil, evaluations are only
	// compared with each other.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected outcome. Rows and Error are mutually
// exclusive.
type ExpectClause struct {
	// Rows are the expected result rows over query.attributes, in any order.
	Rows [][]int64 `yaml:"rows,omitempty"`

	// Error is the expected ir.ConfigErrorCode.
	Error string `yaml:"error,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "relation:" vs "relations:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// LoadScenarios loads every *.yaml file in dir, in name order.
func LoadScenarios(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	slices.Sort(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// FromDatabase builds a scenario over loaded relations. The result has no
// expectation, so running it only checks that every evaluation agrees.
func FromDatabase(name string, q *ir.QuerySpec, db ir.Database, d *ir.DecompositionSpec) *Scenario {
	s := &Scenario{
		Name:          name,
		Description:   "cross-check of " + name,
		Query:         *q,
		Data:          make(map[string][][]int64, len(db)),
		Decomposition: d,
	}
	for _, rs := range q.Relations {
		rel, ok := db[rs.Name]
		if !ok || len(rs.Attributes) != 2 {
			continue
		}
		cols := [2]int{rel.Position(rs.Attributes[0]), rel.Position(rs.Attributes[1])}
		if cols[0] < 0 || cols[1] < 0 {
			continue
		}
		rows := make([][]int64, len(rel.Tuples))
		for i, t := range rel.Tuples {
			rows[i] = []int64{t[cols[0]], t[cols[1]]}
		}
		s.Data[rs.Name] = rows
	}
	return s
}

// Database builds the relations of the scenario from its inline data.
func (s *Scenario) Database() (ir.Database, error) {
	rels := make([]*ir.Relation, 0, len(s.Query.Relations))
	for _, rs := range s.Query.Relations {
		rows, ok := s.Data[rs.Name]
		if !ok {
			return nil, fmt.Errorf("data for relation %s is missing", rs.Name)
		}
		tuples := make([]ir.Tuple, len(rows))
		for i, row := range rows {
			if len(row) != 2 {
				return nil, fmt.Errorf("data.%s[%d]: tuple has %d values, want 2", rs.Name, i, len(row))
			}
			tuples[i] = ir.Tuple{row[0], row[1]}
		}
		rels = append(rels, ir.NewRelation(rs.Name, rs.Attributes, tuples...))
	}
	return ir.NewDatabase(rels...), nil
}

// validateScenario checks that required fields are present and well formed.
// Query semantics are left to evaluation so that scenarios can expect
// configuration errors.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Query.Attributes) == 0 {
		return fmt.Errorf("query.attributes is required and must be non-empty")
	}

	if len(s.Query.Relations) == 0 {
		return fmt.Errorf("query.relations is required and must be non-empty")
	}

	if s.Data == nil {
		return fmt.Errorf("data is required")
	}

	for name := range s.Data {
		if _, ok := s.Query.Relation(name); !ok {
			return fmt.Errorf("data.%s: relation is not part of the query", name)
		}
	}

	if _, err := s.Database(); err != nil {
		return err
	}

	if s.Workers < 0 {
		return fmt.Errorf("workers must be non-negative")
	}

	if s.Expect != nil {
		if s.Expect.Error != "" && len(s.Expect.Rows) > 0 {
			return fmt.Errorf("expect: rows and error are mutually exclusive")
		}
		for i, row := range s.Expect.Rows {
			if len(row) != len(s.Query.Attributes) {
				return fmt.Errorf("expect.rows[%d]: row has %d values, want %d", i, len(row), len(s.Query.Attributes))
			}
		}
	}

	return nil
}
