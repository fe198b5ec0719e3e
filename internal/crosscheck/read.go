package crosscheck

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/hyperjoin/internal/ir"
)

// BuildSQL rewrites the natural join of q as a SELECT DISTINCT. Each
// attribute is read from the first relation that mentions it; every later
// mention becomes an equality predicate. Rows are ordered by every output
// column.
func BuildSQL(q *ir.QuerySpec) (string, error) {
	if err := q.Validate(); err != nil {
		return "", err
	}

	source := make(map[ir.Attribute]string, len(q.Attributes))
	var from, where []string
	for i, r := range q.Relations {
		alias := fmt.Sprintf("t%d", i)
		from = append(from, fmt.Sprintf("%s AS %s", quoteIdent(r.Name), alias))
		for _, a := range r.Attributes {
			col := alias + "." + quoteIdent(string(a))
			if first, ok := source[a]; ok {
				where = append(where, fmt.Sprintf("%s = %s", col, first))
				continue
			}
			source[a] = col
		}
	}

	sel := make([]string, len(q.Attributes))
	order := make([]string, len(q.Attributes))
	for i, a := range q.Attributes {
		sel[i] = source[a]
		order[i] = fmt.Sprintf("%d", i+1)
	}

	var b strings.Builder
	b.WriteString("SELECT DISTINCT ")
	b.WriteString(strings.Join(sel, ", "))
	b.WriteString(" FROM ")
	b.WriteString(strings.Join(from, ", "))
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY ")
	b.WriteString(strings.Join(order, ", "))
	return b.String(), nil
}

// Evaluate runs the SQL form of q against the loaded tables.
func (s *Store) Evaluate(ctx context.Context, q *ir.QuerySpec) (*ir.ResultSet, error) {
	stmt, err := BuildSQL(q)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("sql join: %w", err)
	}
	defer rows.Close()

	n := len(q.Attributes)
	var out []ir.Row
	dest := make([]any, n)
	for rows.Next() {
		row := make(ir.Row, n)
		for i := range row {
			dest[i] = &row[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan sql row: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sql join: %w", err)
	}
	return ir.NewResultSet(q.Attributes, out), nil
}
