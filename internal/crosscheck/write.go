package crosscheck

import (
	"context"
	"fmt"

	"github.com/roach88/hyperjoin/internal/ir"
)

// Load creates one table per relation of db and inserts its tuples. Tables
// are replaced if they already exist. Each relation is written in its own
// transaction.
func (s *Store) Load(ctx context.Context, db ir.Database) error {
	for _, name := range db.Names() {
		if err := s.loadRelation(ctx, db[name]); err != nil {
			return fmt.Errorf("load %s: %w", name, err)
		}
	}
	return nil
}

func (s *Store) loadRelation(ctx context.Context, r *ir.Relation) error {
	if len(r.Schema) != 2 {
		return ir.NewConfigError(ir.CodeArity, "relation %s has arity %d, want 2", r.Name, len(r.Schema)).WithRelation(r.Name)
	}
	table := quoteIdent(r.Name)
	a1, a2 := quoteIdent(string(r.Schema[0])), quoteIdent(string(r.Schema[1]))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmts := []string{
		fmt.Sprintf("DROP TABLE IF EXISTS %s", table),
		fmt.Sprintf("CREATE TABLE %s (%s INTEGER NOT NULL, %s INTEGER NOT NULL, PRIMARY KEY (%s, %s)) WITHOUT ROWID",
			table, a1, a2, a1, a2),
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	ins, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (%s, %s) VALUES (?, ?) ON CONFLICT DO NOTHING", table, a1, a2))
	if err != nil {
		return err
	}
	defer ins.Close()
	for _, t := range r.Tuples {
		if _, err := ins.ExecContext(ctx, t[0], t[1]); err != nil {
			return err
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO relations (name, attr1, attr2, size)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET attr1 = excluded.attr1, attr2 = excluded.attr2, size = excluded.size
	`, r.Name, string(r.Schema[0]), string(r.Schema[1]), len(r.Tuples))
	if err != nil {
		return err
	}
	return tx.Commit()
}
