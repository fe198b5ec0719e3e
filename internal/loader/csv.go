package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/roach88/hyperjoin/internal/ir"
)

// Ext is the file extension of relation files.
const Ext = ".csv"

// LoadError reports a problem with one relation file.
type LoadError struct {
	File string
	// Line is 1-based; zero when the error is not tied to a line.
	Line    int
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.File, e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// LoadDir loads every relation of q from dir.
func LoadDir(dir string, q *ir.QuerySpec) (ir.Database, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("data directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("data path %s is not a directory", dir)
	}

	db := make(ir.Database, len(q.Relations))
	for _, rs := range q.Relations {
		r, err := LoadFile(filepath.Join(dir, rs.Name+Ext), rs.Name, rs.Attributes)
		if err != nil {
			return nil, err
		}
		db[rs.Name] = r
	}
	return db, nil
}

// LoadFile loads one relation file.
func LoadFile(path, name string, schema []ir.Attribute) (*ir.Relation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{File: path, Message: "cannot open relation file", Err: err}
	}
	defer f.Close()

	r, err := LoadCSV(f, name, schema)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			le.File = path
		}
		return nil, err
	}
	return r, nil
}

// LoadCSV reads a relation with the given binary schema from r. Errors are
// *LoadError values naming name as the file.
func LoadCSV(r io.Reader, name string, schema []ir.Attribute) (*ir.Relation, error) {
	if len(schema) != 2 {
		return nil, ir.NewConfigError(ir.CodeArity, "relation %s has arity %d, want 2", name, len(schema)).WithRelation(name)
	}

	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, &LoadError{File: name, Line: 1, Message: "missing header row"}
	}
	if err != nil {
		return nil, csvError(name, err)
	}
	cols, err := headerColumns(header, schema)
	if err != nil {
		return nil, &LoadError{File: name, Line: 1, Message: err.Error()}
	}

	var tuples []ir.Tuple
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, csvError(name, err)
		}
		line, _ := cr.FieldPos(0)
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}

		var t ir.Tuple
		for i, c := range cols {
			if c >= len(rec) {
				return nil, &LoadError{File: name, Line: line, Message: fmt.Sprintf("missing value for %s", schema[i])}
			}
			v, err := strconv.ParseInt(strings.TrimSpace(rec[c]), 10, 64)
			if err != nil {
				return nil, &LoadError{
					File:    name,
					Line:    line,
					Message: fmt.Sprintf("value %q for %s is not an integer", rec[c], schema[i]),
					Err:     err,
				}
			}
			t[i] = v
		}
		tuples = append(tuples, t)
	}
	return ir.NewRelation(name, schema, tuples...), nil
}

// headerColumns maps each schema attribute to its column in header.
func headerColumns(header []string, schema []ir.Attribute) ([2]int, error) {
	cols := [2]int{-1, -1}
	for c, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		for i, a := range schema {
			if h != string(a) {
				continue
			}
			if cols[i] >= 0 {
				return cols, fmt.Errorf("column %s appears twice", a)
			}
			cols[i] = c
		}
	}
	for i, a := range schema {
		if cols[i] < 0 {
			return cols, fmt.Errorf("missing column %s", a)
		}
	}
	return cols, nil
}

func csvError(name string, err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &LoadError{File: name, Line: pe.Line, Message: pe.Err.Error(), Err: err}
	}
	return &LoadError{File: name, Message: err.Error(), Err: err}
}

// WriteCSV writes rel in the format LoadCSV reads.
func WriteCSV(w io.Writer, rel *ir.Relation) error {
	cw := csv.NewWriter(w)
	header := make([]string, len(rel.Schema))
	for i, a := range rel.Schema {
		header[i] = string(a)
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, t := range rel.Tuples {
		if err := cw.Write([]string{strconv.FormatInt(t[0], 10), strconv.FormatInt(t[1], 10)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteDir writes every relation of db to dir as <name>.csv.
func WriteDir(dir string, db ir.Database) error {
	for _, name := range db.Names() {
		f, err := os.Create(filepath.Join(dir, name+Ext))
		if err != nil {
			return err
		}
		if err := WriteCSV(f, db[name]); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	return nil
}
