package compiler

import (
	"fmt"

	"cuelang.org/go/cue"

	"github.com/roach88/hyperjoin/internal/ir"
)

// Config is a compiled configuration file set.
type Config struct {
	Query *ir.QuerySpec

	// Decomposition is nil when the configuration declares none.
	Decomposition *ir.DecompositionSpec
}

// CompileConfig compiles the top-level value of a configuration:
//
//	query: {
//		attributes: ["A1", "A2", "A3"]
//		relations: {
//			R1: ["A1", "A2"]
//			R2: ["A2", "A3"]
//		}
//	}
//	decomposition: {
//		root: "B1"
//		bags: {
//			B1: {chi: ["A1", "A2"], lambda: ["R1"], children: ["B2"]}
//			B2: {chi: ["A2", "A3"], lambda: ["R2"]}
//		}
//	}
//
// query is required and decomposition is optional. Only the shape is
// checked here; ir.QuerySpec.Validate and decomp.Compile check meaning.
func CompileConfig(v cue.Value) (*Config, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	qv := v.LookupPath(cue.ParsePath("query"))
	if !qv.Exists() {
		return nil, &CompileError{Field: "query", Message: "query is required", Pos: v.Pos()}
	}
	q, err := CompileQuery(qv)
	if err != nil {
		return nil, err
	}
	cfg := &Config{Query: q}

	dv := v.LookupPath(cue.ParsePath("decomposition"))
	if dv.Exists() {
		d, err := CompileDecomposition(dv)
		if err != nil {
			return nil, err
		}
		cfg.Decomposition = d
	}
	return cfg, nil
}

// CompileQuery parses a query struct. Relations keep their declaration
// order.
func CompileQuery(v cue.Value) (*ir.QuerySpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	attrs, err := requiredStrings(v, "attributes", "query.attributes")
	if err != nil {
		return nil, err
	}
	q := &ir.QuerySpec{Attributes: toAttributes(attrs)}

	rv := v.LookupPath(cue.ParsePath("relations"))
	if !rv.Exists() {
		return nil, &CompileError{Field: "query.relations", Message: "relations are required", Pos: v.Pos()}
	}
	iter, err := rv.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		name := iter.Selector().Unquoted()
		field := "query.relations." + name
		schema, err := stringList(iter.Value(), field)
		if err != nil {
			return nil, err
		}
		if len(schema) != 2 {
			return nil, &CompileError{
				Field:   field,
				Message: fmt.Sprintf("relation must list exactly 2 attributes, got %d", len(schema)),
				Pos:     iter.Value().Pos(),
			}
		}
		q.Relations = append(q.Relations, ir.RelationSchema{Name: name, Attributes: toAttributes(schema)})
	}
	if len(q.Relations) == 0 {
		return nil, &CompileError{Field: "query.relations", Message: "at least one relation is required", Pos: rv.Pos()}
	}
	return q, nil
}

// CompileDecomposition parses a decomposition struct. Bags keep their
// declaration order; a bag's parent may be given explicitly or left to be
// derived from the children lists.
func CompileDecomposition(v cue.Value) (*ir.DecompositionSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	d := &ir.DecompositionSpec{}
	if rv := v.LookupPath(cue.ParsePath("root")); rv.Exists() {
		root, err := rv.String()
		if err != nil {
			return nil, &CompileError{Field: "decomposition.root", Message: "root must be a string", Pos: rv.Pos()}
		}
		d.Root = root
	}

	bv := v.LookupPath(cue.ParsePath("bags"))
	if !bv.Exists() {
		return nil, &CompileError{Field: "decomposition.bags", Message: "bags are required", Pos: v.Pos()}
	}
	iter, err := bv.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		b, err := compileBag(iter.Selector().Unquoted(), iter.Value())
		if err != nil {
			return nil, err
		}
		d.Bags = append(d.Bags, b)
	}
	if len(d.Bags) == 0 {
		return nil, &CompileError{Field: "decomposition.bags", Message: "at least one bag is required", Pos: bv.Pos()}
	}
	return d, nil
}

func compileBag(id string, v cue.Value) (ir.BagSpec, error) {
	prefix := "decomposition.bags." + id
	b := ir.BagSpec{ID: id}

	chi, err := requiredStrings(v, "chi", prefix+".chi")
	if err != nil {
		return b, err
	}
	b.Chi = toAttributes(chi)

	b.Lambda, err = requiredStrings(v, "lambda", prefix+".lambda")
	if err != nil {
		return b, err
	}

	if cv := v.LookupPath(cue.ParsePath("children")); cv.Exists() {
		b.Children, err = stringList(cv, prefix+".children")
		if err != nil {
			return b, err
		}
	}
	if pv := v.LookupPath(cue.ParsePath("parent")); pv.Exists() {
		b.Parent, err = pv.String()
		if err != nil {
			return b, &CompileError{Field: prefix + ".parent", Message: "parent must be a string", Pos: pv.Pos()}
		}
	}
	return b, nil
}

func requiredStrings(v cue.Value, name, field string) ([]string, error) {
	fv := v.LookupPath(cue.ParsePath(name))
	if !fv.Exists() {
		return nil, &CompileError{Field: field, Message: name + " is required", Pos: v.Pos()}
	}
	return stringList(fv, field)
}

// stringList reads a concrete list of strings.
func stringList(v cue.Value, field string) ([]string, error) {
	iter, err := v.List()
	if err != nil {
		return nil, &CompileError{Field: field, Message: "must be a list of strings", Pos: v.Pos()}
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, &CompileError{Field: field, Message: "must be a list of strings", Pos: iter.Value().Pos()}
		}
		out = append(out, s)
	}
	return out, nil
}

func toAttributes(ss []string) []ir.Attribute {
	out := make([]ir.Attribute, len(ss))
	for i, s := range ss {
		out[i] = ir.Attribute(s)
	}
	return out
}
