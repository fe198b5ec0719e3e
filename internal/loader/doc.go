// Package loader reads relation instances from CSV files.
//
// Each relation lives in <name>.csv. The first row is a header naming the
// relation's two attributes, in any column order; every following row holds
// one tuple of base-10 int64 values. Extra columns are ignored and
// duplicate tuples collapse.
package loader
