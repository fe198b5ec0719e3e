package baseline

import (
	"slices"

	"github.com/roach88/hyperjoin/internal/ir"
)

// Triple is one row of a two-relation join on left.second = right.first.
type Triple [3]int64

// HashJoin joins left and right on left's second column and right's first.
// It builds a hash table on right and probes it with every tuple of left.
// Output follows left's tuple order, then right's.
func HashJoin(left, right *ir.Relation) []Triple {
	build := make(map[int64][]int64, len(right.Tuples))
	for _, t := range right.Tuples {
		build[t[0]] = append(build[t[0]], t[1])
	}
	var out []Triple
	for _, t := range left.Tuples {
		for _, c := range build[t[1]] {
			out = append(out, Triple{t[0], t[1], c})
		}
	}
	return out
}

// LineJoin evaluates the line query rels[0] ⋈ rels[1] ⋈ ... left to right,
// hashing the running result on its last column and each next relation on
// its first. Rows have len(rels)+1 columns. An empty intermediate result
// ends the join with no rows.
func LineJoin(rels []*ir.Relation) []ir.Row {
	if len(rels) == 0 {
		return nil
	}
	cur := make([]ir.Row, 0, len(rels[0].Tuples))
	for _, t := range rels[0].Tuples {
		cur = append(cur, ir.Row{t[0], t[1]})
	}
	for _, rel := range rels[1:] {
		if len(cur) == 0 {
			return nil
		}
		build := make(map[int64][]int64, len(rel.Tuples))
		for _, t := range rel.Tuples {
			build[t[0]] = append(build[t[0]], t[1])
		}
		var next []ir.Row
		for _, r := range cur {
			for _, c := range build[r[len(r)-1]] {
				n := make(ir.Row, len(r)+1)
				copy(n, r)
				n[len(r)] = c
				next = append(next, n)
			}
		}
		cur = next
	}
	return cur
}

// RemoveDangling evaluates the same line query as LineJoin in two phases.
// A right-to-left semi-join pass drops every tuple with no continuation,
// then a left-to-right pass drops every tuple with no predecessor. The
// enumeration that follows never extends a partial row that cannot
// complete, so its work is proportional to the output.
func RemoveDangling(rels []*ir.Relation) []ir.Row {
	if len(rels) == 0 {
		return nil
	}
	reduced := make([][]ir.Tuple, len(rels))
	for i, r := range rels {
		reduced[i] = slices.Clone(r.Tuples)
	}

	for i := len(reduced) - 2; i >= 0; i-- {
		firsts := firstColumn(reduced[i+1])
		reduced[i] = slices.DeleteFunc(reduced[i], func(t ir.Tuple) bool { return !firsts[t[1]] })
	}
	for i := 1; i < len(reduced); i++ {
		seconds := make(map[int64]bool, len(reduced[i-1]))
		for _, t := range reduced[i-1] {
			seconds[t[1]] = true
		}
		reduced[i] = slices.DeleteFunc(reduced[i], func(t ir.Tuple) bool { return !seconds[t[0]] })
	}

	next := make([]map[int64][]int64, len(reduced))
	for i := 1; i < len(reduced); i++ {
		next[i] = make(map[int64][]int64, len(reduced[i]))
		for _, t := range reduced[i] {
			next[i][t[0]] = append(next[i][t[0]], t[1])
		}
	}

	var out []ir.Row
	row := make(ir.Row, len(rels)+1)
	var extend func(i int)
	extend = func(i int) {
		if i == len(rels) {
			out = append(out, slices.Clone(row))
			return
		}
		for _, c := range next[i][row[i]] {
			row[i+1] = c
			extend(i + 1)
		}
	}
	for _, t := range reduced[0] {
		row[0], row[1] = t[0], t[1]
		extend(1)
	}
	return out
}

func firstColumn(ts []ir.Tuple) map[int64]bool {
	m := make(map[int64]bool, len(ts))
	for _, t := range ts {
		m[t[0]] = true
	}
	return m
}
