package index

import "slices"

// ValueSet is a sorted, duplicate-free set of values.
//
// ValueSets handed out by an Index are shared by every reader and must not
// be modified.
type ValueSet []int64

// NewValueSet sorts and de-duplicates vals in place.
func NewValueSet(vals ...int64) ValueSet {
	slices.Sort(vals)
	return ValueSet(slices.Compact(vals))
}

// Len returns the number of values.
func (s ValueSet) Len() int {
	return len(s)
}

// Contains reports whether v is in the set.
func (s ValueSet) Contains(v int64) bool {
	_, found := slices.BinarySearch(s, v)
	return found
}

// gallopRatio is the size ratio beyond which Intersect probes the larger
// set by binary search instead of merging.
const gallopRatio = 16

// Intersect appends s ∩ other to dst and returns it. The result is sorted.
func (s ValueSet) Intersect(other ValueSet, dst ValueSet) ValueSet {
	small, large := s, other
	if len(small) > len(large) {
		small, large = large, small
	}
	if len(small) == 0 {
		return dst
	}
	if len(large) >= gallopRatio*len(small) {
		lo := 0
		for _, v := range small {
			i, found := slices.BinarySearch(large[lo:], v)
			lo += i
			if found {
				dst = append(dst, v)
				lo++
			}
			if lo >= len(large) {
				break
			}
		}
		return dst
	}
	i, j := 0, 0
	for i < len(small) && j < len(large) {
		switch {
		case small[i] < large[j]:
			i++
		case small[i] > large[j]:
			j++
		default:
			dst = append(dst, small[i])
			i++
			j++
		}
	}
	return dst
}
