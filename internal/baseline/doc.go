// Package baseline holds reference join algorithms.
//
// NestedLoopJoin is the brute-force natural join used as ground truth when
// testing the generic join and the decomposition walker. The line-query
// algorithms (HashJoin, LineJoin, RemoveDangling) are the classical pairwise
// strategies the generic join is benchmarked against; they only handle
// chains R1(A1,A2) ⋈ R2(A2,A3) ⋈ ... where each relation's second attribute
// joins the next relation's first.
//
// None of these algorithms use the index package; they read ir relations
// directly so that a bug in the index cannot hide behind a matching oracle.
package baseline
