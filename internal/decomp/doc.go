// Package decomp evaluates a join along a static hypertree decomposition.
//
// A decomposition is a tree of bags. Each bag has a variable set χ and a
// relation set λ whose schemas lie inside χ. Compile checks the tree and
// precompiles every bag into a join.Scope; a Walker then evaluates it
// lazily:
//
//  1. The root bag is joined once with no constraints.
//  2. Each child bag is joined under the assignment inherited from its
//     ancestors, so it only sees values compatible with the parent row.
//     Rows that disagree with the inherited assignment on a shared
//     variable are discarded.
//  3. A bag's subtree contributes extensions: bindings for the variables
//     it introduces below its ancestors. Children are independent given
//     the parent row, so their extensions combine as a cross product, and
//     a child with no extension rejects the parent row.
//  4. A combined assignment is emitted once it covers every query
//     attribute. Compile rejects trees whose bags do not jointly cover the
//     query, so every root row that survives its subtrees is emitted.
//
// Results are de-duplicated. For a tree that satisfies the connectedness
// condition (the bags containing any one variable form a connected
// subtree) the output equals the flat generic join of the same query.
//
// # Caching
//
// A child subtree's extensions depend only on the values its ancestors
// bind for variables that also occur in the subtree. The walker memoizes
// them per (bag, those values) in a bounded LRU, so parent rows that differ
// only in unrelated variables share one evaluation.
//
// # Concurrency
//
// A Tree is immutable. A Walker may be used from several goroutines; its
// cache is safe for concurrent use. With WithWorkers the root rows are
// partitioned across an errgroup.
package decomp
