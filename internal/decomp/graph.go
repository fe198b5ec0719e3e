package decomp

import (
	"slices"
)

// childGraph maps a bag id to the ids it lists as children.
type childGraph map[string][]string

// findCycles returns every cycle in g as a closed path, for example
// ["B1", "B2", "B1"]. Nodes are visited in sorted order so the result is
// deterministic.
func findCycles(g childGraph) [][]string {
	var cycles [][]string
	for _, scc := range tarjanSCC(g) {
		if len(scc) > 1 || (len(scc) == 1 && slices.Contains(g[scc[0]], scc[0])) {
			cycles = append(cycles, cyclePath(scc, g))
		}
	}
	return cycles
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
func tarjanSCC(g childGraph) [][]string {
	var (
		next    = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = next
		lowlink[v] = next
		next++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range g[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			slices.Sort(scc)
			sccs = append(sccs, scc)
		}
	}

	nodes := make([]string, 0, len(g))
	for n := range g {
		nodes = append(nodes, n)
	}
	slices.Sort(nodes)
	for _, n := range nodes {
		if _, visited := indices[n]; !visited {
			strongConnect(n)
		}
	}
	return sccs
}

// cyclePath walks edges inside scc from its first member until it returns
// to the start.
func cyclePath(scc []string, g childGraph) []string {
	start := scc[0]
	cur := start
	path := []string{cur}
	visited := make(map[string]bool)
	for {
		visited[cur] = true
		next := ""
		for _, n := range g[cur] {
			if slices.Contains(scc, n) && (!visited[n] || n == start) {
				next = n
				break
			}
		}
		if next == "" {
			return path
		}
		path = append(path, next)
		if next == start {
			return path
		}
		cur = next
	}
}
