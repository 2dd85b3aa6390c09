package engine

import (
	"sort"

	"github.com/roach88/statmap/internal/formula"
	"github.com/roach88/statmap/internal/indicator"
)

// dependencyGraph maps a composite indicator name to the composite
// indicators its formula references.
type dependencyGraph map[string][]string

// DerivationOrder returns the composite indicators among all in the order
// they must be derived: every composite comes after the composites its
// formula references. Independent composites keep name order.
//
// Returns a cycle error (see IsCycleError) when formulas reference each
// other in a loop, including a formula that references its own indicator.
func DerivationOrder(all []indicator.Indicator, runID string) ([]indicator.Indicator, error) {
	composites := make(map[string]indicator.Indicator)
	for _, ind := range all {
		if ind.IsComposite() {
			composites[ind.Name] = ind
		}
	}

	graph := buildDependencyGraph(composites)
	nodes := make([]string, 0, len(graph))
	for name := range graph {
		nodes = append(nodes, name)
	}
	sort.Strings(nodes)

	// Tarjan emits each component after every component it depends on, which
	// is exactly derivation order.
	sccs := tarjanSCC(graph, nodes)

	order := make([]indicator.Indicator, 0, len(sccs))
	for _, scc := range sccs {
		if len(scc) > 1 || hasSelfLoop(scc[0], graph) {
			return nil, NewCycleError(runID, reconstructCyclePath(scc, graph))
		}
		order = append(order, composites[scc[0]])
	}
	return order, nil
}

func buildDependencyGraph(composites map[string]indicator.Indicator) dependencyGraph {
	graph := make(dependencyGraph, len(composites))
	for name, ind := range composites {
		// Ensure the node exists even without composite dependencies
		graph[name] = []string{}
		for _, ref := range formula.Parse(ind.Formula).References() {
			ref = indicator.NormalizeName(ref)
			if _, ok := composites[ref]; ok {
				graph[name] = append(graph[name], ref)
			}
		}
	}
	return graph
}

// hasSelfLoop checks if a node has an edge to itself.
func hasSelfLoop(node string, graph dependencyGraph) bool {
	for _, neighbor := range graph[node] {
		if neighbor == node {
			return true
		}
	}
	return false
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm,
// visiting roots in the given node order.
func tarjanSCC(graph dependencyGraph, nodes []string) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// v is a root node: pop the stack to form an SCC
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
			sccs = append(sccs, scc)
		}
	}

	for _, node := range nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}
	return sccs
}

// reconstructCyclePath follows edges inside an SCC from its alphabetically
// first member until it returns there. A self-loop yields [name, name].
func reconstructCyclePath(scc []string, graph dependencyGraph) []string {
	members := make(map[string]bool, len(scc))
	start := scc[0]
	for _, node := range scc {
		members[node] = true
		if node < start {
			start = node
		}
	}

	path := []string{start}
	visited := make(map[string]bool)
	current := start
	for {
		visited[current] = true

		var next string
		for _, neighbor := range graph[current] {
			if members[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}
		if next == "" {
			break
		}

		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}
	return path
}
