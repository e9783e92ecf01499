package dependency

import "sort"

// TopologicalSort orders nodes so that, for every data-dependency edge
// (u -> v) meaning "u depends on v", v appears before u in the returned
// slice. Ties are broken by node id for determinism (Kahn's algorithm,
// smallest-id-first among ready nodes).
//
// For a DAG the returned slice contains every node id exactly once. If the
// graph has a cycle, the returned slice is a prefix: the acyclic portion
// that could be ordered before the algorithm ran out of zero-in-degree
// nodes. Callers that need to know whether the graph is acyclic should
// compare len(result) == len(g.Nodes()), or call DetectCycles.
func (g *Graph) TopologicalSort() []NodeID {
	// in-degree counts "depends-on" edges pointing away from a node that
	// have not yet been satisfied: a node is ready once every node it
	// depends on has already been placed.
	remaining := make(map[NodeID]map[NodeID]struct{}, len(g.nodes))
	for id := range g.nodes {
		deps := g.DependenciesOf(id)
		set := make(map[NodeID]struct{}, len(deps))
		for _, d := range deps {
			set[d] = struct{}{}
		}
		remaining[id] = set
	}

	placed := make(map[NodeID]struct{}, len(g.nodes))
	var order []NodeID

	for len(placed) < len(g.nodes) {
		var ready []NodeID
		for id, deps := range remaining {
			if _, done := placed[id]; done {
				continue
			}
			if allSatisfied(deps, placed) {
				ready = append(ready, id)
			}
		}
		if len(ready) == 0 {
			break // cycle: return the acyclic prefix
		}
		sort.Slice(ready, func(i, j int) bool { return ready[i] < ready[j] })
		for _, id := range ready {
			placed[id] = struct{}{}
			order = append(order, id)
		}
	}
	return order
}

func allSatisfied(deps map[NodeID]struct{}, placed map[NodeID]struct{}) bool {
	for d := range deps {
		if _, ok := placed[d]; !ok {
			return false
		}
	}
	return true
}

type colour int

const (
	white colour = iota // unvisited
	grey                // on stack
	black               // done
)

// DetectCycles walks every data-dependency edge with tri-colour DFS marking
// (white/grey/black) and returns every cycle found, each as the slice of
// node ids from the back-edge's target around to its source. A nil/empty
// result means the data-dependency subgraph is acyclic.
func (g *Graph) DetectCycles() [][]NodeID {
	colours := make(map[NodeID]colour, len(g.nodes))
	var stack []NodeID
	var cycles [][]NodeID

	var visit func(id NodeID)
	visit = func(id NodeID) {
		colours[id] = grey
		stack = append(stack, id)
		for _, next := range g.DependenciesOf(id) {
			switch colours[next] {
			case white:
				visit(next)
			case grey:
				// back-edge: extract the cycle from the stack.
				cycles = append(cycles, cycleFrom(stack, next))
			case black:
				// already fully explored, no cycle through here.
			}
		}
		stack = stack[:len(stack)-1]
		colours[id] = black
	}

	for _, id := range g.Nodes() {
		if colours[id] == white {
			visit(id)
		}
	}
	return cycles
}

func cycleFrom(stack []NodeID, target NodeID) []NodeID {
	for i, id := range stack {
		if id == target {
			cycle := make([]NodeID, len(stack)-i)
			copy(cycle, stack[i:])
			return cycle
		}
	}
	return []NodeID{target}
}
