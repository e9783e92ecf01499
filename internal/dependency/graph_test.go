package dependency

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func linearGraph() *Graph {
	g := New()
	g.AddNode(Node{ID: "a", Kind: KindComputeFn})
	g.AddNode(Node{ID: "b", Kind: KindDocTable})
	g.AddNode(Node{ID: "c", Kind: KindQueue})
	// a depends on b, b depends on c.
	_ = g.AddEdge(Edge{Source: "a", Target: "b", Kind: EdgeDataDependency})
	_ = g.AddEdge(Edge{Source: "b", Target: "c", Kind: EdgeDataDependency})
	return g
}

func TestTopologicalSort_DAG_OrdersDependenciesFirst(t *testing.T) {
	g := linearGraph()
	order := g.TopologicalSort()
	require.Len(t, order, 3)

	index := map[NodeID]int{}
	for i, id := range order {
		index[id] = i
	}
	assert.Less(t, index["c"], index["b"])
	assert.Less(t, index["b"], index["a"])
}

func TestTopologicalSort_TiesBrokenByID(t *testing.T) {
	g := New()
	g.AddNode(Node{ID: "z"})
	g.AddNode(Node{ID: "y"})
	g.AddNode(Node{ID: "x"})
	order := g.TopologicalSort()
	assert.Equal(t, []NodeID{"x", "y", "z"}, order)
}

func TestDetectCycles_NoneOnDAG(t *testing.T) {
	g := linearGraph()
	assert.Empty(t, g.DetectCycles())
}

func TestDetectCycles_FindsCycle(t *testing.T) {
	g := New()
	g.AddNode(Node{ID: "a"})
	g.AddNode(Node{ID: "b"})
	g.AddNode(Node{ID: "c"})
	_ = g.AddEdge(Edge{Source: "a", Target: "b", Kind: EdgeDataDependency})
	_ = g.AddEdge(Edge{Source: "b", Target: "c", Kind: EdgeDataDependency})
	_ = g.AddEdge(Edge{Source: "c", Target: "a", Kind: EdgeDataDependency})

	cycles := g.DetectCycles()
	require.NotEmpty(t, cycles)

	// topological sort on a cyclic graph returns only the acyclic prefix.
	order := g.TopologicalSort()
	assert.Less(t, len(order), 3)
}

func TestAddEdge_RejectsSelfLoop(t *testing.T) {
	g := New()
	g.AddNode(Node{ID: "a"})
	err := g.AddEdge(Edge{Source: "a", Target: "a", Kind: EdgeDataDependency})
	require.Error(t, err)
	var selfLoop *SelfLoopError
	assert.ErrorAs(t, err, &selfLoop)
}

func TestAddEdge_RejectsUnknownNode(t *testing.T) {
	g := New()
	g.AddNode(Node{ID: "a"})
	err := g.AddEdge(Edge{Source: "a", Target: "missing", Kind: EdgeDataDependency})
	require.Error(t, err)
	var unknown *UnknownNodeError
	assert.ErrorAs(t, err, &unknown)
}

func TestDependenciesAndDependentsOf(t *testing.T) {
	g := linearGraph()
	assert.Equal(t, []NodeID{"b"}, g.DependenciesOf("a"))
	assert.Equal(t, []NodeID{"a"}, g.DependentsOf("b"))
	assert.Empty(t, g.DependenciesOf("c"))
}

func TestBuild_InfersDataDependencyFromEnvVar(t *testing.T) {
	g := Build([]ResourceSpec{
		{ID: "orders-table", Kind: KindDocTable},
		{ID: "create-order-fn", Kind: KindComputeFn, EnvVars: map[string]string{
			"TABLE_NAME": "orders-table",
		}},
	})
	assert.Equal(t, []NodeID{"orders-table"}, g.DependenciesOf("create-order-fn"))
}

func TestBuild_DropsUnmatchedReferencesSilently(t *testing.T) {
	g := Build([]ResourceSpec{
		{ID: "fn", Kind: KindComputeFn, EnvVars: map[string]string{"X": "does-not-exist"}},
	})
	assert.Empty(t, g.DependenciesOf("fn"))
}
