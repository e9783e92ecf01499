package config

import (
	"testing"

	"github.com/stretchr/testify/require"

	"lwsgo/internal/dependency"
)

func TestBuildGraph_RejectsUnknownKind(t *testing.T) {
	_, err := BuildGraph(&DeploymentModel{
		Resources: []ResourceConfig{{ID: "fn", Kind: "not-a-kind"}},
	})
	require.Error(t, err)
}

func TestBuildGraph_RejectsDuplicateID(t *testing.T) {
	_, err := BuildGraph(&DeploymentModel{
		Resources: []ResourceConfig{
			{ID: "fn", Kind: "compute-fn"},
			{ID: "fn", Kind: "queue"},
		},
	})
	require.Error(t, err)
}

func TestBuildGraph_RejectsUnknownDependsOn(t *testing.T) {
	_, err := BuildGraph(&DeploymentModel{
		Resources: []ResourceConfig{
			{ID: "fn", Kind: "compute-fn", DependsOn: []string{"ghost"}},
		},
	})
	require.Error(t, err)
}

func TestBuildGraph_WiresExplicitDependsOnEdges(t *testing.T) {
	graph, err := BuildGraph(&DeploymentModel{
		Resources: []ResourceConfig{
			{ID: "fn", Kind: "compute-fn"},
			{ID: "q", Kind: "queue", DependsOn: []string{"fn"}},
		},
	})
	require.NoError(t, err)
	require.Equal(t, []dependency.NodeID{"fn"}, graph.DependenciesOf("q"))
}

func TestBuildGraph_IgnoresSelfDependsOn(t *testing.T) {
	graph, err := BuildGraph(&DeploymentModel{
		Resources: []ResourceConfig{
			{ID: "fn", Kind: "compute-fn", DependsOn: []string{"fn"}},
		},
	})
	require.NoError(t, err)
	require.Empty(t, graph.DependenciesOf("fn"))
}

func TestRuntimeConfig_ValidateRejectsBadPort(t *testing.T) {
	cfg := DefaultRuntimeConfig()
	cfg.Port = 0
	require.Error(t, cfg.Validate())
}

func TestRuntimeConfig_ValidateRejectsUnknownLogLevel(t *testing.T) {
	cfg := DefaultRuntimeConfig()
	cfg.LogLevel = "verbose"
	require.Error(t, cfg.Validate())
}

func TestRuntimeConfig_ValidateAcceptsDefaults(t *testing.T) {
	require.NoError(t, DefaultRuntimeConfig().Validate())
}
