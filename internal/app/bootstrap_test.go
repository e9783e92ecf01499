package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"lwsgo/internal/config"
)

func modelFor(t *testing.T, yaml string) *config.DeploymentModel {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	model, err := config.LoadDeploymentModel(path)
	require.NoError(t, err)
	return model
}

func TestBootstrap_RegistersOneProviderPerKindPresent(t *testing.T) {
	cfg := config.DefaultRuntimeConfig()
	cfg.DataDir = t.TempDir()
	model := modelFor(t, `
resources:
  - id: ingest
    kind: compute-fn
  - id: inbox
    kind: queue
    depends_on: [ingest]
`)

	orch, backends, err := Bootstrap(cfg, model)
	require.NoError(t, err)
	require.NotNil(t, backends.Compute)
	require.NotNil(t, backends.Queue)
	require.Nil(t, backends.PubSub)

	names := make([]string, 0)
	for _, p := range orch.Registry().All() {
		names = append(names, p.Name())
	}
	require.ElementsMatch(t, []string{"compute", "queue"}, names)
}

func TestBootstrap_CreatesNamedFunctionsAndQueues(t *testing.T) {
	cfg := config.DefaultRuntimeConfig()
	cfg.DataDir = t.TempDir()
	model := modelFor(t, `
resources:
  - id: my-fn
    kind: compute-fn
    config:
      memory_limit_mb: 256
  - id: my-queue
    kind: queue
    config:
      fifo: true
`)

	_, backends, err := Bootstrap(cfg, model)
	require.NoError(t, err)

	_, err = backends.Compute.Invoke(context.Background(), "my-fn", nil, 0)
	require.Error(t, err, "no real handler was registered, so invoking returns an error rather than panicking")
}

func TestBootstrap_WiresWorkflowToComputeInvoker(t *testing.T) {
	cfg := config.DefaultRuntimeConfig()
	cfg.DataDir = t.TempDir()
	model := modelFor(t, `
resources:
  - id: fn
    kind: compute-fn
  - id: wf
    kind: workflow
    depends_on: [fn]
`)

	orch, backends, err := Bootstrap(cfg, model)
	require.NoError(t, err)
	require.NotNil(t, backends.Workflow)
	require.NoError(t, orch.StartAll())
	defer orch.StopAll()
}

func TestBootstrap_RejectsInvalidModel(t *testing.T) {
	cfg := config.DefaultRuntimeConfig()
	cfg.DataDir = t.TempDir()
	model := &config.DeploymentModel{
		Resources: []config.ResourceConfig{{ID: "x", Kind: "not-a-kind"}},
	}
	_, _, err := Bootstrap(cfg, model)
	require.Error(t, err)
}
