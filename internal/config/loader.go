package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"lwsgo/pkg/logging"
)

const envPrefix = "LWSGO_"

// Load builds a RuntimeConfig by layering, in increasing priority:
// DefaultRuntimeConfig, an optional YAML file at path (ignored if path is
// empty or the file doesn't exist), then LWSGO_-prefixed environment
// variables. It returns a validated config or the first ValidationError
// encountered.
func Load(path string) (RuntimeConfig, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(DefaultRuntimeConfig(), "koanf"), nil); err != nil {
		return RuntimeConfig{}, fmt.Errorf("config: loading defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			logging.Warn("Config", "no config file loaded from %s: %v", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envTransformFunc), nil); err != nil {
		return RuntimeConfig{}, fmt.Errorf("config: loading environment: %w", err)
	}

	var cfg RuntimeConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return RuntimeConfig{}, fmt.Errorf("config: unmarshalling: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return RuntimeConfig{}, err
	}
	return cfg, nil
}

// envTransformFunc maps LWSGO_DATA_DIR -> data_dir, LWSGO_LOG_LEVEL ->
// log_level, matching the koanf struct tags in RuntimeConfig.
func envTransformFunc(s string) string {
	trimmed := strings.TrimPrefix(s, envPrefix)
	return strings.ToLower(trimmed)
}

// LoadDeploymentModel parses a deployment model YAML file into a
// DeploymentModel. Deployment models are not environment-overridable —
// they describe the resource topology, not runtime tuning — so this is a
// single-layer load, unlike Load.
func LoadDeploymentModel(path string) (*DeploymentModel, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("config: loading deployment model %s: %w", path, err)
	}
	var model DeploymentModel
	if err := k.Unmarshal("", &model); err != nil {
		return nil, fmt.Errorf("config: unmarshalling deployment model: %w", err)
	}
	return &model, nil
}

// WatchDeploymentModel invokes onChange every time the file at path is
// modified on disk, so a caller can rebuild its graph and re-wire
// providers on edit instead of requiring a restart. The caller is
// responsible for synchronizing access to whatever it stores the reloaded
// model into; onChange may run from a goroutine the file watcher owns.
func WatchDeploymentModel(path string, onChange func(*DeploymentModel, error)) error {
	provider := file.Provider(path)
	return provider.Watch(func(event interface{}, err error) {
		if err != nil {
			onChange(nil, fmt.Errorf("config: watch %s: %w", path, err))
			return
		}
		model, loadErr := LoadDeploymentModel(path)
		onChange(model, loadErr)
	})
}
