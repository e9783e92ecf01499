package config

import (
	"fmt"

	"lwsgo/internal/dependency"
)

// RuntimeConfig is the minimal, environment-driven configuration the
// process needs before it can even load a deployment model: where to put
// on-disk state, what port to listen on, and how loud to log. Everything
// else about the emulated resources comes from a DeploymentModel.
type RuntimeConfig struct {
	DataDir  string `koanf:"data_dir"`
	Port     int    `koanf:"port"`
	Region   string `koanf:"region"`
	Account  string `koanf:"account_id"`
	LogLevel string `koanf:"log_level"`
}

// Validate rejects a RuntimeConfig that can't be used to boot.
func (c RuntimeConfig) Validate() error {
	if c.DataDir == "" {
		return &ValidationError{Field: "data_dir", Reason: "must not be empty"}
	}
	if c.Port <= 0 || c.Port > 65535 {
		return &ValidationError{Field: "port", Reason: fmt.Sprintf("must be between 1 and 65535, got %d", c.Port)}
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return &ValidationError{Field: "log_level", Reason: fmt.Sprintf("unrecognized level %q", c.LogLevel)}
	}
	return nil
}

// ResourceConfig is one resource entry in a deployment model file. Kind is
// a string here (rather than dependency.NodeKind) because it comes
// straight off the wire — koanf/yaml decode into primitives, and the
// translation to a typed NodeKind happens in kindFromString.
type ResourceConfig struct {
	ID           string            `koanf:"id"`
	Kind         string            `koanf:"kind"`
	DependsOn    []string          `koanf:"depends_on"`
	EnvVars      map[string]string `koanf:"env"`
	RouteTarget  string            `koanf:"route_target"`
	EventSources []string          `koanf:"event_sources"`
	Config       map[string]any    `koanf:"config"`
}

// DeploymentModel is the parsed, still-untranslated deployment file: a
// flat list of resources. BuildGraph turns it into the dependency graph
// the orchestrator actually schedules from.
type DeploymentModel struct {
	Resources []ResourceConfig `koanf:"resources"`
}

var kindByName = map[string]dependency.NodeKind{
	"compute-fn":        dependency.KindComputeFn,
	"doc-table":         dependency.KindDocTable,
	"http-route-set":    dependency.KindHTTPRouteSet,
	"queue":             dependency.KindQueue,
	"object-bucket":     dependency.KindObjectBucket,
	"pubsub-topic":      dependency.KindPubSubTopic,
	"event-bus":         dependency.KindEventBus,
	"workflow":          dependency.KindWorkflow,
	"container-service": dependency.KindContainerService,
}

// BuildGraph translates a parsed deployment model into a dependency.Graph:
// one node per resource (inference of edges from env vars, route targets
// and event sources is dependency.Build's job), plus an explicit
// data-dependency edge for every depends_on entry a resource names. Unlike
// the name-matching inference dependency.Build does, depends_on is an
// authored reference and an unresolved one is a configuration error, not
// something to silently drop.
func BuildGraph(m *DeploymentModel) (*dependency.Graph, error) {
	specs := make([]dependency.ResourceSpec, 0, len(m.Resources))
	seen := make(map[string]bool, len(m.Resources))
	for _, r := range m.Resources {
		if r.ID == "" {
			return nil, &ValidationError{Field: "resources[].id", Reason: "must not be empty"}
		}
		kind, ok := kindByName[r.Kind]
		if !ok {
			return nil, &ValidationError{Field: "resources[].kind", Reason: fmt.Sprintf("resource %q: unrecognized kind %q", r.ID, r.Kind)}
		}
		if seen[r.ID] {
			return nil, &ValidationError{Field: "resources[].id", Reason: fmt.Sprintf("duplicate resource id %q", r.ID)}
		}
		seen[r.ID] = true
		specs = append(specs, dependency.ResourceSpec{
			ID:           dependency.NodeID(r.ID),
			Kind:         kind,
			Config:       r.Config,
			EnvVars:      r.EnvVars,
			RouteTarget:  r.RouteTarget,
			EventSources: r.EventSources,
		})
	}

	graph := dependency.Build(specs)

	for _, r := range m.Resources {
		for _, dep := range r.DependsOn {
			if !seen[dep] {
				return nil, &ValidationError{Field: "resources[].depends_on", Reason: fmt.Sprintf("resource %q depends on unknown resource %q", r.ID, dep)}
			}
			if dep == r.ID {
				continue
			}
			if err := graph.AddEdge(dependency.Edge{
				Source: dependency.NodeID(r.ID),
				Target: dependency.NodeID(dep),
				Kind:   dependency.EdgeDataDependency,
			}); err != nil {
				return nil, err
			}
		}
	}

	return graph, nil
}
