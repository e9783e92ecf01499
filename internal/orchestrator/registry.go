// Package orchestrator wires the provider emulators together: it starts and
// stops them in dependency order, cross-references them after start so they
// can call into one another (compute invoking a workflow task, pubsub
// delivering into a queue), and aggregates their health.
package orchestrator

import (
	"fmt"
	"sort"
	"sync"
)

// Provider is anything the orchestrator can start, stop and health-check.
// Name must be stable and match the node id used when the provider is wired
// into the dependency graph.
type Provider interface {
	Name() string
	Start() error
	Stop() error
	Healthy() error
}

// Wirer is implemented by providers that need a reference to the registry
// once every provider has been registered, to resolve cross-provider
// collaborators (e.g. pubsub resolving its compute invoker). PostWire runs
// once per StartAll, after StartAll has started every provider.
type Wirer interface {
	PostWire(reg *Registry) error
}

// Resettable is implemented by providers that can clear their in-memory
// state back to empty without a full process restart.
type Resettable interface {
	Reset() error
}

// Registry is a name-keyed set of providers, guarded for concurrent access
// from the orchestrator's lifecycle methods and from callers inspecting
// individual providers by name (e.g. an HTTP handler resolving "the queue
// provider" to build a response).
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds a provider under its own Name(). It is an error to register
// a nil provider, one with an empty name, or a duplicate name.
func (r *Registry) Register(p Provider) error {
	if p == nil {
		return fmt.Errorf("orchestrator: cannot register a nil provider")
	}
	name := p.Name()
	if name == "" {
		return fmt.Errorf("orchestrator: provider name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.providers[name]; exists {
		return fmt.Errorf("orchestrator: provider %q is already registered", name)
	}
	r.providers[name] = p
	return nil
}

// Get returns the provider registered under name, if any.
func (r *Registry) Get(name string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	return p, ok
}

// All returns every registered provider, ordered by name for deterministic
// iteration (health reports, listings).
func (r *Registry) All() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]Provider, 0, len(names))
	for _, name := range names {
		out = append(out, r.providers[name])
	}
	return out
}
