package orchestrator

import (
	"fmt"

	"lwsgo/internal/dependency"
	"lwsgo/pkg/logging"
)

// subsystem name used for every log line this package emits.
const subsystem = "Orchestrator"

// HealthReport is the aggregate health of every registered provider as of
// the moment HealthReport() was called.
type HealthReport struct {
	Healthy   bool
	Providers map[string]string // name -> "ok" or the error text
}

// Orchestrator owns the provider registry and the dependency graph that
// orders their lifecycle. Providers are registered once, up front; Start is
// called in dependency order and Stop in the reverse order.
type Orchestrator struct {
	registry *Registry
	graph    *dependency.Graph
	started  []string // names, in the order they were actually started; unwinds on failure
}

// New returns an orchestrator with an empty registry and graph.
func New() *Orchestrator {
	return &Orchestrator{
		registry: NewRegistry(),
		graph:    dependency.New(),
	}
}

// Registry exposes the underlying provider registry, e.g. for a compute
// handler that needs to resolve "the workflow engine" by name at invoke
// time.
func (o *Orchestrator) Registry() *Registry {
	return o.registry
}

// Register adds a provider to the orchestrator and records its dependency
// edges: dependsOn names must themselves already be (or later be)
// registered by the time StartAll runs. Register never starts the
// provider.
func (o *Orchestrator) Register(p Provider, dependsOn ...string) error {
	if err := o.registry.Register(p); err != nil {
		return err
	}
	o.graph.AddNode(dependency.Node{ID: dependency.NodeID(p.Name())})
	for _, dep := range dependsOn {
		o.graph.AddNode(dependency.Node{ID: dependency.NodeID(dep)})
		if err := o.graph.AddEdge(dependency.Edge{
			Source: dependency.NodeID(p.Name()),
			Target: dependency.NodeID(dep),
			Kind:   dependency.EdgeDataDependency,
		}); err != nil {
			return fmt.Errorf("orchestrator: wiring %s -> %s: %w", p.Name(), dep, err)
		}
	}
	return nil
}

// StartAll starts every provider in dependency order: a provider only
// starts once everything it depends on has already started successfully.
// Once every provider is running, it runs each registered provider's
// PostWire hook (if any). If any provider fails to start, or any PostWire
// hook fails, every provider already started is stopped again in reverse
// order and the error is returned — StartAll leaves the orchestrator
// either fully started or fully stopped, never half-up.
func (o *Orchestrator) StartAll() error {
	order := o.graph.TopologicalSort()
	if len(order) != len(o.graph.Nodes()) {
		cycles := o.graph.DetectCycles()
		return fmt.Errorf("orchestrator: dependency graph has a cycle: %v", cycles)
	}

	o.started = nil
	for _, id := range order {
		name := string(id)
		p, ok := o.registry.Get(name)
		if !ok {
			// a dependency edge named a node that was never registered as a
			// provider (e.g. an external resource referenced only for
			// graph bookkeeping); nothing to start.
			continue
		}
		if err := p.Start(); err != nil {
			logging.Error(subsystem, err, "failed to start provider %s", name)
			o.rollback()
			return fmt.Errorf("orchestrator: starting %s: %w", name, err)
		}
		logging.Info(subsystem, "started provider %s", name)
		o.started = append(o.started, name)
	}

	for _, p := range o.registry.All() {
		w, ok := p.(Wirer)
		if !ok {
			continue
		}
		if err := w.PostWire(o.registry); err != nil {
			o.rollback()
			return fmt.Errorf("orchestrator: post-wire %s: %w", p.Name(), err)
		}
	}
	return nil
}

// rollback stops every provider recorded in o.started, in reverse order,
// logging (not returning) any stop error — a failed rollback should not
// mask the original start failure.
func (o *Orchestrator) rollback() {
	for i := len(o.started) - 1; i >= 0; i-- {
		name := o.started[i]
		p, ok := o.registry.Get(name)
		if !ok {
			continue
		}
		if err := p.Stop(); err != nil {
			logging.Error(subsystem, err, "failed to stop provider %s during rollback", name)
		}
	}
	o.started = nil
}

// StopAll stops every started provider in the reverse of its start order.
// Individual stop errors are logged and collected but never abort the
// sweep — every provider gets a Stop() call regardless of earlier failures.
func (o *Orchestrator) StopAll() error {
	var firstErr error
	for i := len(o.started) - 1; i >= 0; i-- {
		name := o.started[i]
		p, ok := o.registry.Get(name)
		if !ok {
			continue
		}
		if err := p.Stop(); err != nil {
			logging.Error(subsystem, err, "failed to stop provider %s", name)
			if firstErr == nil {
				firstErr = fmt.Errorf("orchestrator: stopping %s: %w", name, err)
			}
			continue
		}
		logging.Info(subsystem, "stopped provider %s", name)
	}
	o.started = nil
	return firstErr
}

// HealthReport calls Healthy() on every registered provider and aggregates
// the results; it never starts or stops anything.
func (o *Orchestrator) HealthReport() HealthReport {
	report := HealthReport{Healthy: true, Providers: make(map[string]string)}
	for _, p := range o.registry.All() {
		if err := p.Healthy(); err != nil {
			report.Healthy = false
			report.Providers[p.Name()] = err.Error()
			continue
		}
		report.Providers[p.Name()] = "ok"
	}
	return report
}

// Reset clears in-memory state on every provider that supports it (test
// fixtures, a CLI "reset to empty" command). It never stops or starts a
// provider, and is not part of the normal start/stop lifecycle.
func (o *Orchestrator) Reset() error {
	for _, p := range o.registry.All() {
		r, ok := p.(Resettable)
		if !ok {
			continue
		}
		if err := r.Reset(); err != nil {
			return fmt.Errorf("orchestrator: resetting %s: %w", p.Name(), err)
		}
	}
	return nil
}
