package orchestrator

import (
	"context"
	"errors"
	"time"

	"lwsgo/internal/eventfabric"
	"lwsgo/internal/providers/compute"
	"lwsgo/internal/providers/documentstore"
	"lwsgo/internal/providers/objectstore"
	"lwsgo/internal/providers/pubsub"
	"lwsgo/internal/providers/queue"
	"lwsgo/internal/providers/workflow"
)

// The emulator providers built elsewhere in this module (objectstore.Store,
// documentstore.Store, queue.Provider, pubsub.Provider, compute.Provider,
// workflow.Engine) are plain constructors with no Start/Stop/Healthy
// methods of their own — their lifecycle is whatever calling code does
// with them. These thin wrappers give each one a Provider identity so the
// orchestrator can sequence and health-check them uniformly, regardless of
// what kind of backend sits behind each one.

// ObjectStoreProvider wraps an objectstore.Store.
type ObjectStoreProvider struct {
	name  string
	Store *objectstore.Store
}

func NewObjectStoreProvider(name string, store *objectstore.Store) *ObjectStoreProvider {
	return &ObjectStoreProvider{name: name, Store: store}
}

func (p *ObjectStoreProvider) Name() string { return p.name }
func (p *ObjectStoreProvider) Start() error { return nil }
func (p *ObjectStoreProvider) Stop() error  { return nil }
func (p *ObjectStoreProvider) Healthy() error {
	if p.Store == nil {
		return errors.New("object store not initialized")
	}
	return nil
}

// DocumentStoreProvider wraps a documentstore.Store.
type DocumentStoreProvider struct {
	name  string
	Store *documentstore.Store
}

func NewDocumentStoreProvider(name string, store *documentstore.Store) *DocumentStoreProvider {
	return &DocumentStoreProvider{name: name, Store: store}
}

func (p *DocumentStoreProvider) Name() string { return p.name }
func (p *DocumentStoreProvider) Start() error { return nil }
func (p *DocumentStoreProvider) Stop() error  { return nil }
func (p *DocumentStoreProvider) Healthy() error {
	if p.Store == nil {
		return errors.New("document store not initialized")
	}
	return nil
}

// QueueProvider wraps a queue.Provider together with the set of pollers
// that drain its queues into compute/workflow targets. Start/Stop starts
// and stops every registered poller; the queue itself needs no lifecycle.
type QueueProvider struct {
	name    string
	Queue   *queue.Provider
	pollers []*queue.Poller
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewQueueProvider(name string, q *queue.Provider) *QueueProvider {
	return &QueueProvider{name: name, Queue: q}
}

// AddPoller registers a poller to be started alongside this provider.
// Call before StartAll.
func (p *QueueProvider) AddPoller(poller *queue.Poller) {
	p.pollers = append(p.pollers, poller)
}

func (p *QueueProvider) Name() string { return p.name }

func (p *QueueProvider) Start() error {
	p.ctx, p.cancel = context.WithCancel(context.Background())
	for _, poller := range p.pollers {
		poller.Start(p.ctx)
	}
	return nil
}

func (p *QueueProvider) Stop() error {
	if p.cancel != nil {
		p.cancel()
	}
	for _, poller := range p.pollers {
		poller.Stop()
	}
	return nil
}

func (p *QueueProvider) Healthy() error {
	if p.Queue == nil {
		return errors.New("queue provider not initialized")
	}
	return nil
}

// PubSubProvider wraps a pubsub.Provider.
type PubSubProvider struct {
	name  string
	Topic *pubsub.Provider
}

func NewPubSubProvider(name string, topic *pubsub.Provider) *PubSubProvider {
	return &PubSubProvider{name: name, Topic: topic}
}

func (p *PubSubProvider) Name() string { return p.name }
func (p *PubSubProvider) Start() error { return nil }
func (p *PubSubProvider) Stop() error  { return nil }
func (p *PubSubProvider) Healthy() error {
	if p.Topic == nil {
		return errors.New("pubsub provider not initialized")
	}
	return nil
}

// ComputeProvider wraps a compute.Provider.
type ComputeProvider struct {
	name    string
	Compute *compute.Provider
}

func NewComputeProvider(name string, c *compute.Provider) *ComputeProvider {
	return &ComputeProvider{name: name, Compute: c}
}

func (p *ComputeProvider) Name() string { return p.name }
func (p *ComputeProvider) Start() error { return nil }
func (p *ComputeProvider) Stop() error  { return nil }
func (p *ComputeProvider) Healthy() error {
	if p.Compute == nil {
		return errors.New("compute provider not initialized")
	}
	return nil
}

// computeTaskInvoker adapts compute.Provider to workflow.TaskInvoker, so a
// workflow Task state's Resource resolves to a compute function.
type computeTaskInvoker struct {
	compute *compute.Provider
}

func (c computeTaskInvoker) Invoke(ctx context.Context, resource string, input any, timeout time.Duration) (any, string, error) {
	result, err := c.compute.Invoke(ctx, resource, input, timeout)
	if err != nil {
		return nil, "States.TaskFailed", err
	}
	if result.Err != "" {
		return nil, "States.TaskFailed", errors.New(result.Err)
	}
	return result.Payload, "", nil
}

// WorkflowProvider wraps a workflow.Engine. PostWire resolves the compute
// provider it invokes Task states against, so callers can register the
// workflow provider before the compute provider exists as long as both are
// registered before StartAll runs.
type WorkflowProvider struct {
	name        string
	Engine      *workflow.Engine
	computeName string
}

// NewWorkflowProvider constructs a provider around engine, which will
// invoke Task states against the compute provider registered under
// computeName.
func NewWorkflowProvider(name string, engine *workflow.Engine, computeName string) *WorkflowProvider {
	return &WorkflowProvider{name: name, Engine: engine, computeName: computeName}
}

func (p *WorkflowProvider) Name() string { return p.name }
func (p *WorkflowProvider) Start() error { return nil }
func (p *WorkflowProvider) Stop() error  { return nil }
func (p *WorkflowProvider) Healthy() error {
	if p.Engine == nil {
		return errors.New("workflow engine not initialized")
	}
	return nil
}

func (p *WorkflowProvider) PostWire(reg *Registry) error {
	if p.computeName == "" {
		return nil
	}
	cp, ok := reg.Get(p.computeName)
	if !ok {
		return errors.New("workflow provider: compute provider " + p.computeName + " not registered")
	}
	computeProvider, ok := cp.(*ComputeProvider)
	if !ok {
		return errors.New("workflow provider: " + p.computeName + " is not a compute provider")
	}
	p.Engine.SetInvoker(computeTaskInvoker{compute: computeProvider.Compute})
	return nil
}

// EventFabricProvider wraps the notification and stream dispatchers as a
// single startable unit: the notification dispatcher is pure fan-out with
// no background worker, but the stream dispatcher runs a ticker-driven
// flush loop that must be started and stopped.
type EventFabricProvider struct {
	name    string
	Notify  *eventfabric.NotificationDispatcher
	Streams *eventfabric.StreamDispatcher
}

func NewEventFabricProvider(name string, notify *eventfabric.NotificationDispatcher, streams *eventfabric.StreamDispatcher) *EventFabricProvider {
	return &EventFabricProvider{name: name, Notify: notify, Streams: streams}
}

func (p *EventFabricProvider) Name() string { return p.name }

func (p *EventFabricProvider) Start() error {
	if p.Streams != nil {
		p.Streams.Start()
	}
	return nil
}

func (p *EventFabricProvider) Stop() error {
	if p.Streams != nil {
		p.Streams.Stop()
	}
	return nil
}

func (p *EventFabricProvider) Healthy() error { return nil }
