// Package app wires a parsed deployment model into a running orchestrator:
// it constructs exactly one backing provider per emulated service kind
// present in the model (a single compute.Provider hosts every
// compute-fn resource, a single queue.Provider hosts every queue, and so
// on), creates the named resources each resource entry describes inside
// its backing provider, and registers an event-source poller for every
// compute target a queue resource lists in event_sources. It creates no
// pubsub subscriptions.
package app

import (
	"context"
	"fmt"
	"time"

	"lwsgo/internal/config"
	"lwsgo/internal/dependency"
	"lwsgo/internal/eventfabric"
	"lwsgo/internal/orchestrator"
	"lwsgo/internal/providers/compute"
	"lwsgo/internal/providers/documentstore"
	"lwsgo/internal/providers/objectstore"
	"lwsgo/internal/providers/pubsub"
	"lwsgo/internal/providers/queue"
	"lwsgo/internal/providers/workflow"
	"lwsgo/pkg/logging"
)

const subsystem = "Bootstrap"

// defaultInvokeTimeout bounds a compute invocation triggered by a pubsub
// or queue event source, mirroring the per-call timeout a real function
// platform would enforce.
const defaultInvokeTimeout = 30 * time.Second

// Backends holds direct handles to the shared provider instances
// Bootstrap constructed, for callers (e.g. a future HTTP/MCP surface)
// that need to drive them directly rather than through the orchestrator.
type Backends struct {
	Compute       *compute.Provider
	Queue         *queue.Provider
	PubSub        *pubsub.Provider
	ObjectStore   *objectstore.Store
	DocumentStore *documentstore.Store
	Workflow      *workflow.Engine
	Streams       *eventfabric.StreamDispatcher
	Notify        *eventfabric.NotificationDispatcher
}

// Bootstrap builds an orchestrator.Orchestrator from model: a backing
// provider for every resource kind the model uses, the individual named
// resources (buckets, tables, queues, topics, functions) each resource
// entry describes, and the event-source pollers named by queue resources'
// event_sources (no pubsub subscriptions are created). Callers still need
// to call StartAll on the returned orchestrator.
func Bootstrap(cfg config.RuntimeConfig, model *config.DeploymentModel) (*orchestrator.Orchestrator, *Backends, error) {
	graph, err := config.BuildGraph(model)
	if err != nil {
		return nil, nil, fmt.Errorf("app: building dependency graph: %w", err)
	}

	kinds := make(map[string]bool, len(model.Resources))
	for _, r := range model.Resources {
		kinds[r.Kind] = true
	}

	o := orchestrator.New()
	b := &Backends{}

	if kinds["compute-fn"] {
		b.Compute = compute.New(cfg.Region, cfg.Account)
		if err := o.Register(orchestrator.NewComputeProvider("compute", b.Compute)); err != nil {
			return nil, nil, err
		}
	}

	if kinds["object-bucket"] {
		b.Notify = eventfabric.NewNotificationDispatcher()
		store, err := objectstore.New(cfg.DataDir+"/objects", b.Notify)
		if err != nil {
			return nil, nil, fmt.Errorf("app: opening object store: %w", err)
		}
		b.ObjectStore = store
		if err := o.Register(orchestrator.NewObjectStoreProvider("objectstore", store)); err != nil {
			return nil, nil, err
		}
	}

	if kinds["doc-table"] {
		b.Streams = eventfabric.NewStreamDispatcher(5*time.Second, 1000)
		store, err := documentstore.Open(cfg.DataDir+"/documents", b.Streams)
		if err != nil {
			return nil, nil, fmt.Errorf("app: opening document store: %w", err)
		}
		b.DocumentStore = store
		if err := o.Register(orchestrator.NewDocumentStoreProvider("documentstore", store)); err != nil {
			return nil, nil, err
		}
		if err := o.Register(orchestrator.NewEventFabricProvider("eventfabric", b.Notify, b.Streams)); err != nil {
			return nil, nil, err
		}
	}

	var queueDeps []string
	if kinds["compute-fn"] {
		queueDeps = append(queueDeps, "compute")
	}
	if kinds["queue"] {
		b.Queue = queue.New()
		qp := orchestrator.NewQueueProvider("queue", b.Queue)
		if err := o.Register(qp, queueDeps...); err != nil {
			return nil, nil, err
		}
	}

	if kinds["pubsub-topic"] {
		var invoker pubsub.ComputeInvoker
		if b.Compute != nil {
			invoker = computeInvoker{compute: b.Compute}
		}
		var sender pubsub.QueueSender
		if b.Queue != nil {
			sender = queueSender{queue: b.Queue}
		}
		b.PubSub = pubsub.New(cfg.Region, cfg.Account, invoker, sender)
		var deps []string
		if b.Compute != nil {
			deps = append(deps, "compute")
		}
		if b.Queue != nil {
			deps = append(deps, "queue")
		}
		if err := o.Register(orchestrator.NewPubSubProvider("pubsub", b.PubSub), deps...); err != nil {
			return nil, nil, err
		}
	}

	if kinds["workflow"] {
		b.Workflow = workflow.NewEngine(nil)
		computeName := ""
		if b.Compute != nil {
			computeName = "compute"
		}
		var deps []string
		if computeName != "" {
			deps = append(deps, computeName)
		}
		if err := o.Register(orchestrator.NewWorkflowProvider("workflow", b.Workflow, computeName), deps...); err != nil {
			return nil, nil, err
		}
	}

	if err := createResources(model, b, graph); err != nil {
		return nil, nil, err
	}

	if err := wirePollers(o, model, b); err != nil {
		return nil, nil, err
	}

	logging.Info(subsystem, "bootstrapped %d resources across %d provider kinds", len(model.Resources), len(kinds))
	return o, b, nil
}

// createResources declares the individual named entities (tables, queues,
// topics) inside each backing provider. compute-fn resources are
// registered with a placeholder handler that always returns an error: a
// real handler substrate is out of scope (spec's non-goal on
// provider-specific mock stubs), so Invoke fails with a "has no registered
// handler" error until a caller registers a real handler via
// Backends.Compute.
func createResources(model *config.DeploymentModel, b *Backends, graph *dependency.Graph) error {
	for _, r := range model.Resources {
		switch r.Kind {
		case "compute-fn":
			memLimit := intConfig(r.Config, "memory_limit_mb", 128)
			b.Compute.Register(r.ID, memLimit, notImplementedHandler(r.ID))
		case "queue":
			fifo, _ := r.Config["fifo"].(bool)
			visibility := time.Duration(intConfig(r.Config, "visibility_timeout_seconds", 30)) * time.Second
			b.Queue.CreateQueue(r.ID, fifo, visibility)
		case "object-bucket":
			// objectstore buckets are created implicitly on first Put; nothing
			// to pre-register.
		case "pubsub-topic":
			b.PubSub.CreateTopic(r.ID)
		case "doc-table":
			schema := documentstore.KeySchema{
				Partition: stringConfig(r.Config, "partition_key", "id"),
				Sort:      stringConfig(r.Config, "sort_key", ""),
			}
			stream := documentstore.StreamConfig{}
			if enabled, _ := r.Config["stream_enabled"].(bool); enabled {
				stream.Enabled = true
				stream.View = documentstore.StreamViewNewAndOld
			}
			b.DocumentStore.CreateTable(documentstore.Table{Name: r.ID, KeySchema: schema, Stream: stream})
		case "event-bus", "workflow", "container-service", "http-route-set":
			// No pre-created entity: event buses are delivery-only, workflows
			// register state machines via Backends.Workflow directly, route
			// sets and container services have no in-process state to seed.
		}
	}
	return nil
}

// wirePollers starts an event-source-mapping poller for every queue
// resource that names compute resources in EventSources, draining the
// queue into the compute provider the same way a real event-source
// mapping would.
func wirePollers(o *orchestrator.Orchestrator, model *config.DeploymentModel, b *Backends) error {
	if b.Queue == nil || b.Compute == nil {
		return nil
	}
	reg := o.Registry()
	qp, ok := reg.Get("queue")
	if !ok {
		return nil
	}
	queueProvider, ok := qp.(*orchestrator.QueueProvider)
	if !ok {
		return nil
	}

	for _, r := range model.Resources {
		if r.Kind != "queue" {
			continue
		}
		for _, target := range r.EventSources {
			queueName := r.ID
			computeProvider := b.Compute
			invoke := func(ctx context.Context, name string, batch []queue.Message) error {
				for _, msg := range batch {
					if _, err := computeProvider.Invoke(ctx, target, msg.Body, defaultInvokeTimeout); err != nil {
						return err
					}
				}
				return nil
			}
			queueProvider.AddPoller(queue.NewPoller(b.Queue, queueName, 10, invoke))
		}
	}
	return nil
}

func intConfig(cfg map[string]any, key string, fallback int) int {
	if v, ok := cfg[key]; ok {
		switch n := v.(type) {
		case int:
			return n
		case float64:
			return int(n)
		}
	}
	return fallback
}

func stringConfig(cfg map[string]any, key, fallback string) string {
	if v, ok := cfg[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func notImplementedHandler(name string) compute.Handler {
	return func(ctx context.Context, event any, ictx compute.InvocationContext) (any, error) {
		return nil, fmt.Errorf("app: function %s has no registered handler", name)
	}
}

// computeInvoker adapts compute.Provider to pubsub.ComputeInvoker.
type computeInvoker struct {
	compute *compute.Provider
}

func (c computeInvoker) Invoke(topicARN, endpoint string, envelope pubsub.NotificationEnvelope) error {
	_, err := c.compute.Invoke(context.Background(), endpoint, envelope, defaultInvokeTimeout)
	return err
}

// queueSender adapts queue.Provider to pubsub.QueueSender.
type queueSender struct {
	queue *queue.Provider
}

func (q queueSender) Send(queueName, body string) error {
	_, err := q.queue.Send(context.Background(), queueName, body, 0, nil)
	return err
}
