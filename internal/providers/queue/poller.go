package queue

import (
	"context"
	"sync"
	"time"

	"lwsgo/pkg/logging"
)

// Invoker delivers a batch of messages to a compute target, returning an
// error if the invocation itself failed (messages are left to expire back
// to visible on failure, per spec §4.6).
type Invoker func(ctx context.Context, queueName string, batch []Message) error

// Poller drives an event-source mapping: receive in batches, invoke the
// target, delete on success.
type Poller struct {
	provider  *Provider
	queueName string
	batchSize int
	invoke    Invoker

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPoller wires queueName as an event source for invoke.
func NewPoller(provider *Provider, queueName string, batchSize int, invoke Invoker) *Poller {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &Poller{provider: provider, queueName: queueName, batchSize: batchSize, invoke: invoke}
}

// Start launches the background poll loop.
func (p *Poller) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for {
			select {
			case <-runCtx.Done():
				return
			default:
			}
			batch, err := p.provider.Receive(runCtx, p.queueName, p.batchSize, 5*time.Second)
			if err != nil {
				if runCtx.Err() != nil {
					return
				}
				logging.Warn("queue", "poller for %s: receive failed: %v", p.queueName, err)
				continue
			}
			if len(batch) == 0 {
				continue
			}
			if err := p.invoke(runCtx, p.queueName, batch); err != nil {
				logging.Warn("queue", "poller for %s: handler error, messages will return to visible: %v", p.queueName, err)
				continue
			}
			for _, m := range batch {
				_ = p.provider.Delete(p.queueName, m.ReceiptHandle)
			}
		}
	}()
}

// Stop cancels the poll loop and waits for it to exit.
func (p *Poller) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
}
