package eventfabric

import (
	"sync"
	"time"

	"lwsgo/internal/providers/documentstore"
	"lwsgo/pkg/logging"
)

// StreamHandler receives a batch of records for one table.
type StreamHandler func(table string, batch []documentstore.StreamRecord)

// StreamDispatcher implements documentstore.StreamSink: it buffers emitted
// records per table and flushes a batch to every registered handler every
// window, never blocking the producer (spec §4.8).
type StreamDispatcher struct {
	window    time.Duration
	maxBuffer int

	mu       sync.Mutex
	buffers  map[string][]documentstore.StreamRecord
	handlers map[string][]StreamHandler

	stopCh chan struct{}
	doneCh chan struct{}
	once   sync.Once
}

// NewStreamDispatcher constructs a dispatcher that flushes every window and
// drops (with a logged warning) once a table's buffer holds maxBuffer
// records. maxBuffer <= 0 means unbounded.
func NewStreamDispatcher(window time.Duration, maxBuffer int) *StreamDispatcher {
	if window <= 0 {
		window = 100 * time.Millisecond
	}
	return &StreamDispatcher{
		window:    window,
		maxBuffer: maxBuffer,
		buffers:   make(map[string][]documentstore.StreamRecord),
		handlers:  make(map[string][]StreamHandler),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Subscribe registers a handler invoked with every flushed batch for table.
func (d *StreamDispatcher) Subscribe(table string, h StreamHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[table] = append(d.handlers[table], h)
}

// Emit implements documentstore.StreamSink. It never blocks: once a
// table's buffer is at maxBuffer, new records are dropped with a warning.
func (d *StreamDispatcher) Emit(table string, record documentstore.StreamRecord) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.maxBuffer > 0 && len(d.buffers[table]) >= d.maxBuffer {
		logging.Warn("eventfabric", "stream buffer full for table %s, dropping record %s", table, record.EventID)
		return
	}
	d.buffers[table] = append(d.buffers[table], record)
}

// Start launches the background flush worker. It must be called once.
func (d *StreamDispatcher) Start() {
	go func() {
		defer close(d.doneCh)
		ticker := time.NewTicker(d.window)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				d.flush()
			case <-d.stopCh:
				d.flush()
				return
			}
		}
	}()
}

// Stop signals the worker to flush all pending batches and exit, waiting
// for it to finish.
func (d *StreamDispatcher) Stop() {
	d.once.Do(func() { close(d.stopCh) })
	<-d.doneCh
}

func (d *StreamDispatcher) flush() {
	d.mu.Lock()
	pending := d.buffers
	d.buffers = make(map[string][]documentstore.StreamRecord)
	handlers := make(map[string][]StreamHandler, len(d.handlers))
	for table, hs := range d.handlers {
		handlers[table] = append([]StreamHandler(nil), hs...)
	}
	d.mu.Unlock()

	for table, batch := range pending {
		if len(batch) == 0 {
			continue
		}
		for _, h := range handlers[table] {
			d.invoke(table, batch, h)
		}
	}
}

func (d *StreamDispatcher) invoke(table string, batch []documentstore.StreamRecord, h StreamHandler) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("eventfabric", nil, "stream handler panicked for table %s: %v", table, r)
		}
	}()
	h(table, batch)
}
