// Package queue implements the in-memory FIFO/standard queue provider
// (spec §4.6): send/receive/delete/change_visibility/purge with visibility
// timeouts and long-poll receive, plus an event-source-mapping poller that
// drives a compute target.
package queue

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"lwsgo/internal/apierrors"
)

// Message is one queue message.
type Message struct {
	ID            string
	ReceiptHandle string
	Body          string
	Attributes    map[string]string
	SendTimestamp time.Time
}

type inFlight struct {
	msg      Message
	deadline time.Time
}

// Queue is a single FIFO or standard queue.
type Queue struct {
	Name string
	FIFO bool

	visibilityTimeout time.Duration

	mu       sync.Mutex
	visible  *list.List // of *Message, FIFO order
	inFlight map[string]*inFlight
	waiters  []chan struct{}
}

func newQueue(name string, fifo bool, visibilityTimeout time.Duration) *Queue {
	return &Queue{
		Name:              name,
		FIFO:              fifo,
		visibilityTimeout: visibilityTimeout,
		visible:           list.New(),
		inFlight:          make(map[string]*inFlight),
	}
}

// Provider manages named queues.
type Provider struct {
	mu     sync.RWMutex
	queues map[string]*Queue
}

func New() *Provider {
	return &Provider{queues: make(map[string]*Queue)}
}

// CreateQueue registers a queue; visibilityTimeout <= 0 defaults to 30s.
func (p *Provider) CreateQueue(name string, fifo bool, visibilityTimeout time.Duration) *Queue {
	if visibilityTimeout <= 0 {
		visibilityTimeout = 30 * time.Second
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	q := newQueue(name, fifo, visibilityTimeout)
	p.queues[name] = q
	return q
}

func (p *Provider) queue(name string) (*Queue, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	q, ok := p.queues[name]
	if !ok {
		return nil, apierrors.NewQueueNotFoundError(name)
	}
	return q, nil
}

// Send enqueues body, optionally after delay, returning the new message's
// id.
func (p *Provider) Send(ctx context.Context, name, body string, delay time.Duration, attrs map[string]string) (string, error) {
	q, err := p.queue(name)
	if err != nil {
		return "", err
	}
	msg := Message{ID: uuid.NewString(), Body: body, Attributes: attrs, SendTimestamp: time.Now()}
	if delay <= 0 {
		q.enqueue(msg)
	} else {
		time.AfterFunc(delay, func() { q.enqueue(msg) })
	}
	return msg.ID, nil
}

func (q *Queue) enqueue(msg Message) {
	q.mu.Lock()
	q.visible.PushBack(&msg)
	waiters := q.waiters
	q.waiters = nil
	q.mu.Unlock()
	for _, w := range waiters {
		close(w)
	}
}

// Receive returns up to max visible messages, hiding them for the
// queue's visibility timeout. If none are visible and wait > 0, it
// blocks (at most one such waiter per call) until a message arrives or
// the wait expires.
func (p *Provider) Receive(ctx context.Context, name string, max int, wait time.Duration) ([]Message, error) {
	q, err := p.queue(name)
	if err != nil {
		return nil, err
	}
	if max <= 0 {
		max = 1
	}

	msgs := q.drainVisible(max)
	if len(msgs) > 0 || wait <= 0 {
		return msgs, nil
	}

	waitCh := make(chan struct{})
	q.mu.Lock()
	q.waiters = append(q.waiters, waitCh)
	q.mu.Unlock()

	select {
	case <-waitCh:
		return q.drainVisible(max), nil
	case <-time.After(wait):
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (q *Queue) drainVisible(max int) []Message {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.reapExpiredLocked()

	var out []Message
	for len(out) < max {
		front := q.visible.Front()
		if front == nil {
			break
		}
		q.visible.Remove(front)
		msg := front.Value.(*Message)
		msg.ReceiptHandle = uuid.NewString()
		q.inFlight[msg.ReceiptHandle] = &inFlight{msg: *msg, deadline: time.Now().Add(q.visibilityTimeout)}
		out = append(out, *msg)
	}
	return out
}

// reapExpiredLocked returns expired in-flight messages to visible. Must be
// called with q.mu held.
func (q *Queue) reapExpiredLocked() {
	now := time.Now()
	for handle, f := range q.inFlight {
		if now.After(f.deadline) {
			delete(q.inFlight, handle)
			msg := f.msg
			msg.ReceiptHandle = ""
			q.visible.PushFront(&msg)
		}
	}
}

// Delete removes a received message by receipt handle; a no-op if the
// handle has already expired or been deleted.
func (p *Provider) Delete(name, receiptHandle string) error {
	q, err := p.queue(name)
	if err != nil {
		return err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.reapExpiredLocked()
	delete(q.inFlight, receiptHandle)
	return nil
}

// ChangeVisibility resets the visibility deadline of an in-flight
// message.
func (p *Provider) ChangeVisibility(name, receiptHandle string, seconds time.Duration) error {
	q, err := p.queue(name)
	if err != nil {
		return err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if f, ok := q.inFlight[receiptHandle]; ok {
		f.deadline = time.Now().Add(seconds)
	}
	return nil
}

// Purge drops every visible and in-flight message.
func (p *Provider) Purge(name string) error {
	q, err := p.queue(name)
	if err != nil {
		return err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.visible.Init()
	q.inFlight = make(map[string]*inFlight)
	return nil
}
