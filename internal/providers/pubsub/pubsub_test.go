package pubsub

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeComputeInvoker struct {
	mu    sync.Mutex
	calls []NotificationEnvelope
}

func (f *fakeComputeInvoker) Invoke(topicARN, endpoint string, envelope NotificationEnvelope) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, envelope)
	return nil
}

type fakeQueueSender struct {
	mu    sync.Mutex
	calls map[string]string
}

func (f *fakeQueueSender) Send(queueName, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]string{}
	}
	f.calls[queueName] = body
	return nil
}

func TestFilterPolicy_Matches(t *testing.T) {
	policy := FilterPolicy{"color": {"red", "blue"}}
	require.True(t, policy.Matches(map[string]string{"color": "red"}))
	require.False(t, policy.Matches(map[string]string{"color": "green"}))
	require.False(t, policy.Matches(map[string]string{}), "missing attribute must not match")
}

func TestPublish_FansOutToMatchingComputeSubscriber(t *testing.T) {
	invoker := &fakeComputeInvoker{}
	p := New("us-east-1", "000000000000", invoker, nil)
	p.CreateTopic("orders")
	_, err := p.Subscribe("orders", ProtocolComputeFn, "handler", FilterPolicy{"status": {"shipped"}})
	require.NoError(t, err)

	_, err = p.Publish("orders", "subj", "body", map[string]string{"status": "shipped"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		invoker.mu.Lock()
		defer invoker.mu.Unlock()
		return len(invoker.calls) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestPublish_SkipsNonMatchingSubscriber(t *testing.T) {
	invoker := &fakeComputeInvoker{}
	p := New("us-east-1", "000000000000", invoker, nil)
	p.CreateTopic("orders")
	_, err := p.Subscribe("orders", ProtocolComputeFn, "handler", FilterPolicy{"status": {"shipped"}})
	require.NoError(t, err)

	_, err = p.Publish("orders", "subj", "body", map[string]string{"status": "pending"})
	require.NoError(t, err)

	time.Sleep(30 * time.Millisecond)
	invoker.mu.Lock()
	defer invoker.mu.Unlock()
	require.Empty(t, invoker.calls)
}

func TestPublish_QueueSubscriberGetsStringifiedEnvelope(t *testing.T) {
	sender := &fakeQueueSender{}
	p := New("us-east-1", "000000000000", nil, sender)
	p.CreateTopic("orders")
	_, err := p.Subscribe("orders", ProtocolQueue, "my-queue", nil)
	require.NoError(t, err)

	_, err = p.Publish("orders", "subj", "hello", nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		sender.mu.Lock()
		defer sender.mu.Unlock()
		_, ok := sender.calls["my-queue"]
		return ok
	}, time.Second, 5*time.Millisecond)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	invoker := &fakeComputeInvoker{}
	p := New("us-east-1", "000000000000", invoker, nil)
	p.CreateTopic("orders")
	id, err := p.Subscribe("orders", ProtocolComputeFn, "handler", nil)
	require.NoError(t, err)
	require.NoError(t, p.Unsubscribe("orders", id))

	_, err = p.Publish("orders", "", "body", nil)
	require.NoError(t, err)
	time.Sleep(30 * time.Millisecond)

	invoker.mu.Lock()
	defer invoker.mu.Unlock()
	require.Empty(t, invoker.calls)
}

func TestPublishUnknownTopic(t *testing.T) {
	p := New("us-east-1", "000000000000", nil, nil)
	_, err := p.Publish("missing", "", "", nil)
	require.Error(t, err)
}
