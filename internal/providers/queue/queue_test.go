package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSendReceiveDelete(t *testing.T) {
	p := New()
	p.CreateQueue("q", false, time.Minute)

	id, err := p.Send(context.Background(), "q", "hello", 0, nil)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	msgs, err := p.Receive(context.Background(), "q", 10, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, "hello", msgs[0].Body)
	require.NotEmpty(t, msgs[0].ReceiptHandle)

	require.NoError(t, p.Delete("q", msgs[0].ReceiptHandle))

	more, err := p.Receive(context.Background(), "q", 10, 0)
	require.NoError(t, err)
	require.Empty(t, more)
}

func TestReceive_MessageHiddenThenExpiresBackToVisible(t *testing.T) {
	p := New()
	p.CreateQueue("q", false, 20*time.Millisecond)
	_, err := p.Send(context.Background(), "q", "hello", 0, nil)
	require.NoError(t, err)

	msgs, err := p.Receive(context.Background(), "q", 10, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	// still in flight
	none, err := p.Receive(context.Background(), "q", 10, 0)
	require.NoError(t, err)
	require.Empty(t, none)

	time.Sleep(40 * time.Millisecond)
	again, err := p.Receive(context.Background(), "q", 10, 0)
	require.NoError(t, err)
	require.Len(t, again, 1, "expired in-flight message should become visible again")
}

func TestDelete_NoOpOnUnknownHandle(t *testing.T) {
	p := New()
	p.CreateQueue("q", false, time.Minute)
	require.NoError(t, p.Delete("q", "nonexistent"))
}

func TestPurge_DropsAllMessages(t *testing.T) {
	p := New()
	p.CreateQueue("q", false, time.Minute)
	_, _ = p.Send(context.Background(), "q", "a", 0, nil)
	_, _ = p.Send(context.Background(), "q", "b", 0, nil)
	require.NoError(t, p.Purge("q"))
	msgs, err := p.Receive(context.Background(), "q", 10, 0)
	require.NoError(t, err)
	require.Empty(t, msgs)
}

func TestReceive_LongPollUnblocksOnSend(t *testing.T) {
	p := New()
	p.CreateQueue("q", false, time.Minute)

	resultCh := make(chan []Message, 1)
	go func() {
		msgs, err := p.Receive(context.Background(), "q", 1, time.Second)
		require.NoError(t, err)
		resultCh <- msgs
	}()

	time.Sleep(20 * time.Millisecond)
	_, err := p.Send(context.Background(), "q", "late", 0, nil)
	require.NoError(t, err)

	select {
	case msgs := <-resultCh:
		require.Len(t, msgs, 1)
		require.Equal(t, "late", msgs[0].Body)
	case <-time.After(2 * time.Second):
		t.Fatal("long poll did not unblock on send")
	}
}

func TestReceiveQueueNotFound(t *testing.T) {
	p := New()
	_, err := p.Receive(context.Background(), "missing", 1, 0)
	require.Error(t, err)
}

func TestPoller_InvokesAndDeletesOnSuccess(t *testing.T) {
	p := New()
	p.CreateQueue("q", false, time.Minute)
	_, err := p.Send(context.Background(), "q", "work", 0, nil)
	require.NoError(t, err)

	invoked := make(chan []Message, 1)
	poller := NewPoller(p, "q", 10, func(ctx context.Context, queueName string, batch []Message) error {
		invoked <- batch
		return nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	poller.Start(ctx)
	defer func() {
		cancel()
		poller.Stop()
	}()

	select {
	case batch := <-invoked:
		require.Len(t, batch, 1)
	case <-time.After(2 * time.Second):
		t.Fatal("poller never invoked handler")
	}
}
