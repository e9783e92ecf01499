package eventfabric

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNotificationDispatcher_PrefixAndGlobMatch(t *testing.T) {
	// spec §8 scenario 6.
	d := NewNotificationDispatcher()
	var mu sync.Mutex
	var delivered []string
	done := make(chan struct{}, 1)

	d.Register("b", "ObjectCreated:*", "images/", "", func(bucket, event, key string) {
		mu.Lock()
		delivered = append(delivered, key)
		mu.Unlock()
		done <- struct{}{}
	})

	d.Dispatch("b", "ObjectCreated:Put", "images/a.jpg")
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for handler")
	}
	mu.Lock()
	require.Equal(t, []string{"images/a.jpg"}, delivered)
	mu.Unlock()

	d.Dispatch("b", "ObjectCreated:Put", "docs/a.txt")
	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	require.Len(t, delivered, 1, "non-matching prefix must not be delivered")
	mu.Unlock()
}

func TestMatchEventGlob(t *testing.T) {
	require.True(t, matchEventGlob("ObjectCreated:*", "ObjectCreated:Put"))
	require.True(t, matchEventGlob("ObjectRemoved:Delete", "ObjectRemoved:Delete"))
	require.False(t, matchEventGlob("ObjectRemoved:Delete", "ObjectCreated:Put"))
	require.False(t, matchEventGlob("ObjectCreated:*", "ObjectRemoved:Delete"))
}

func TestNotificationDispatcher_Unregister(t *testing.T) {
	d := NewNotificationDispatcher()
	called := make(chan struct{}, 1)
	id := d.Register("b", "ObjectCreated:*", "", "", func(bucket, event, key string) { called <- struct{}{} })
	d.Unregister(id)
	d.Dispatch("b", "ObjectCreated:Put", "x")
	select {
	case <-called:
		t.Fatal("handler should not fire after unregister")
	case <-time.After(50 * time.Millisecond):
	}
}
