package eventfabric

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"lwsgo/internal/providers/documentstore"
)

func TestStreamDispatcher_FlushesWithinWindow(t *testing.T) {
	d := NewStreamDispatcher(20*time.Millisecond, 0)
	var mu sync.Mutex
	var got []documentstore.StreamRecord
	batched := make(chan struct{}, 1)
	d.Subscribe("widgets", func(table string, batch []documentstore.StreamRecord) {
		mu.Lock()
		got = append(got, batch...)
		mu.Unlock()
		select {
		case batched <- struct{}{}:
		default:
		}
	})
	d.Start()
	defer d.Stop()

	d.Emit("widgets", documentstore.StreamRecord{EventID: "1", EventName: "INSERT"})
	d.Emit("widgets", documentstore.StreamRecord{EventID: "2", EventName: "INSERT"})

	select {
	case <-batched:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for flush")
	}
	mu.Lock()
	require.Len(t, got, 2)
	mu.Unlock()
}

func TestStreamDispatcher_DropsWhenBufferFull(t *testing.T) {
	d := NewStreamDispatcher(time.Hour, 1)
	d.Emit("widgets", documentstore.StreamRecord{EventID: "1"})
	d.Emit("widgets", documentstore.StreamRecord{EventID: "2"})
	d.mu.Lock()
	require.Len(t, d.buffers["widgets"], 1, "second record should have been dropped")
	d.mu.Unlock()
}

func TestStreamDispatcher_FlushesPendingOnStop(t *testing.T) {
	d := NewStreamDispatcher(time.Hour, 0)
	var mu sync.Mutex
	var got []documentstore.StreamRecord
	d.Subscribe("widgets", func(table string, batch []documentstore.StreamRecord) {
		mu.Lock()
		got = append(got, batch...)
		mu.Unlock()
	})
	d.Start()
	d.Emit("widgets", documentstore.StreamRecord{EventID: "1"})
	d.Stop()

	mu.Lock()
	require.Len(t, got, 1, "stop must flush pending batches")
	mu.Unlock()
}
