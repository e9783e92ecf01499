package eventfabric

import (
	"strconv"
	"strings"
	"sync"

	"lwsgo/pkg/logging"
)

// NotificationHandler receives a matched object-store event.
type NotificationHandler func(bucket, event, key string)

// NotificationBinding is one registered (bucket, event-type-glob,
// prefix?, suffix?) rule, spec §3 "Notification binding".
type NotificationBinding struct {
	ID      string
	Bucket  string
	Event   string // e.g. "ObjectCreated:*", "ObjectRemoved:Delete"
	Prefix  string
	Suffix  string
	Handler NotificationHandler
}

// NotificationDispatcher matches object-store events against registered
// bindings and schedules matching handlers as independent tasks (spec
// §4.8).
type NotificationDispatcher struct {
	mu       sync.RWMutex
	bindings []NotificationBinding
	seq      int
}

func NewNotificationDispatcher() *NotificationDispatcher {
	return &NotificationDispatcher{}
}

// Register adds a binding and returns its assigned id.
func (d *NotificationDispatcher) Register(bucket, eventGlob, prefix, suffix string, h NotificationHandler) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seq++
	id := genBindingID(d.seq)
	d.bindings = append(d.bindings, NotificationBinding{
		ID: id, Bucket: bucket, Event: eventGlob, Prefix: prefix, Suffix: suffix, Handler: h,
	})
	return id
}

// Unregister removes a binding by id.
func (d *NotificationDispatcher) Unregister(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, b := range d.bindings {
		if b.ID == id {
			d.bindings = append(d.bindings[:i], d.bindings[i+1:]...)
			return
		}
	}
}

// Dispatch matches bucket/event/key against every binding and schedules
// each match as an independent detached task (fire-and-forget, per spec
// §4.8). Handler panics are logged, not propagated.
func (d *NotificationDispatcher) Dispatch(bucket, event, key string) {
	d.mu.RLock()
	matches := make([]NotificationBinding, 0, len(d.bindings))
	for _, b := range d.bindings {
		if b.Bucket == bucket && matchEventGlob(b.Event, event) && strings.HasPrefix(key, b.Prefix) && strings.HasSuffix(key, b.Suffix) {
			matches = append(matches, b)
		}
	}
	d.mu.RUnlock()

	for _, b := range matches {
		go func(b NotificationBinding) {
			defer func() {
				if r := recover(); r != nil {
					logging.Error("eventfabric", nil, "notification handler %s panicked: %v", b.ID, r)
				}
			}()
			b.Handler(bucket, event, key)
		}(b)
	}
}

// matchEventGlob implements spec §4.8's glob rule: "* after the colon
// matches any sub-type". Patterns without a colon must match exactly.
func matchEventGlob(pattern, event string) bool {
	if pattern == event {
		return true
	}
	patPrefix, patSub, ok := strings.Cut(pattern, ":")
	if !ok {
		return false
	}
	if patSub != "*" {
		return false
	}
	evPrefix, _, ok := strings.Cut(event, ":")
	if !ok {
		return false
	}
	return patPrefix == evPrefix
}

func genBindingID(n int) string {
	return "nb-" + strconv.Itoa(n)
}
