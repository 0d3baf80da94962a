package stream_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/civiscope/civiscope-go/internal/stream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn records written messages and optionally fails every write.
type fakeConn struct {
	mu       sync.Mutex
	messages []any
	failWith error
}

func (c *fakeConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failWith != nil {
		return c.failWith
	}
	c.messages = append(c.messages, v)
	return nil
}

func (c *fakeConn) received() []any {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]any, len(c.messages))
	copy(out, c.messages)
	return out
}

func TestBroadcastDeliversToAllSubscribers(t *testing.T) {
	hub := stream.NewHub()
	a, b := &fakeConn{}, &fakeConn{}

	hub.Register(a, "task-1")
	hub.Register(b, "task-1")

	msg := stream.NewProgress("task-1", 40, "Searching...", 2, 60)
	hub.Broadcast("task-1", msg)

	require.Len(t, a.received(), 1)
	require.Len(t, b.received(), 1)
	assert.Equal(t, msg, a.received()[0])
}

func TestBroadcastWithZeroSubscribersCaches(t *testing.T) {
	hub := stream.NewHub()

	msg := stream.NewProgress("task-1", 20, "Searching...", 1, 90)
	hub.Broadcast("task-1", msg)

	// A late joiner must receive the cached message on register.
	late := &fakeConn{}
	hub.Register(late, "task-1")

	require.Len(t, late.received(), 1, "late subscriber should receive replay")
	assert.Equal(t, msg, late.received()[0])
}

func TestReplayOnlyLatestMessage(t *testing.T) {
	hub := stream.NewHub()

	hub.Broadcast("task-1", stream.NewProgress("task-1", 20, "a", 0, 90))
	last := stream.NewProgress("task-1", 60, "b", 3, 30)
	hub.Broadcast("task-1", last)

	late := &fakeConn{}
	hub.Register(late, "task-1")

	require.Len(t, late.received(), 1, "only the latest snapshot is replayed")
	assert.Equal(t, last, late.received()[0])
}

func TestBroadcastEvictsFailedConnections(t *testing.T) {
	hub := stream.NewHub()
	healthy := &fakeConn{}
	broken := &fakeConn{failWith: errors.New("connection reset")}

	hub.Register(healthy, "task-1")
	hub.Register(broken, "task-1")
	assert.Equal(t, 2, hub.SubscriberCount("task-1"))

	hub.Broadcast("task-1", stream.NewError("boom", false))

	assert.Equal(t, 1, hub.SubscriberCount("task-1"), "broken connection should be evicted")
	require.Len(t, healthy.received(), 1, "healthy connection still receives the message")
}

func TestUnregisterIdempotent(t *testing.T) {
	hub := stream.NewHub()
	conn := &fakeConn{}

	hub.Register(conn, "task-1")
	hub.Unregister(conn, "task-1")
	hub.Unregister(conn, "task-1")

	assert.Equal(t, 0, hub.SubscriberCount("task-1"))
}

func TestCacheSurvivesLastUnregister(t *testing.T) {
	hub := stream.NewHub()
	conn := &fakeConn{}

	hub.Register(conn, "task-1")
	msg := stream.NewComplete("task-1", "/api/v1/research/results/task-1", map[string]int{"total_sources": 4})
	hub.Broadcast("task-1", msg)
	hub.Unregister(conn, "task-1")

	rejoin := &fakeConn{}
	hub.Register(rejoin, "task-1")
	require.Len(t, rejoin.received(), 1, "cache persists after bucket prune")
	assert.Equal(t, msg, rejoin.received()[0])
}

func TestSubscribersAreIsolatedPerTask(t *testing.T) {
	hub := stream.NewHub()
	a, b := &fakeConn{}, &fakeConn{}

	hub.Register(a, "task-a")
	hub.Register(b, "task-b")

	hub.Broadcast("task-a", stream.NewProgress("task-a", 10, "x", 0, 120))

	assert.Len(t, a.received(), 1)
	assert.Empty(t, b.received())
	assert.Equal(t, 2, hub.TotalSubscribers())
}
