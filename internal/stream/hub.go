package stream

import (
	"log/slog"
	"sync"
)

// Conn is the subscriber transport. *websocket.Conn satisfies it.
type Conn interface {
	WriteJSON(v any) error
}

// Hub delivers best-effort broadcasts to every live subscriber of a task id
// and retains the most recent message per id so late joiners receive
// immediate context. The hub tracks connections for delivery only; it never
// owns their lifecycle.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string][]Conn
	lastMessage map[string]any
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string][]Conn),
		lastMessage: make(map[string]any),
	}
}

// Register adds a connection to the subscriber set for a task id. If a
// cached last message exists for that id, it is delivered to the new
// connection before Register returns.
func (h *Hub) Register(conn Conn, taskID string) {
	h.mu.Lock()
	h.subscribers[taskID] = append(h.subscribers[taskID], conn)
	cached, hasCache := h.lastMessage[taskID]
	h.mu.Unlock()

	slog.Info("subscriber registered", "task_id", taskID)

	if hasCache {
		if err := conn.WriteJSON(cached); err != nil {
			slog.Warn("failed to replay cached message", "task_id", taskID, "error", err)
			h.Unregister(conn, taskID)
		}
	}
}

// Unregister removes a connection from the subscriber set. Idempotent.
// Removing the last subscriber prunes the per-id bucket but keeps the
// message cache so a rejoin on the same id still replays it.
func (h *Hub) Unregister(conn Conn, taskID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns := h.subscribers[taskID]
	for i, c := range conns {
		if c == conn {
			h.subscribers[taskID] = append(conns[:i], conns[i+1:]...)
			slog.Info("subscriber unregistered", "task_id", taskID)
			break
		}
	}
	if len(h.subscribers[taskID]) == 0 {
		delete(h.subscribers, taskID)
	}
}

// Broadcast caches message as the latest for the task id, then attempts
// delivery to every registered connection. Failed connections are evicted
// as a side effect. Broadcast never fails from the caller's point of view
// and a bad subscriber never blocks delivery to the rest.
func (h *Hub) Broadcast(taskID string, message any) {
	h.mu.Lock()
	h.lastMessage[taskID] = message
	conns := make([]Conn, len(h.subscribers[taskID]))
	copy(conns, h.subscribers[taskID])
	h.mu.Unlock()

	var dead []Conn
	for _, conn := range conns {
		if err := conn.WriteJSON(message); err != nil {
			slog.Warn("broadcast delivery failed, evicting subscriber", "task_id", taskID, "error", err)
			dead = append(dead, conn)
		}
	}

	for _, conn := range dead {
		h.Unregister(conn, taskID)
	}
}

// SubscriberCount returns the number of live subscribers for a task id.
func (h *Hub) SubscriberCount(taskID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[taskID])
}

// TotalSubscribers returns the number of live subscribers across all ids.
func (h *Hub) TotalSubscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	for _, conns := range h.subscribers {
		total += len(conns)
	}
	return total
}
