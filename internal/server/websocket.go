package server

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Research ids are unguessable uuids, CORS adds nothing here.
	CheckOrigin: func(*http.Request) bool { return true },
}

// wsConn serializes writes to a websocket connection. Broadcasts and
// command replies come from different goroutines, and gorilla permits
// only one concurrent writer.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

// clientCommand is a message sent by a subscriber over the socket.
type clientCommand struct {
	Type string `json:"type"`
}

func (s *Server) handleWebsocket(w http.ResponseWriter, req *http.Request) {
	taskID := req.PathValue("task_id")

	if _, err := s.orchestrator.GetStatus(taskID); err != nil {
		writeServiceError(w, err)
		return
	}

	raw, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "task_id", taskID, "error", err)
		return
	}

	conn := &wsConn{conn: raw}
	s.hub.Register(conn, taskID)
	s.logger.Debug("websocket subscriber joined", "task_id", taskID)

	defer func() {
		s.hub.Unregister(conn, taskID)
		raw.Close()
		s.logger.Debug("websocket subscriber left", "task_id", taskID)
	}()

	for {
		_, data, err := raw.ReadMessage()
		if err != nil {
			return
		}

		var cmd clientCommand
		if err := json.Unmarshal(data, &cmd); err != nil {
			continue
		}

		switch cmd.Type {
		case "ping":
			if err := conn.WriteJSON(map[string]string{"type": "pong"}); err != nil {
				return
			}
		case "cancel":
			if err := s.orchestrator.Cancel(req.Context(), taskID); err != nil {
				s.logger.Debug("websocket cancel rejected", "task_id", taskID, "error", err)
			}
		}
	}
}
