// Package ws is the websocket transport for the demo daemon: it accepts
// command submissions from clients and periodically broadcasts the
// coordinator's serialized trailing state, modeled on the teacher's own
// hub/session split.
package ws

import (
	"bytes"
	"sync"

	"github.com/gorilla/websocket"

	"trailstate/server/internal/telemetry"
)

// session wraps one client connection with the mutex gorilla/websocket
// requires for concurrent writes.
type session struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *session) writeBinary(payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteMessage(websocket.BinaryMessage, payload)
}

func (s *session) writeJSON(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(v)
}

// Hub tracks connected sessions and fans a serialized snapshot out to all of
// them once per driver tick.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*session
	logger   telemetry.Logger
}

// NewHub constructs an empty Hub.
func NewHub(logger telemetry.Logger) *Hub {
	return &Hub{sessions: make(map[string]*session), logger: logger}
}

// Subscribe registers conn under playerID, replacing any prior connection
// for the same ID.
func (h *Hub) Subscribe(playerID string, conn *websocket.Conn) *session {
	sess := &session{conn: conn}
	h.mu.Lock()
	h.sessions[playerID] = sess
	h.mu.Unlock()
	return sess
}

// Unsubscribe removes playerID's connection.
func (h *Hub) Unsubscribe(playerID string) {
	h.mu.Lock()
	delete(h.sessions, playerID)
	h.mu.Unlock()
}

// Broadcast serializes the coordinator's trailing state once and writes the
// resulting bytes to every connected session.
func (h *Hub) Broadcast(serialize func(*bytes.Buffer) error) {
	var buf bytes.Buffer
	if err := serialize(&buf); err != nil {
		if h.logger != nil {
			h.logger.Printf("ws: serialize failed: %v", err)
		}
		return
	}
	payload := buf.Bytes()

	h.mu.RLock()
	targets := make([]*session, 0, len(h.sessions))
	for _, s := range h.sessions {
		targets = append(targets, s)
	}
	h.mu.RUnlock()

	for _, s := range targets {
		if err := s.writeBinary(payload); err != nil && h.logger != nil {
			h.logger.Printf("ws: broadcast write failed: %v", err)
		}
	}
}
