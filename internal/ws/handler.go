package ws

import (
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"

	"trailstate/server/facade"
	"trailstate/server/internal/telemetry"
	"trailstate/server/refsim"
	"trailstate/server/simcontract"
)

// clientMessage is the inbound command envelope, one JSON object per
// websocket text frame (the teacher's own transport convention).
type clientMessage struct {
	Type          string  `json:"type"`
	CommandID     uint64  `json:"commandId"`
	Frame         uint64  `json:"frame"`
	Authoritative bool    `json:"authoritative"`
	DX            float64 `json:"dx"`
	DY            float64 `json:"dy"`
	Target        uint64  `json:"target"`
	Amount        float64 `json:"amount"`
	Name          string  `json:"name"`
	Value         float64 `json:"value"`
}

// ackMessage confirms a command was accepted and at what frame it landed.
type ackMessage struct {
	Type      string `json:"type"`
	CommandID uint64 `json:"commandId"`
	Frame     uint64 `json:"frame"`
}

// rejectMessage reports why a command submission failed.
type rejectMessage struct {
	Type      string `json:"type"`
	CommandID uint64 `json:"commandId"`
	Reason    string `json:"reason"`
}

// Handler upgrades HTTP connections to websockets and dispatches inbound
// commands to the facade.
type Handler struct {
	hub      *Hub
	manager  *facade.Manager
	logger   telemetry.Logger
	upgrader websocket.Upgrader
}

// NewHandler constructs a Handler routing submissions through manager and
// registering connections with hub.
func NewHandler(hub *Hub, manager *facade.Manager, logger telemetry.Logger) *Handler {
	return &Handler{
		hub:     hub,
		manager: manager,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	playerIDRaw := r.URL.Query().Get("player")
	playerNumber, err := strconv.ParseUint(playerIDRaw, 10, 64)
	if err != nil {
		http.Error(w, "missing or invalid player", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		if h.logger != nil {
			h.logger.Printf("ws: upgrade failed for %d: %v", playerNumber, err)
		}
		return
	}
	sess := h.hub.Subscribe(playerIDRaw, conn)
	defer func() {
		h.hub.Unsubscribe(playerIDRaw)
		conn.Close()
	}()

	for {
		var msg clientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}

		cmd, ok := h.decode(playerNumber, msg)
		if !ok {
			_ = sess.writeJSON(rejectMessage{Type: "reject", CommandID: msg.CommandID, Reason: "unknown command type"})
			continue
		}

		frame := simcontract.Frame(msg.Frame)
		if err := h.manager.PushCommand(cmd, frame); err != nil {
			_ = sess.writeJSON(rejectMessage{Type: "reject", CommandID: msg.CommandID, Reason: err.Error()})
			continue
		}
		_ = sess.writeJSON(ackMessage{Type: "ack", CommandID: msg.CommandID, Frame: msg.Frame})
	}
}

func (h *Handler) decode(playerNumber uint64, msg clientMessage) (simcontract.Command, bool) {
	switch msg.Type {
	case "move":
		return refsim.EncodeMove(playerNumber, msg.CommandID, msg.Authoritative, msg.DX, msg.DY), true
	case "damage":
		return refsim.EncodeDamage(playerNumber, msg.CommandID, msg.Authoritative, simcontract.EntityID(msg.Target), msg.Amount), true
	case "setAttribute":
		return refsim.EncodeSetAttribute(playerNumber, msg.CommandID, msg.Authoritative, msg.Name, msg.Value), true
	default:
		return simcontract.Command{}, false
	}
}
