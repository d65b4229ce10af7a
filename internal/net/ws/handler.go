package ws

import (
	"fmt"
	nethttp "net/http"

	"github.com/getsentry/sentry-go"
	"github.com/gorilla/websocket"

	"github.com/Nishit5799/multiplayerShooting/internal/hub"
	"github.com/Nishit5799/multiplayerShooting/internal/proto"
	"github.com/Nishit5799/multiplayerShooting/internal/sim"
	"github.com/Nishit5799/multiplayerShooting/internal/telemetry"
)

const defaultReadLimit = 64 << 10

type HandlerConfig struct {
	Logger telemetry.Logger
	// Codec is used for participants that do not pick one with ?codec=.
	Codec     proto.Codec
	ReadLimit int64
}

// Handler upgrades participant connections and runs their read loops.
type Handler struct {
	hub      *hub.Hub
	logger   telemetry.Logger
	codec    proto.Codec
	limit    int64
	upgrader websocket.Upgrader
}

func NewHandler(h *hub.Hub, cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.LoggerFunc(func(string, ...any) {})
	}
	codec := cfg.Codec
	if codec == nil {
		codec = proto.JSON
	}
	limit := cfg.ReadLimit
	if limit <= 0 {
		limit = defaultReadLimit
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *nethttp.Request) bool {
			return true
		},
	}

	return &Handler{hub: h, logger: logger, codec: codec, limit: limit, upgrader: upgrader}
}

// Handle serves /ws. The optional ?id= resumes a participant identity and
// ?codec= selects json or msgpack frames.
func (h *Handler) Handle(w nethttp.ResponseWriter, r *nethttp.Request) {
	codec := h.codec
	if name := r.URL.Query().Get("codec"); name != "" {
		selected, err := proto.CodecByName(name)
		if err != nil {
			nethttp.Error(w, err.Error(), nethttp.StatusBadRequest)
			return
		}
		codec = selected
	}
	playerID := r.URL.Query().Get("id")

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("upgrade failed for %q: %v", playerID, err)
		return
	}
	conn.SetReadLimit(h.limit)

	session, err := h.hub.Connect(playerID, conn, codec)
	if err != nil {
		h.logger.Printf("failed to welcome %q: %v", playerID, err)
		conn.Close()
		return
	}
	h.serve(session, conn)
}

func (h *Handler) serve(session *hub.Session, conn *websocket.Conn) {
	defer func() {
		if recovered := recover(); recovered != nil {
			sentry.CurrentHub().Recover(recovered)
			h.logger.Printf("recovered panic in session %s: %v", session.ID, recovered)
			h.hub.Disconnect(session, fmt.Sprintf("panic: %v", recovered))
		}
	}()

	for {
		messageType, payload, err := conn.ReadMessage()
		if err != nil {
			reason := "disconnect"
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				reason = "connection lost"
			}
			h.hub.Disconnect(session, reason)
			return
		}

		msg, err := proto.DecodeClientMessage(proto.CodecForFrame(messageType), payload)
		if err != nil {
			h.logger.Printf("discarding malformed message from %s: %v", session.ID, err)
			continue
		}

		if msg.Type == proto.TypeLeave {
			reason := msg.Reason
			if reason == "" {
				reason = "leave"
			}
			h.hub.Disconnect(session, reason)
			return
		}

		ok, reason := h.hub.Submit(session, msg)
		if ok {
			continue
		}
		switch reason {
		case hub.CommandRejectUnknownType:
			h.logger.Printf("unknown message type %q from %s", msg.Type, session.ID)
		case hub.CommandRejectClosed:
			return
		default:
			reject := proto.CommandReject{
				Ver:    proto.Version,
				Type:   proto.TypeCommandReject,
				Reason: reason,
				Retry:  reason == sim.CommandRejectQueueLimit,
			}
			if err := session.Send(reject); err != nil {
				h.hub.Disconnect(session, "send failed")
				return
			}
		}
	}
}
