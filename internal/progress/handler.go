package progress

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler upgrades GET /validate/stream/{session_id} to a WebSocket
// connection and subscribes it to that session's event stream.
type Handler struct {
	hub  *Hub
	auth Authenticator
}

// NewHandler constructs a Handler around a running Hub.
func NewHandler(hub *Hub, auth Authenticator) *Handler {
	return &Handler{hub: hub, auth: auth}
}

// ServeHTTP authenticates the caller, upgrades the connection, and
// pre-subscribes the client to the session id named in the request
// path before handing it off to its read/write pumps.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	subject, err := h.auth.Authenticate(r)
	if err != nil {
		log.Warn().Err(err).Str("remote_addr", r.RemoteAddr).Msg("progress websocket authentication failed")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	sessionID := r.PathValue("session_id")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Str("remote_addr", r.RemoteAddr).Msg("progress websocket upgrade failed")
		return
	}

	client := NewClient(uuid.NewString(), subject, h.hub, conn)
	h.hub.register <- client
	if sessionID != "" {
		h.hub.Subscribe(client, sessionID)
	}

	log.Info().Str("client_id", client.id).Str("subject", subject).Str("session_id", sessionID).Msg("progress client connected")

	go client.WritePump()
	go client.ReadPump()
}
