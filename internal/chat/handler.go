package chat

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // participants are anonymous; any origin may join
	},
}

// Handler upgrades HTTP requests to websocket connections and hands them to
// the hub.
type Handler struct {
	hub *Hub
	log zerolog.Logger
}

func NewHandler(hub *Hub, logger zerolog.Logger) *Handler {
	return &Handler{
		hub: hub,
		log: logger.With().Str("component", "ws").Logger(),
	}
}

// ServeWS handles websocket requests from clients.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &Client{
		hub:  h.hub,
		conn: conn,
		send: make(chan []byte, 256),
		id:   uuid.NewString(),
	}

	// Registration is a rendezvous with the hub loop, so the history unicast
	// is queued before any event the pumps produce.
	h.hub.register <- client

	go client.writePump()
	go client.readPump()
}
