package ws

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/quentinrf/plant-monitor/services/photoperiod-service/internal/domain"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// SnapshotSource provides the current evaluation for viewers that connect
// before the hub has published anything.
type SnapshotSource interface {
	Snapshot() domain.Evaluation
}

// Handler upgrades connections and registers them with the hub.
// The feed is server-to-client only; client messages are read and dropped.
type Handler struct {
	hub    *Hub
	source SnapshotSource
}

func NewHandler(hub *Hub, source SnapshotSource) *Handler {
	return &Handler{hub: hub, source: source}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade error")
		return
	}

	client := newClient(h.hub, conn)
	h.hub.Register(client, h.source)
	go client.writePump()

	h.readPump(client)
}

func (h *Handler) readPump(c *Client) {
	defer func() {
		h.hub.Unregister(c)
		c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Msg("websocket read error")
			}
			return
		}
	}
}
