package ws

import (
	"bytes"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/quentinrf/plant-monitor/services/photoperiod-service/internal/domain"
	"github.com/quentinrf/plant-monitor/services/photoperiod-service/internal/view"
)

// pendingFrames is the per-client queue depth. Every evaluation supersedes
// the previous one, so a single slot is enough.
const pendingFrames = 1

// Client is one viewer of the evaluation feed.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

func newClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{hub: hub, conn: conn, send: make(chan []byte, pendingFrames)}
}

// offer queues frame for the client. A frame still waiting to be written is
// replaced, so a slow viewer skips straight to the newest evaluation.
func (c *Client) offer(frame []byte) (replaced bool) {
	select {
	case c.send <- frame:
		return false
	default:
	}

	select {
	case <-c.send:
	default:
	}
	select {
	case c.send <- frame:
	default:
	}
	return true
}

func (c *Client) writePump() {
	defer c.conn.Close()
	for frame := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			return
		}
	}
}

// Hub fans evaluations out to WebSocket viewers and remembers the last
// frame so late joiners start from the current state.
// It implements ports.EvaluationSink.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	latest  []byte
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
	}
}

// Register adds c to the feed and queues the current evaluation for it: the
// last published frame, or source's snapshot when nothing was published yet.
// source may be nil.
func (h *Hub) Register(c *Client, source SnapshotSource) {
	var fallback []byte
	if source != nil && h.Latest() == nil {
		fallback, _ = encodeEvaluation(source.Snapshot())
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}

	switch {
	case h.latest != nil:
		c.offer(h.latest)
	case fallback != nil:
		c.offer(fallback)
	}
}

func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// PublishEvaluation encodes ev once and offers it to every viewer.
// A frame identical to the previous one is not resent.
func (h *Hub) PublishEvaluation(ev domain.Evaluation) {
	frame, err := encodeEvaluation(ev)
	if err != nil {
		log.Error().Err(err).Msg("failed to encode evaluation")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if bytes.Equal(frame, h.latest) {
		return
	}
	h.latest = frame

	for c := range h.clients {
		if c.offer(frame) {
			log.Debug().Str("state", string(ev.Phase.State())).Msg("viewer behind, replaced unsent evaluation")
		}
	}
}

// Latest returns the last published frame, or nil before the first one.
func (h *Hub) Latest() []byte {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.latest
}

// ClientCount returns the number of connected viewers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func encodeEvaluation(ev domain.Evaluation) ([]byte, error) {
	return NewEnvelope(TypeEvaluation, view.NewEvaluation(ev))
}
