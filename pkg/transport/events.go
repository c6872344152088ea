package transport

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/lantos1618/better-ui-sub002/internal/metrics"
)

// Hub broadcasts execution events to websocket subscribers. Slow or
// broken clients are dropped rather than blocking the broadcaster.
type Hub struct {
	upgrader websocket.Upgrader
	clients  map[*websocket.Conn]bool
	metrics  *metrics.Metrics
	logger   zerolog.Logger
	mu       sync.Mutex
	closed   bool
}

// NewHub creates an event hub.
func NewHub(m *metrics.Metrics, logger zerolog.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Discovery events carry no secrets; any origin may subscribe.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]bool),
		metrics: m,
		logger:  logger,
	}
}

// HandleUpgrade upgrades an HTTP request to a websocket subscription.
func (h *Hub) HandleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[conn] = true
	count := len(h.clients)
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.EventClientsConnected.Set(float64(count))
	}
	h.logger.Debug().Int("clients", count).Msg("Event subscriber connected")

	// Drain reads until the peer goes away.
	go func() {
		defer h.remove(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Broadcast sends an event to every subscriber. The hub lock is held for
// the writes; gorilla connections allow only one concurrent writer.
func (h *Hub) Broadcast(event ExecutionEvent) {
	h.mu.Lock()
	var failed []*websocket.Conn
	for conn := range h.clients {
		if err := conn.WriteJSON(event); err != nil {
			failed = append(failed, conn)
		}
	}
	sent := len(h.clients) - len(failed)
	for _, conn := range failed {
		delete(h.clients, conn)
		conn.Close()
	}
	count := len(h.clients)
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.EventClientsConnected.Set(float64(count))
		if sent > 0 {
			h.metrics.EventsBroadcastTotal.Inc()
		}
	}
}

// Close disconnects every subscriber and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.clients = make(map[*websocket.Conn]bool)
	h.mu.Unlock()

	for _, conn := range conns {
		conn.Close()
	}

	if h.metrics != nil {
		h.metrics.EventClientsConnected.Set(0)
	}
}

// Subscribers returns the current subscriber count.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	if _, ok := h.clients[conn]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, conn)
	count := len(h.clients)
	h.mu.Unlock()

	conn.Close()

	if h.metrics != nil {
		h.metrics.EventClientsConnected.Set(float64(count))
	}
	h.logger.Debug().Int("clients", count).Msg("Event subscriber disconnected")
}
