package devserver

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/skiff-dev/skiff/internal/report"
)

// hub tracks a set of WebSocket clients on one endpoint and fans
// broadcast payloads out to all of them.
type hub struct {
	name     string
	logger   zerolog.Logger
	metrics  *metrics
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]bool
	closed  bool
}

func newHub(name string, logger zerolog.Logger, m *metrics) *hub {
	return &hub{
		name:    name,
		logger:  logger.With().Str("socket", name).Logger(),
		metrics: m,
		upgrader: websocket.Upgrader{
			// Dev server only; connections come from local tooling
			// and in-app clients on the LAN.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]bool),
	}
}

// ServeHTTP upgrades the connection and keeps it registered until the
// client disconnects. Inbound frames are read and discarded so pings
// and close frames are processed.
func (h *hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[conn] = true
	h.mu.Unlock()
	h.metrics.connectedClients.WithLabelValues(h.name).Inc()
	h.logger.Debug().Msg("client connected")

	defer func() {
		h.remove(conn)
		h.logger.Debug().Msg("client disconnected")
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	_, present := h.clients[conn]
	delete(h.clients, conn)
	h.mu.Unlock()
	conn.Close()
	if present {
		h.metrics.connectedClients.WithLabelValues(h.name).Dec()
	}
}

// broadcast sends payload as a JSON text frame to every client.
// Clients that fail to accept the write are dropped.
func (h *hub) broadcast(payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error().Err(err).Msg("broadcast payload not serializable")
		return
	}

	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.remove(conn)
		}
	}
	h.metrics.broadcasts.WithLabelValues(h.name).Inc()
}

// clientCount returns the number of connected clients.
func (h *hub) clientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// close disconnects all clients and rejects future connections.
func (h *hub) close() {
	h.mu.Lock()
	h.closed = true
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.clients = make(map[*websocket.Conn]bool)
	h.mu.Unlock()

	for _, conn := range conns {
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		conn.Close()
	}
	h.metrics.connectedClients.WithLabelValues(h.name).Set(0)
}

// MessageSocket broadcasts named messages to connected dev clients.
type MessageSocket struct {
	hub *hub
}

// broadcastMessage is the wire shape sent to message clients.
type broadcastMessage struct {
	Method string         `json:"method"`
	Params map[string]any `json:"params,omitempty"`
}

// Broadcast sends a named message with optional parameters to every
// connected client.
func (s *MessageSocket) Broadcast(method string, params map[string]any) {
	s.hub.broadcast(broadcastMessage{Method: method, Params: params})
}

// ClientCount returns the number of connected message clients.
func (s *MessageSocket) ClientCount() int {
	return s.hub.clientCount()
}

func (s *MessageSocket) handler() http.Handler { return s.hub }

// eventSocket pushes bundle progress events to connected clients. It
// implements report.Sink so a progress reporter can be bound to it.
type eventSocket struct {
	hub *hub
}

func (s *eventSocket) Emit(ev report.Event) {
	s.hub.broadcast(ev)
}

func (s *eventSocket) handler() http.Handler { return s.hub }
