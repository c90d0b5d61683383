package websocket

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/lorrc/service-desk-analytics/internal/clock"
	"github.com/lorrc/service-desk-analytics/internal/core/ports"
	"github.com/lorrc/service-desk-analytics/internal/core/services"
	"github.com/lorrc/service-desk-analytics/internal/infrastructure/logging"
	"github.com/lorrc/service-desk-analytics/internal/infrastructure/metrics"
)

// HubConfig holds what every session needs to build its pipeline.
type HubConfig struct {
	Arbitrator     ports.MetricsArbitrator
	Clock          clock.Clock
	DebounceWindow time.Duration
	Recorder       ports.MetricsRecorder
}

// Hub maintains the set of active dashboard sessions.
type Hub struct {
	cfg HubConfig

	clients map[*Client]bool

	// mu protects the clients map
	mu sync.RWMutex

	// done is closed once Run returns
	done chan struct{}
	ctx  context.Context

	logger *slog.Logger
}

// NewHub creates a new WebSocket hub
func NewHub(cfg HubConfig, logger *slog.Logger) *Hub {
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Recorder == nil {
		cfg.Recorder = ports.NopRecorder{}
	}
	return &Hub{
		cfg:     cfg,
		clients: make(map[*Client]bool),
		done:    make(chan struct{}),
		ctx:     context.Background(),
		logger:  logger.With("component", "websocket_hub"),
	}
}

// Run keeps the hub alive until ctx is done, then closes every session.
// Sessions created afterwards are closed immediately.
func (h *Hub) Run(ctx context.Context) {
	h.mu.Lock()
	h.ctx = ctx
	h.mu.Unlock()

	<-ctx.Done()

	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
		delete(h.clients, c)
	}
	close(h.done)
	h.mu.Unlock()

	for _, c := range clients {
		c.shutdown()
	}
	metrics.ActiveWebSocketSessions.Sub(float64(len(clients)))
	h.logger.Info("websocket hub stopped", "closed_sessions", len(clients))
}

// Attach creates a session for conn and registers it. The caller starts
// the pumps.
func (h *Hub) Attach(conn *websocket.Conn, subject string) *Client {
	id := uuid.NewString()

	h.mu.RLock()
	parent := h.ctx
	h.mu.RUnlock()

	ctx, cancel := context.WithCancel(logging.WithSessionID(parent, id))
	c := &Client{
		ID:      id,
		Subject: subject,
		hub:     h,
		conn:    conn,
		send:    make(chan ServerMessage, sendBuffer),
		cancel:  cancel,
		logger:  logging.LoggerFromContext(ctx, h.logger).With("user_id", subject),
	}
	c.debouncer = services.NewDebouncer(ctx, h.cfg.Arbitrator, h.cfg.Clock, h.cfg.DebounceWindow, c.deliver, h.cfg.Recorder, c.logger)

	h.registerClient(c)
	return c
}

// registerClient adds a client to the hub
func (h *Hub) registerClient(c *Client) {
	h.mu.Lock()
	select {
	case <-h.done:
		h.mu.Unlock()
		c.shutdown()
		return
	default:
	}
	h.clients[c] = true
	total := len(h.clients)
	h.mu.Unlock()

	metrics.ActiveWebSocketSessions.Inc()
	c.logger.Info("session registered", "total_sessions", total)
}

// unregisterClient removes a client from the hub and stops its pipeline
func (h *Hub) unregisterClient(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()

	c.shutdown()
	if ok {
		metrics.ActiveWebSocketSessions.Dec()
		c.logger.Info("session unregistered")
	}
}

// RecomputeAll asks every session to recompute its last filter, e.g.
// after the ticket snapshot changed.
func (h *Hub) RecomputeAll() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	h.logger.Debug("recomputing sessions", "session_count", len(clients))
	for _, c := range clients {
		c.recompute()
	}
}

// GetClientCount returns the number of connected sessions
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
