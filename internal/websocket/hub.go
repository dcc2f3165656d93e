// CineBrain - Content Loading and Recommendation Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinebrain

package websocket

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/cinebrain/internal/logging"
	"github.com/tomtom215/cinebrain/internal/metrics"
	"github.com/tomtom215/cinebrain/internal/models"
)

// ShutdownReason identifies why the hub stopped.
type ShutdownReason string

const (
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Message types
const (
	MessageTypePing         = "ping"
	MessageTypePong         = "pong"
	MessageTypePhase        = "phase"
	MessageTypeRow          = "row"
	MessageTypeNotification = "notification"
	MessageTypeControl      = "control"
	MessageTypeSession      = "session"
)

// Message is the envelope of every frame.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// PhaseData is sent with phase messages.
type PhaseData struct {
	Phase     models.LoaderPhase `json:"phase"`
	Timestamp string             `json:"timestamp"`
}

// SessionData is sent with session messages.
type SessionData struct {
	Event string       `json:"event"`
	User  *models.User `json:"user,omitempty"`
}

// Hub tracks connected clients and fans broadcasts out to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Message
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex

	// stopped is closed when RunWithContext returns so that clients never
	// block on Register/Unregister after shutdown.
	stopped  chan struct{}
	stopOnce sync.Once

	upgrader websocket.Upgrader

	// onPresence is called from the hub goroutine when the first viewer
	// connects (true) and when the last one leaves (false).
	onPresence func(viewing bool)
}

// NewHub creates a hub. allowedOrigins lists the accepted Origin headers;
// "*" accepts any origin. An empty list rejects every browser origin.
func NewHub(allowedOrigins ...string) *Hub {
	h := &Hub{
		broadcast:  make(chan Message, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		stopped:    make(chan struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		HandshakeTimeout: 10 * time.Second,
		CheckOrigin:      originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			// Non-browser clients (CLI tools, tests) send no Origin.
			return true
		}
		for _, a := range allowed {
			if a == "*" || a == origin {
				return true
			}
		}
		logging.Warn().Str("origin", origin).Msg("WebSocket connection rejected: origin not allowed")
		metrics.WSErrors.WithLabelValues("origin").Inc()
		return false
	}
}

// RunWithContext runs the hub until ctx is done, then closes every client
// and returns ctx.Err(). Shutdown takes priority over lifecycle events,
// which take priority over broadcasts.
func (h *Hub) RunWithContext(ctx context.Context) error {
	defer h.stopOnce.Do(func() { close(h.stopped) })

	for {
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case client := <-h.Register:
			h.addClient(client)
			continue
		case client := <-h.Unregister:
			h.removeClient(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		case client := <-h.Register:
			h.addClient(client)
		case client := <-h.Unregister:
			h.removeClient(client)
		case message := <-h.broadcast:
			h.broadcastToClients(message)
		}
	}
}

// Serve implements suture.Service.
func (h *Hub) Serve(ctx context.Context) error {
	return h.RunWithContext(ctx)
}

func (h *Hub) String() string {
	return "websocket-hub"
}

// ServeHTTP upgrades the request and attaches a client to the hub.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	select {
	case <-h.stopped:
		http.Error(w, "WebSocket service unavailable", http.StatusServiceUnavailable)
		return
	default:
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		metrics.WSErrors.WithLabelValues("upgrade").Inc()
		logging.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := NewClient(h, conn)
	select {
	case h.Register <- client:
		client.Start()
	case <-h.stopped:
		_ = conn.Close()
	case <-r.Context().Done():
		_ = conn.Close()
	}
}

// OnPresenceChange registers fn to be told when the hub gains its first
// viewer and loses its last one. It must be called before the hub runs.
func (h *Hub) OnPresenceChange(fn func(viewing bool)) {
	h.mu.Lock()
	h.onPresence = fn
	h.mu.Unlock()
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	before := len(h.clients)
	h.clients[client] = true
	n := len(h.clients)
	fn := h.onPresence
	h.mu.Unlock()
	metrics.WSConnections.Set(float64(n))
	logging.Debug().Int("total_clients", n).Msg("websocket client connected")

	if before == 0 && n == 1 && fn != nil {
		fn(true)
	}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	_, ok := h.clients[client]
	if ok {
		delete(h.clients, client)
		close(client.send)
	}
	n := len(h.clients)
	fn := h.onPresence
	h.mu.Unlock()
	metrics.WSConnections.Set(float64(n))
	logging.Debug().Int("total_clients", n).Msg("websocket client disconnected")

	if ok && n == 0 && fn != nil {
		fn(false)
	}
}

// unregister is called by a client's read pump when its connection ends.
func (h *Hub) unregister(client *Client) {
	select {
	case h.Unregister <- client:
	case <-h.stopped:
	}
}

// logGracefulShutdown closes every client and logs the shutdown. ctx.Err()
// is not logged as an error since cancellation is the normal stop path.
func (h *Hub) logGracefulShutdown(ctx context.Context) {
	clientCount := h.GetClientCount()
	h.closeAllClients()

	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", string(getShutdownReason(ctx))).
		Int("clients_closed", clientCount).
		Msg("websocket hub stopped")
}

func getShutdownReason(ctx context.Context) ShutdownReason {
	switch ctx.Err() {
	case context.DeadlineExceeded:
		return ShutdownReasonContextDeadline
	default:
		return ShutdownReasonContextCanceled
	}
}

// sortedClients returns the clients in connection order. h.mu must be held.
func (h *Hub) sortedClients() []*Client {
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})
	return clients
}

// broadcastToClients delivers message to every client in connection order.
// Clients whose send buffer is full are dropped.
func (h *Hub) broadcastToClients(message Message) {
	h.mu.Lock()
	var toRemove []*Client
	for _, client := range h.sortedClients() {
		select {
		case client.send <- message:
			metrics.WSMessagesSent.Inc()
		default:
			toRemove = append(toRemove, client)
		}
	}

	for _, client := range toRemove {
		close(client.send)
		delete(h.clients, client)
		metrics.WSErrors.WithLabelValues("slow_client").Inc()
	}
	n := len(h.clients)
	fn := h.onPresence
	h.mu.Unlock()

	if len(toRemove) > 0 {
		metrics.WSConnections.Set(float64(n))
		logging.Warn().Int("dropped", len(toRemove)).Msg("dropped slow websocket clients")
		if n == 0 && fn != nil {
			fn(false)
		}
	}
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.sortedClients() {
		close(client.send)
		delete(h.clients, client)
	}
	metrics.WSConnections.Set(0)
}

// BroadcastJSON queues a message for every client. It never blocks; when
// the queue is full the message is dropped.
func (h *Hub) BroadcastJSON(messageType string, data interface{}) {
	select {
	case h.broadcast <- Message{Type: messageType, Data: data}:
	default:
		metrics.WSErrors.WithLabelValues("broadcast_full").Inc()
		logging.Warn().Str("message_type", messageType).Msg("broadcast channel full, dropping message")
	}
}

// BroadcastPhase announces a page phase change.
func (h *Hub) BroadcastPhase(phase models.LoaderPhase) {
	h.BroadcastJSON(MessageTypePhase, PhaseData{
		Phase:     phase,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// BroadcastRow sends a row snapshot.
func (h *Hub) BroadcastRow(row *models.RowState) {
	h.BroadcastJSON(MessageTypeRow, row)
}

// BroadcastNotification forwards a user notification.
func (h *Hub) BroadcastNotification(n models.Notification) {
	h.BroadcastJSON(MessageTypeNotification, n)
}

// BroadcastControl sends the state of a favorite or watchlist control.
func (h *Hub) BroadcastControl(state models.ControlState) {
	h.BroadcastJSON(MessageTypeControl, state)
}

// BroadcastSession announces an authentication transition.
func (h *Hub) BroadcastSession(event string, user *models.User) {
	h.BroadcastJSON(MessageTypeSession, SessionData{Event: event, User: user})
}

// GetClientCount returns the number of connected clients.
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// MarshalMessage encodes msg as JSON.
func MarshalMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}
