package sse

import (
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rumbify/rumbify/internal/model"
)

// historySize is how many past events a hub keeps for reconnecting clients
const historySize = 64

type event struct {
	id      uint64
	message []byte
}

type outgoing struct {
	name string
	data string
}

// Hub fans a party's events out to its SSE clients. Event ids and the
// replay history belong to the Run goroutine, so a reconnecting client
// receives every missed event exactly once.
type Hub struct {
	partyID model.PartyID
	clients map[*Client]bool
	mu      sync.RWMutex
	logger  *slog.Logger

	register   chan *Client
	unregister chan *Client
	broadcast  chan outgoing
	done       chan struct{}
	closeOnce  sync.Once

	// owned by Run
	seq     uint64
	history []event
}

// NewHub creates a hub for partyID; start it with Run
func NewHub(partyID model.PartyID, logger *slog.Logger) *Hub {
	return &Hub{
		partyID:    partyID,
		clients:    make(map[*Client]bool),
		logger:     logger.With(slog.String("party", string(partyID))),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan outgoing, 256),
		done:       make(chan struct{}),
	}
}

// Run is the hub's event loop; it returns after Close
func (h *Hub) Run() {
	h.logger.Debug("sse hub started")
	for {
		select {
		case client := <-h.register:
			replayed := h.replay(client)
			h.mu.Lock()
			h.clients[client] = true
			clientCount := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("sse client registered",
				slog.String("user_id", string(client.userID)),
				slog.Int("replayed", replayed),
				slog.Int("total_clients", clientCount))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				clientCount := len(h.clients)
				h.mu.Unlock()
				h.logger.Info("sse client unregistered",
					slog.String("user_id", string(client.userID)),
					slog.Duration("connection_duration", time.Since(client.connectedAt)),
					slog.Int("total_clients", clientCount))
			} else {
				h.mu.Unlock()
			}

		case out := <-h.broadcast:
			h.seq++
			ev := event{id: h.seq, message: formatSSEMessage(h.seq, out.name, out.data)}
			h.history = append(h.history, ev)
			if len(h.history) > historySize {
				h.history = h.history[len(h.history)-historySize:]
			}

			h.mu.RLock()
			sent, dropped := 0, 0
			for client := range h.clients {
				select {
				case client.send <- ev.message:
					sent++
				default:
					dropped++
				}
			}
			h.mu.RUnlock()
			if dropped > 0 {
				h.logger.Warn("sse broadcast partial failure",
					slog.String("event", out.name),
					slog.Int("sent", sent),
					slog.Int("dropped", dropped))
			}

		case <-h.done:
			h.mu.Lock()
			clientCount := len(h.clients)
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			h.logger.Info("sse hub stopped", slog.Int("disconnected_clients", clientCount))
			return
		}
	}
}

// replay queues the history after the client's last seen id. A fresh
// client's buffer is larger than the history, so nothing is dropped.
func (h *Hub) replay(client *Client) int {
	if client.lastEventID == 0 {
		return 0
	}
	n := 0
	for _, ev := range h.history {
		if ev.id <= client.lastEventID {
			continue
		}
		select {
		case client.send <- ev.message:
			n++
		default:
		}
	}
	return n
}

// Register adds a client to the hub; it returns false if the hub is closed
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// BroadcastEvent queues a named event for every client. The hub numbers it
// and keeps it for replay.
func (h *Hub) BroadcastEvent(eventName, data string) {
	select {
	case h.broadcast <- outgoing{name: eventName, data: data}:
	default:
		h.logger.Warn("sse broadcast dropped, hub buffer full", slog.String("event", eventName))
	}
}

// Close shuts down the hub
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// formatSSEMessage renders one event. Each line of data gets its own
// "data: " prefix; id 0 omits the id field.
func formatSSEMessage(id uint64, eventName, data string) []byte {
	var b strings.Builder
	if id > 0 {
		b.WriteString("id: ")
		b.WriteString(strconv.FormatUint(id, 10))
		b.WriteByte('\n')
	}
	b.WriteString("event: ")
	b.WriteString(eventName)
	b.WriteByte('\n')
	for _, line := range splitLines(data) {
		b.WriteString("data: ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	return []byte(b.String())
}

// splitLines splits on \n and drops \r; a trailing newline adds no empty line
func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.TrimSuffix(s, "\n")
	return strings.Split(s, "\n")
}

// HubManager manages hubs for all parties
type HubManager struct {
	hubs   map[model.PartyID]*Hub
	mu     sync.RWMutex
	logger *slog.Logger
}

// NewHubManager creates a new HubManager
func NewHubManager(logger *slog.Logger) *HubManager {
	return &HubManager{
		hubs:   make(map[model.PartyID]*Hub),
		logger: logger.With(slog.String("component", "sse")),
	}
}

// GetOrCreateHub returns the hub for a party, creating one if it doesn't exist
func (m *HubManager) GetOrCreateHub(partyID model.PartyID) *Hub {
	m.mu.Lock()
	defer m.mu.Unlock()

	if hub, ok := m.hubs[partyID]; ok {
		return hub
	}

	hub := NewHub(partyID, m.logger)
	m.hubs[partyID] = hub
	go hub.Run()
	return hub
}

// GetHub returns the hub for a party, or nil if it doesn't exist
func (m *HubManager) GetHub(partyID model.PartyID) *Hub {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hubs[partyID]
}

// RemoveHub removes and closes a hub
func (m *HubManager) RemoveHub(partyID model.PartyID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if hub, ok := m.hubs[partyID]; ok {
		hub.Close()
		delete(m.hubs, partyID)
	}
}

// CleanupEmptyHubs removes hubs with no clients
func (m *HubManager) CleanupEmptyHubs() {
	m.mu.Lock()
	defer m.mu.Unlock()

	removedCount := 0
	for id, hub := range m.hubs {
		if hub.ClientCount() == 0 {
			hub.Close()
			delete(m.hubs, id)
			removedCount++
		}
	}
	if removedCount > 0 {
		m.logger.Info("sse empty hubs cleaned up", slog.Int("removed", removedCount))
	}
}

// Close shuts down every hub
func (m *HubManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, hub := range m.hubs {
		hub.Close()
		delete(m.hubs, id)
	}
}
