package sse

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rumbify/rumbify/internal/model"
)

const (
	pingPeriod     = 30 * time.Second
	sendBufferSize = 256

	// reconnect delay suggested to EventSource, in milliseconds
	retryMillis = 3000

	// LastEventIDHeader is sent by EventSource when it reconnects
	LastEventIDHeader = "Last-Event-ID"
)

// Client is one open guest stream
type Client struct {
	hub         *Hub
	userID      model.UserID
	send        chan []byte
	connectedAt time.Time
	lastEventID uint64
}

// NewClient creates a client for userID watching hub
func NewClient(hub *Hub, userID model.UserID) *Client {
	return &Client{
		hub:         hub,
		userID:      userID,
		send:        make(chan []byte, sendBufferSize),
		connectedAt: time.Now(),
	}
}

// ResumeAfter makes the hub replay the events after id when c registers
func (c *Client) ResumeAfter(id uint64) *Client {
	c.lastEventID = id
	return c
}

// Messages returns the formatted events queued for the client.
// The channel is closed when the hub drops the client.
func (c *Client) Messages() <-chan []byte {
	return c.send
}

// resumePoint reads the last seen event id from the header, or from the
// lastEventId query parameter for clients that cannot set headers
func resumePoint(r *http.Request) uint64 {
	v := r.Header.Get(LastEventIDHeader)
	if v == "" {
		v = r.URL.Query().Get("lastEventId")
	}
	id, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// ServeSSE streams hub events to the client until it disconnects or the
// hub closes
func ServeSSE(w http.ResponseWriter, r *http.Request, hub *Hub, userID model.UserID) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	client := NewClient(hub, userID).ResumeAfter(resumePoint(r))
	if !hub.Register(client) {
		http.Error(w, "Stream closed", http.StatusServiceUnavailable)
		return
	}
	defer hub.Unregister(client)

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")

	hello, _ := json.Marshal(map[string]string{"status": "connected", "party": string(hub.partyID)})
	_, _ = w.Write([]byte("event: connected\nretry: " + strconv.Itoa(retryMillis) + "\ndata: " + string(hello) + "\n\n"))
	flusher.Flush()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case message, ok := <-client.send:
			if !ok {
				return
			}
			if _, err := w.Write(message); err != nil {
				return
			}
			flusher.Flush()

		case <-ticker.C:
			if _, err := w.Write([]byte(": keepalive\n\n")); err != nil {
				return
			}
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
