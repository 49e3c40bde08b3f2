package ws

import (
	"log/slog"
	"sync"

	"github.com/channel-music/channel/internal/feed"
	"github.com/channel-music/channel/internal/models"
)

const connectionBuffer = 100

// Hub fans library events out to live websocket connections.
type Hub struct {
	feed *feed.Feed

	// Map of connection id -> outbound channel
	connections map[string]chan models.ServerMessage

	mu sync.RWMutex
}

func NewHub(maxEvents int) *Hub {
	h := &Hub{
		connections: make(map[string]chan models.ServerMessage),
	}
	h.feed = feed.New(feed.Config{
		MaxEvents:     maxEvents,
		EventCallback: h.handleEventCallback,
	})
	return h
}

// Publish records a library change and broadcasts it.
func (h *Hub) Publish(eventType models.EventType, song models.Song) {
	h.feed.Add(eventType, song)
}

// Join registers a connection. The returned channel starts with a hello
// message carrying the current sequence number.
func (h *Hub) Join(connID string) chan models.ServerMessage {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.connections[connID]; ok {
		return nil
	}

	ch := make(chan models.ServerMessage, connectionBuffer)
	ch <- models.ServerMessage{
		Type:    models.ServerMessageTypeHello,
		LastSeq: h.feed.LastSeq(),
	}
	h.connections[connID] = ch
	h.feed.Join(connID)

	return ch
}

func (h *Hub) Leave(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.feed.Leave(connID)
	if ch, ok := h.connections[connID]; ok {
		close(ch)
		delete(h.connections, connID)
	}
}

// Dispatch handles a message from a client.
func (h *Hub) Dispatch(connID string, msg models.ClientMessage) {
	switch msg.Type {
	case models.ClientMessageTypeSync:
		events, complete := h.feed.Since(msg.FromSeq)
		h.send(connID, models.ServerMessage{
			Type:    models.ServerMessageTypeEvents,
			LastSeq: h.feed.LastSeq(),
			Events:  events,
			Reset:   !complete,
		})
	default:
		slog.Warn("unknown client message", "conn_id", connID, "type", msg.Type)
	}
}

// Connections returns the number of live connections.
func (h *Hub) Connections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

func (h *Hub) handleEventCallback(receiverID string, event models.LibraryEvent) {
	h.send(receiverID, models.ServerMessage{
		Type:    models.ServerMessageTypeEvents,
		LastSeq: event.Seq,
		Events:  []models.LibraryEvent{event},
	})
}

// send delivers msg without blocking. The read lock is held across the send
// so Leave cannot close the channel underneath it.
func (h *Hub) send(connID string, msg models.ServerMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ch, online := h.connections[connID]
	if !online {
		return
	}

	select {
	case ch <- msg:
	default:
		slog.Warn("dropping message for slow connection", "conn_id", connID, "type", msg.Type)
	}
}
