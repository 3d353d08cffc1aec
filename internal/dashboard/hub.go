package dashboard

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"

	"brainzzz/internal/model"
)

// hubConn is the slice of *websocket.Conn the hub needs; tests inject
// recording fakes.
type hubConn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// hub fans feed envelopes out to every connected browser. Clients that fail
// a write are evicted and closed.
type hub struct {
	mu        sync.Mutex
	clients   map[hubConn]string
	broadcast chan []byte
}

func newHub() *hub {
	return &hub{
		clients:   make(map[hubConn]string),
		broadcast: make(chan []byte, 64),
	}
}

// run delivers broadcast frames until ctx is cancelled, then closes every
// remaining client.
func (h *hub) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

func (h *hub) deliver(msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn, id := range h.clients {
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			log.Printf("dashboard: dropping client %s: %v", id, err)
			conn.Close()
			delete(h.clients, conn)
		}
	}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.Close()
		delete(h.clients, conn)
	}
}

// register adds a client and returns its id.
func (h *hub) register(conn hubConn) string {
	id := uuid.NewString()
	h.mu.Lock()
	h.clients[conn] = id
	h.mu.Unlock()
	return id
}

func (h *hub) unregister(conn hubConn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
}

func (h *hub) clientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// send queues a frame for broadcast. Frames are dropped when the hub is
// backed up rather than blocking event handling.
func (h *hub) send(msg []byte) {
	select {
	case h.broadcast <- msg:
	default:
		log.Printf("dashboard: broadcast queue full, dropping frame")
	}
}

// sendEnvelope relays one feed envelope verbatim.
func (h *hub) sendEnvelope(env model.Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		log.Printf("dashboard: encode envelope: %v", err)
		return
	}
	h.send(data)
}

// controlEnvelope wraps a dashboard-originated message in the feed's
// envelope format.
func controlEnvelope(message string, extra map[string]any) model.Envelope {
	payload := map[string]any{"message": message}
	for k, v := range extra {
		payload[k] = v
	}
	data, _ := json.Marshal(payload)
	return model.Envelope{
		Type:          model.EventControl,
		SchemaVersion: "1.0.0",
		TS:            time.Now().UTC().Format(time.RFC3339),
		Data:          data,
	}
}
