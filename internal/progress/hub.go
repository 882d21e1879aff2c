// Package progress implements the Agent transcript fan-out (A7): a
// WebSocket hub that broadcasts one validation run's
// Think/Act/Observe events to whoever subscribed to its session id.
package progress

import (
	"sync"

	"github.com/rs/zerolog/log"
)

type broadcastMsg struct {
	sessionID string
	event     *Event
}

// Hub manages WebSocket connections and routes events by session id.
type Hub struct {
	clients   map[*Client]bool
	bySession map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *broadcastMsg

	mu sync.RWMutex
}

// NewHub constructs an idle Hub; call Run in a goroutine to start it.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		bySession:  make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *broadcastMsg, 256),
	}
}

// Run drives the hub's event loop until the process exits.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.addClient(c)
		case c := <-h.unregister:
			h.removeClient(c)
		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

func (h *Hub) addClient(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = true
	log.Debug().Str("client_id", c.id).Int("total_clients", len(h.clients)).Msg("progress client registered")
}

func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	for sessionID := range c.subscriptions() {
		if clients, ok := h.bySession[sessionID]; ok {
			delete(clients, c)
			if len(clients) == 0 {
				delete(h.bySession, sessionID)
			}
		}
	}
	log.Debug().Str("client_id", c.id).Int("total_clients", len(h.clients)).Msg("progress client unregistered")
}

// Publish broadcasts event to every client subscribed to sessionID.
func (h *Hub) Publish(sessionID string, event *Event) {
	h.broadcast <- &broadcastMsg{sessionID: sessionID, event: event}
}

func (h *Hub) deliver(msg *broadcastMsg) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	clients, ok := h.bySession[msg.sessionID]
	if !ok {
		return
	}
	for c := range clients {
		select {
		case c.send <- msg.event:
		default:
			log.Warn().Str("client_id", c.id).Str("event_type", msg.event.Type).Msg("progress client buffer full, dropping message")
		}
	}
}

// Subscribe attaches client to a session's event stream.
func (h *Hub) Subscribe(c *Client, sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c.addSubscription(sessionID)
	if h.bySession[sessionID] == nil {
		h.bySession[sessionID] = make(map[*Client]bool)
	}
	h.bySession[sessionID][c] = true
}

// Unsubscribe detaches client from a session's event stream.
func (h *Hub) Unsubscribe(c *Client, sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c.removeSubscription(sessionID)
	if clients, ok := h.bySession[sessionID]; ok {
		delete(clients, c)
		if len(clients) == 0 {
			delete(h.bySession, sessionID)
		}
	}
}

// ClientCount reports how many clients are currently connected.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
