package progress

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 512
	sendBufferSize = 64
)

// Client is one WebSocket connection subscribed to zero or more sessions.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan *Event

	id      string
	subject string

	subsMu sync.RWMutex
	subs   map[string]bool
}

// NewClient constructs a Client bound to hub.
func NewClient(id, subject string, hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:     hub,
		conn:    conn,
		send:    make(chan *Event, sendBufferSize),
		id:      id,
		subject: subject,
		subs:    make(map[string]bool),
	}
}

func (c *Client) addSubscription(sessionID string) {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	c.subs[sessionID] = true
}

func (c *Client) removeSubscription(sessionID string) {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	delete(c.subs, sessionID)
}

func (c *Client) subscriptions() map[string]bool {
	c.subsMu.RLock()
	defer c.subsMu.RUnlock()
	out := make(map[string]bool, len(c.subs))
	for k := range c.subs {
		out[k] = true
	}
	return out
}

// ReadPump reads subscribe/unsubscribe commands until the connection closes.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Str("client_id", c.id).Err(err).Msg("progress websocket unexpected close")
			}
			return
		}

		var cmd Command
		if err := json.Unmarshal(message, &cmd); err != nil {
			c.sendResponse(errorResponse("error", "invalid command format"))
			continue
		}
		c.handleCommand(&cmd)
	}
}

// WritePump delivers buffered events and keepalive pings to the peer.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleCommand(cmd *Command) {
	switch cmd.Action {
	case CmdSubscribe:
		if cmd.SessionID == "" {
			c.sendResponse(errorResponse(CmdSubscribe, "session_id required"))
			return
		}
		c.hub.Subscribe(c, cmd.SessionID)
		c.sendResponse(successResponse(CmdSubscribe, "subscribed to session: "+cmd.SessionID))
	case CmdUnsubscribe:
		if cmd.SessionID == "" {
			c.sendResponse(errorResponse(CmdUnsubscribe, "session_id required"))
			return
		}
		c.hub.Unsubscribe(c, cmd.SessionID)
		c.sendResponse(successResponse(CmdUnsubscribe, "unsubscribed from session: "+cmd.SessionID))
	default:
		c.sendResponse(errorResponse("error", "unknown command: "+cmd.Action))
	}
}

func (c *Client) sendResponse(resp *Response) {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteJSON(resp)
}
