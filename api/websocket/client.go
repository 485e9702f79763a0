package websocket

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 256
)

// Liquidation, queue and insurance-fund streams are public market data.
// Margin and auto-exchange streams carry per-account state and are only
// served to the account owner.
var (
	publicChannelPrefixes = []string{"liquidations:", "queue:", "insurance:"}
	ownerChannelPrefixes  = []string{"margin:", "autoexchange:"}
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The gateway fronting this server enforces origins.
		return true
	},
}

// Client is one WebSocket subscriber attached to the hub.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	id    string
	owner string // empty until authenticated
	ip    string

	subscriptions map[string]bool
	subMu         sync.RWMutex

	messageCount int
	lastReset    time.Time
	rateMu       sync.Mutex

	connectedAt   time.Time
	lastMessageAt time.Time
}

// ClientMessage is the inbound frame format: an action plus the channel
// it applies to.
type ClientMessage struct {
	Action  string          `json:"action"` // subscribe, unsubscribe, ping, auth
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func NewClient(hub *Hub, conn *websocket.Conn, id, owner, ip string) *Client {
	return &Client{
		hub:           hub,
		conn:          conn,
		send:          make(chan []byte, sendBufferSize),
		id:            id,
		owner:         owner,
		ip:            ip,
		subscriptions: make(map[string]bool),
		connectedAt:   time.Now(),
		lastReset:     time.Now(),
	}
}

// readPump drains inbound frames until the connection drops, unregistering
// the client on exit.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("websocket error: %v", err)
			}
			break
		}
		c.lastMessageAt = time.Now()

		if !c.withinRateLimit() {
			c.sendError("rate_limit_exceeded", "too many messages, slow down")
			continue
		}

		var msg ClientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.sendError("invalid_message", "failed to parse message")
			continue
		}
		c.handleMessage(&msg)
	}
}

// writePump flushes the send buffer to the connection and keeps the
// peer alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			_, _ = w.Write(message)

			// Coalesce whatever else is queued into the same frame.
			n := len(c.send)
			for i := 0; i < n; i++ {
				_, _ = w.Write([]byte{'\n'})
				_, _ = w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(msg *ClientMessage) {
	switch msg.Action {
	case "subscribe":
		c.handleSubscribe(msg.Channel)
	case "unsubscribe":
		c.handleUnsubscribe(msg.Channel)
	case "ping":
		c.handlePing()
	case "auth":
		c.handleAuth(msg.Data)
	default:
		c.sendError("unknown_action", "unknown action: "+msg.Action)
	}
}

func (c *Client) handleSubscribe(channel string) {
	if channel == "" {
		c.sendError("invalid_channel", "channel cannot be empty")
		return
	}
	if !c.canAccessChannel(channel) {
		c.sendError("unauthorized", "not authorized for channel: "+channel)
		return
	}

	c.subMu.Lock()
	if len(c.subscriptions) >= c.hub.config.MaxSubscriptions {
		c.subMu.Unlock()
		c.sendError("subscription_limit", "maximum subscription limit reached")
		return
	}
	c.subscriptions[channel] = true
	c.subMu.Unlock()

	c.hub.subscribe <- &SubscriptionRequest{
		Client:  c,
		Channel: channel,
		Action:  "subscribe",
	}
}

func (c *Client) handleUnsubscribe(channel string) {
	c.subMu.Lock()
	delete(c.subscriptions, channel)
	c.subMu.Unlock()

	c.hub.unsubscribe <- &SubscriptionRequest{
		Client:  c,
		Channel: channel,
		Action:  "unsubscribe",
	}
}

func (c *Client) handlePing() {
	response := &WSMessage{
		Type: "pong",
		Data: map[string]interface{}{
			"timestamp": time.Now().UnixMilli(),
		},
	}
	data, _ := json.Marshal(response)
	c.send <- data
}

// handleAuth binds the connection to an owner address. The gateway has
// already verified the session before the upgrade, so the frame only
// names the owner it was verified for.
func (c *Client) handleAuth(data json.RawMessage) {
	var auth struct {
		Owner string `json:"owner"`
	}
	if err := json.Unmarshal(data, &auth); err != nil || auth.Owner == "" {
		c.sendError("invalid_auth", "invalid auth data")
		return
	}
	c.owner = auth.Owner

	response := &WSMessage{
		Type: "authenticated",
		Data: map[string]interface{}{
			"owner": c.owner,
		},
	}
	data, _ = json.Marshal(response)
	c.send <- data
}

// canAccessChannel gates owner-scoped channels: "margin:<owner>" is only
// visible to the authenticated owner it names.
func (c *Client) canAccessChannel(channel string) bool {
	for _, prefix := range publicChannelPrefixes {
		if strings.HasPrefix(channel, prefix) {
			return true
		}
	}
	for _, prefix := range ownerChannelPrefixes {
		if strings.HasPrefix(channel, prefix) {
			return c.owner != "" && strings.TrimPrefix(channel, prefix) == c.owner
		}
	}
	return false
}

// withinRateLimit counts messages against a per-second window.
func (c *Client) withinRateLimit() bool {
	c.rateMu.Lock()
	defer c.rateMu.Unlock()

	now := time.Now()
	if now.Sub(c.lastReset) >= time.Second {
		c.messageCount = 0
		c.lastReset = now
	}
	c.messageCount++
	return c.messageCount <= c.hub.config.MessageRateLimit
}

func (c *Client) sendError(code, message string) {
	response := &WSMessage{
		Type: "error",
		Data: map[string]string{
			"code":    code,
			"message": message,
		},
	}
	data, _ := json.Marshal(response)
	c.send <- data
}

// Send queues a message for the client, dropping it when the buffer is
// full rather than blocking the hub.
func (c *Client) Send(message []byte) {
	select {
	case c.send <- message:
	default:
	}
}

func (c *Client) GetID() string {
	return c.id
}

func (c *Client) GetIP() string {
	return c.ip
}
