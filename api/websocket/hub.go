package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Hub maintains the set of active clients and broadcasts messages
type Hub struct {
	// Registered clients by channel
	clients  map[*Client]bool
	channels map[string]map[*Client]bool // channel -> clients

	// Subscription management
	subscriptions map[string]map[*Client]bool // topic -> clients

	// Inbound messages from clients
	broadcast chan []byte

	// Register/unregister requests
	register   chan *Client
	unregister chan *Client

	// Channel subscription requests
	subscribe   chan *SubscriptionRequest
	unsubscribe chan *SubscriptionRequest

	// Buffered state snapshots, flushed on a timer
	queueBuffer     map[string]*QueueMessage     // quote token -> queue snapshot
	insuranceBuffer map[string]*InsuranceMessage // pool:token -> fund snapshot

	// Mutex for thread-safe operations
	mu sync.RWMutex

	// Configuration
	config *HubConfig
}

// HubConfig contains hub configuration
type HubConfig struct {
	// Update intervals
	QueueInterval     time.Duration // Default: 250ms
	InsuranceInterval time.Duration // Default: 1s

	// Connection limits
	MaxClientsPerIP  int
	MaxSubscriptions int

	// Rate limiting
	MessageRateLimit int // Messages per second per client
}

// DefaultHubConfig returns default hub configuration
func DefaultHubConfig() *HubConfig {
	return &HubConfig{
		QueueInterval:     250 * time.Millisecond,
		InsuranceInterval: time.Second,
		MaxClientsPerIP:   10,
		MaxSubscriptions:  50,
		MessageRateLimit:  100,
	}
}

// SubscriptionRequest represents a subscription request
type SubscriptionRequest struct {
	Client  *Client
	Channel string
	Action  string // "subscribe" or "unsubscribe"
}

// NewHub creates a new Hub
func NewHub(config *HubConfig) *Hub {
	if config == nil {
		config = DefaultHubConfig()
	}

	return &Hub{
		clients:         make(map[*Client]bool),
		channels:        make(map[string]map[*Client]bool),
		subscriptions:   make(map[string]map[*Client]bool),
		broadcast:       make(chan []byte, 256),
		register:        make(chan *Client),
		unregister:      make(chan *Client),
		subscribe:       make(chan *SubscriptionRequest, 256),
		unsubscribe:     make(chan *SubscriptionRequest, 256),
		queueBuffer:     make(map[string]*QueueMessage),
		insuranceBuffer: make(map[string]*InsuranceMessage),
		config:          config,
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	queueTicker := time.NewTicker(h.config.QueueInterval)
	insuranceTicker := time.NewTicker(h.config.InsuranceInterval)

	defer queueTicker.Stop()
	defer insuranceTicker.Stop()

	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case req := <-h.subscribe:
			h.handleSubscription(req)

		case req := <-h.unsubscribe:
			h.handleUnsubscription(req)

		case message := <-h.broadcast:
			h.broadcastMessage(message)

		case <-queueTicker.C:
			h.broadcastQueues()

		case <-insuranceTicker.C:
			h.broadcastInsurance()
		}
	}
}

// registerClient adds a new client
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = true
}

// unregisterClient removes a client
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)

		// Remove from all channels
		for channel, clients := range h.channels {
			delete(clients, client)
			if len(clients) == 0 {
				delete(h.channels, channel)
			}
		}

		// Remove from all subscriptions
		for topic := range h.subscriptions {
			delete(h.subscriptions[topic], client)
		}

		close(client.send)
	}
}

// handleSubscription handles a subscription request
func (h *Hub) handleSubscription(req *SubscriptionRequest) {
	h.mu.Lock()
	defer h.mu.Unlock()

	channel := req.Channel
	client := req.Client

	if _, ok := h.channels[channel]; !ok {
		h.channels[channel] = make(map[*Client]bool)
	}
	h.channels[channel][client] = true

	// Send subscription confirmation
	confirmation := &WSMessage{
		Type:    "subscribed",
		Channel: channel,
		Data:    nil,
	}
	data, _ := json.Marshal(confirmation)
	client.send <- data
}

// handleUnsubscription handles an unsubscription request
func (h *Hub) handleUnsubscription(req *SubscriptionRequest) {
	h.mu.Lock()
	defer h.mu.Unlock()

	channel := req.Channel
	client := req.Client

	if clients, ok := h.channels[channel]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.channels, channel)
		}
	}

	// Send unsubscription confirmation
	confirmation := &WSMessage{
		Type:    "unsubscribed",
		Channel: channel,
		Data:    nil,
	}
	data, _ := json.Marshal(confirmation)
	client.send <- data
}

// broadcastMessage sends a message to all clients in a channel
func (h *Hub) broadcastMessage(message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		select {
		case client.send <- message:
		default:
			// Client buffer is full, skip
		}
	}
}

// BroadcastToChannel sends a message to all clients subscribed to a channel
func (h *Hub) BroadcastToChannel(channel string, message interface{}) {
	h.mu.RLock()
	clients, ok := h.channels[channel]
	if !ok {
		h.mu.RUnlock()
		return
	}

	// Make a copy of clients to avoid holding lock during send
	clientList := make([]*Client, 0, len(clients))
	for client := range clients {
		clientList = append(clientList, client)
	}
	h.mu.RUnlock()

	data, err := json.Marshal(message)
	if err != nil {
		return
	}

	for _, client := range clientList {
		select {
		case client.send <- data:
		default:
			// Client buffer is full, skip
		}
	}
}

// ============ Channel-specific broadcasts ============

// UpdateQueue updates the bid queue snapshot for a quote token
func (h *Hub) UpdateQueue(quoteToken string, queue *QueueMessage) {
	h.mu.Lock()
	h.queueBuffer[quoteToken] = queue
	h.mu.Unlock()
}

// UpdateInsurance updates the insurance fund snapshot for a pool and token
func (h *Hub) UpdateInsurance(key string, fund *InsuranceMessage) {
	h.mu.Lock()
	h.insuranceBuffer[key] = fund
	h.mu.Unlock()
}

// broadcastQueues broadcasts all bid queue snapshots
func (h *Hub) broadcastQueues() {
	h.mu.RLock()
	queues := make(map[string]*QueueMessage)
	for k, v := range h.queueBuffer {
		queues[k] = v
	}
	h.mu.RUnlock()

	for quoteToken, queue := range queues {
		channel := "queue:" + quoteToken
		msg := &WSMessage{
			Type:    "queue",
			Channel: channel,
			Data:    queue,
		}
		h.BroadcastToChannel(channel, msg)
	}
}

// broadcastInsurance broadcasts all insurance fund snapshots
func (h *Hub) broadcastInsurance() {
	h.mu.RLock()
	funds := make(map[string]*InsuranceMessage)
	for k, v := range h.insuranceBuffer {
		funds[k] = v
	}
	h.mu.RUnlock()

	for key, fund := range funds {
		channel := "insurance:" + key
		msg := &WSMessage{
			Type:    "insurance",
			Channel: channel,
			Data:    fund,
		}
		h.BroadcastToChannel(channel, msg)
	}
}

// BroadcastLiquidation broadcasts a liquidation event to subscribers
func (h *Hub) BroadcastLiquidation(quoteToken string, event *LiquidationMessage) {
	channel := "liquidations:" + quoteToken
	msg := &WSMessage{
		Type:    "liquidation",
		Channel: channel,
		Data:    event,
	}
	h.BroadcastToChannel(channel, msg)
}

// BroadcastMargin broadcasts a margin update to a specific account
func (h *Hub) BroadcastMargin(accountID string, margin *MarginMessage) {
	channel := "margin:" + accountID
	msg := &WSMessage{
		Type:    "margin",
		Channel: channel,
		Data:    margin,
	}
	h.BroadcastToChannel(channel, msg)
}

// BroadcastAutoExchange broadcasts an auto-exchange event to a specific account
func (h *Hub) BroadcastAutoExchange(accountID string, event *AutoExchangeMessage) {
	channel := "autoexchange:" + accountID
	msg := &WSMessage{
		Type:    "auto_exchange",
		Channel: channel,
		Data:    event,
	}
	h.BroadcastToChannel(channel, msg)
}

// ============ Message Types ============

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type    string      `json:"type"`
	Channel string      `json:"channel"`
	Data    interface{} `json:"data,omitempty"`
}

// QueueMessage is a snapshot of the live liquidation bid queue
type QueueMessage struct {
	QueueID    string `json:"queue_id"`
	QuoteToken string `json:"quote_token"`
	AccountID  uint64 `json:"account_id"`
	Depth      int    `json:"depth"`
	TopBidID   string `json:"top_bid_id,omitempty"`
	TopRank    string `json:"top_rank,omitempty"`
	ExpiresAt  int64  `json:"expires_at"`
	Timestamp  int64  `json:"timestamp"`
}

// InsuranceMessage is a snapshot of an insurance fund
type InsuranceMessage struct {
	PoolID     uint64 `json:"pool_id"`
	QuoteToken string `json:"quote_token"`
	Balance    string `json:"balance"`
	Timestamp  int64  `json:"timestamp"`
}

// LiquidationMessage represents a liquidation event
type LiquidationMessage struct {
	EventID    string `json:"event_id"`
	Kind       string `json:"kind"` // "bid", "dutch", "backstop", "unfilled_close"
	AccountID  uint64 `json:"account_id"`
	Liquidator uint64 `json:"liquidator,omitempty"`
	QuoteToken string `json:"quote_token"`
	Penalty    string `json:"penalty,omitempty"`
	Executed   bool   `json:"executed"`
	Reason     string `json:"reason,omitempty"`
	Timestamp  int64  `json:"timestamp"`
}

// MarginMessage represents a margin requirement update for an account
type MarginMessage struct {
	AccountID   uint64 `json:"account_id"`
	QuoteToken  string `json:"quote_token"`
	Initial     string `json:"initial"`
	Maintenance string `json:"maintenance"`
	Liquidation string `json:"liquidation"`
	Dutch       string `json:"dutch"`
	Adl         string `json:"adl"`
	Timestamp   int64  `json:"timestamp"`
}

// AutoExchangeMessage represents an executed auto-exchange
type AutoExchangeMessage struct {
	AccountID      uint64 `json:"account_id"`
	Exchanger      uint64 `json:"exchanger"`
	CoveringToken  string `json:"covering_token"`
	ExchangedToken string `json:"exchanged_token"`
	Amount         string `json:"amount"`
	CoveringAmount string `json:"covering_amount"`
	Timestamp      int64  `json:"timestamp"`
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// GetChannelCount returns the number of active channels
func (h *Hub) GetChannelCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels)
}

// GetChannelClientCount returns the number of clients in a channel
func (h *Hub) GetChannelClientCount(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if clients, ok := h.channels[channel]; ok {
		return len(clients)
	}
	return 0
}

// ServeWS handles WebSocket upgrade requests
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	clientID := r.URL.Query().Get("client_id")
	if clientID == "" {
		clientID = uuid.NewString()
	}

	owner := r.URL.Query().Get("owner")
	ip := getClientIPFromRequest(r)

	client := NewClient(h, conn, clientID, owner, ip)

	h.register <- client

	go client.writePump()
	go client.readPump()
}

// Helper function to get client IP
func getClientIPFromRequest(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for i := 0; i < len(xff); i++ {
			if xff[i] == ',' {
				return xff[:i]
			}
		}
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	ip := r.RemoteAddr
	for i := len(ip) - 1; i >= 0; i-- {
		if ip[i] == ':' {
			return ip[:i]
		}
	}
	return ip
}
