package liquidator

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"cosmossdk.io/math"
)

// Config holds the liquidator daemon configuration
type Config struct {
	FlushSize     int           // Maximum intents per batch submission
	FlushInterval time.Duration // Time interval for batch submission
	WebSocketURL  string        // WebSocket URL for margin event listening
	ChainRPCURL   string        // Chain RPC URL for submission

	// LiquidatorAccount is the clearing account the daemon bids and
	// executes from.
	LiquidatorAccount uint64

	// RewardParameter is the portion of the liquidation penalty the
	// daemon asks for when bidding. Lower bids rank higher.
	RewardParameter math.LegacyDec
}

// DefaultConfig returns the default liquidator configuration
func DefaultConfig() *Config {
	return &Config{
		FlushSize:       100,
		FlushInterval:   500 * time.Millisecond,
		WebSocketURL:    "ws://localhost:8080/ws",
		ChainRPCURL:     "http://localhost:26657",
		RewardParameter: math.LegacyNewDecWithPrec(5, 1), // 0.5
	}
}

// Liquidator is the offchain liquidation keeper daemon. It watches margin
// snapshots pushed over WebSocket, classifies each account into a
// liquidation tier and batches the matching clearinghouse messages to the
// chain.
type Liquidator struct {
	config       *Config
	cache        *AccountCache
	intentBuffer *IntentBuffer
	submitter    TxSubmitter

	// tiers tracks the last classified tier per account and quote token,
	// so tier transitions fire exactly one intent per crossing.
	tiers map[string]Tier
	mu    sync.RWMutex

	// Event channel for incoming margin snapshots
	eventCh chan Event

	// Control channels
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// Event represents an incoming event from the chain's API stream
type Event struct {
	Type      EventType
	Snapshot  *Snapshot
	Timestamp time.Time
}

// EventType represents the type of stream event
type EventType int

const (
	EventTypeMarginUpdate EventType = iota
	EventTypeQueueExpired
	EventTypeAccountClosed
)

func (e EventType) String() string {
	switch e {
	case EventTypeMarginUpdate:
		return "margin_update"
	case EventTypeQueueExpired:
		return "queue_expired"
	case EventTypeAccountClosed:
		return "account_closed"
	default:
		return "unknown"
	}
}

// NewLiquidator creates a new liquidator daemon instance
func NewLiquidator(config *Config, submitter TxSubmitter) *Liquidator {
	if config == nil {
		config = DefaultConfig()
	}
	if submitter == nil {
		submitter = NewMockSubmitter()
	}

	return &Liquidator{
		config:       config,
		cache:        NewAccountCache(),
		intentBuffer: NewIntentBuffer(config.FlushSize),
		submitter:    submitter,
		tiers:        make(map[string]Tier),
		eventCh:      make(chan Event, 1000),
		stopCh:       make(chan struct{}),
	}
}

// Start starts the liquidator daemon
func (l *Liquidator) Start(ctx context.Context) error {
	log.Println("Starting liquidator daemon...")

	l.wg.Add(1)
	go l.eventLoop(ctx)

	l.wg.Add(1)
	go l.flushLoop(ctx)

	log.Println("Liquidator daemon started")
	return nil
}

// Stop stops the liquidator daemon
func (l *Liquidator) Stop() error {
	log.Println("Stopping liquidator daemon...")
	close(l.stopCh)
	l.wg.Wait()
	log.Println("Liquidator daemon stopped")
	return nil
}

// eventLoop processes incoming margin events
func (l *Liquidator) eventLoop(ctx context.Context) {
	defer l.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-l.stopCh:
			return
		case event := <-l.eventCh:
			if err := l.handleEvent(event); err != nil {
				log.Printf("Error handling event: %v", err)
			}
		}
	}
}

// flushLoop periodically submits buffered intents to the chain
func (l *Liquidator) flushLoop(ctx context.Context) {
	defer l.wg.Done()

	ticker := time.NewTicker(l.config.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Submit any remaining intents before stopping
			l.submitPendingIntents(ctx)
			return
		case <-l.stopCh:
			l.submitPendingIntents(ctx)
			return
		case <-ticker.C:
			l.submitPendingIntents(ctx)
		}
	}
}

// submitPendingIntents submits buffered intents to the chain
func (l *Liquidator) submitPendingIntents(ctx context.Context) {
	intents := l.intentBuffer.Flush()
	if len(intents) == 0 {
		return
	}

	log.Printf("Submitting %d intents to chain...", len(intents))
	if err := l.submitter.SubmitIntents(ctx, intents); err != nil {
		log.Printf("Error submitting intents: %v", err)
		// Re-buffer for retry on the next flush
		for _, intent := range intents {
			l.intentBuffer.Add(intent)
		}
	}
}

// handleEvent handles an incoming stream event
func (l *Liquidator) handleEvent(event Event) error {
	switch event.Type {
	case EventTypeMarginUpdate:
		return l.handleMarginUpdate(event.Snapshot)
	case EventTypeQueueExpired:
		return l.handleQueueExpired(event.Snapshot)
	case EventTypeAccountClosed:
		return l.handleAccountClosed(event.Snapshot)
	default:
		return fmt.Errorf("unknown event type: %v", event.Type)
	}
}

// handleMarginUpdate classifies the account and fires the matching intent
// when the account crosses into a deeper tier.
func (l *Liquidator) handleMarginUpdate(snapshot *Snapshot) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.cache.Set(snapshot)

	key := snapshot.Key()
	previous := l.tiers[key]
	current := snapshot.Tier()
	l.tiers[key] = current

	if current == previous || current == TierHealthy {
		return nil
	}

	switch current {
	case TierBid:
		// Between maintenance and liquidation margin: join the ranked
		// auction, and close the account's resting orders.
		l.intentBuffer.Add(&Intent{
			Kind:              IntentCloseUnfilledOrders,
			AccountID:         snapshot.AccountID,
			QuoteToken:        snapshot.QuoteToken,
			LiquidatorAccount: l.config.LiquidatorAccount,
			CreatedAt:         time.Now(),
		})
		l.intentBuffer.Add(l.buildBidIntent(snapshot))
	case TierDutch:
		l.intentBuffer.Add(&Intent{
			Kind:              IntentExecuteDutch,
			AccountID:         snapshot.AccountID,
			QuoteToken:        snapshot.QuoteToken,
			LiquidatorAccount: l.config.LiquidatorAccount,
			CreatedAt:         time.Now(),
		})
	case TierBackstop:
		l.intentBuffer.Add(&Intent{
			Kind:       IntentExecuteBackstop,
			AccountID:  snapshot.AccountID,
			QuoteToken: snapshot.QuoteToken,
			CreatedAt:  time.Now(),
		})
	}

	return nil
}

// handleQueueExpired requests execution of the top ranked bid once the
// account's queue generation closes.
func (l *Liquidator) handleQueueExpired(snapshot *Snapshot) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.intentBuffer.Add(&Intent{
		Kind:              IntentExecuteTopBid,
		AccountID:         snapshot.AccountID,
		QuoteToken:        snapshot.QuoteToken,
		LiquidatorAccount: l.config.LiquidatorAccount,
		CreatedAt:         time.Now(),
	})
	return nil
}

// handleAccountClosed drops the account from the watch list
func (l *Liquidator) handleAccountClosed(snapshot *Snapshot) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.cache.Delete(snapshot.Key())
	delete(l.tiers, snapshot.Key())
	return nil
}

// buildBidIntent assembles a ranked auction bid for the account. The
// reward parameter comes from configuration; a lower ask ranks higher in
// the queue.
func (l *Liquidator) buildBidIntent(snapshot *Snapshot) *Intent {
	return &Intent{
		Kind:              IntentSubmitBid,
		AccountID:         snapshot.AccountID,
		QuoteToken:        snapshot.QuoteToken,
		LiquidatorAccount: l.config.LiquidatorAccount,
		RewardParameter:   l.config.RewardParameter,
		CreatedAt:         time.Now(),
	}
}

// ObserveMargin feeds a margin snapshot into the daemon (simulated
// WebSocket delivery).
func (l *Liquidator) ObserveMargin(snapshot *Snapshot) {
	l.eventCh <- Event{
		Type:      EventTypeMarginUpdate,
		Snapshot:  snapshot,
		Timestamp: time.Now(),
	}
}

// ObserveQueueExpiry signals that an account's bid queue generation has
// closed and the top bid can be executed.
func (l *Liquidator) ObserveQueueExpiry(accountID uint64, quoteToken string) {
	l.eventCh <- Event{
		Type:      EventTypeQueueExpired,
		Snapshot:  &Snapshot{AccountID: accountID, QuoteToken: quoteToken},
		Timestamp: time.Now(),
	}
}

// GetSnapshot returns the last observed snapshot for an account and token
func (l *Liquidator) GetSnapshot(accountID uint64, quoteToken string) *Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	snapshot, _ := l.cache.Get(snapshotKey(accountID, quoteToken))
	return snapshot
}

// Stats returns liquidator statistics
type Stats struct {
	WatchedAccounts int
	PendingIntents  int
	CacheSize       int
}

// GetStats returns current daemon statistics
func (l *Liquidator) GetStats() Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return Stats{
		WatchedAccounts: len(l.tiers),
		PendingIntents:  l.intentBuffer.Len(),
		CacheSize:       l.cache.Len(),
	}
}
