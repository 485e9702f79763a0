package liquidator

import (
	"fmt"
	"sync"
	"time"

	"cosmossdk.io/math"
)

// Tier is the liquidation tier an account sits in, derived from its
// requirement deltas. Deeper tiers use harsher liquidation paths.
type Tier int

const (
	TierHealthy Tier = iota

	// TierBid covers accounts between maintenance and liquidation margin;
	// they are liquidated through the ranked bid auction.
	TierBid

	// TierDutch covers accounts below liquidation margin but above the
	// ADL requirement; anyone may liquidate them on the dutch curve.
	TierDutch

	// TierBackstop covers accounts below the ADL requirement; the
	// backstop pool, insurance fund and ADL unwind them.
	TierBackstop
)

func (t Tier) String() string {
	switch t {
	case TierHealthy:
		return "healthy"
	case TierBid:
		return "bid"
	case TierDutch:
		return "dutch"
	case TierBackstop:
		return "backstop"
	default:
		return "unknown"
	}
}

// Deltas holds the five requirement deltas as streamed by the chain API.
// Each delta is balance minus requirement at that tier.
type Deltas struct {
	Initial     math.LegacyDec
	Maintenance math.LegacyDec
	Liquidation math.LegacyDec
	Dutch       math.LegacyDec
	Adl         math.LegacyDec
}

// Snapshot is one observed margin state of an account at a quote token.
type Snapshot struct {
	AccountID     uint64
	QuoteToken    string
	MarginBalance math.LegacyDec
	Deltas        Deltas
	ObservedAt    time.Time
}

// Key returns the cache key for the snapshot
func (s *Snapshot) Key() string {
	return snapshotKey(s.AccountID, s.QuoteToken)
}

func snapshotKey(accountID uint64, quoteToken string) string {
	return fmt.Sprintf("%d:%s", accountID, quoteToken)
}

// Tier classifies the snapshot into a liquidation tier. Requirements
// shrink from maintenance down to ADL, so the deltas are checked from the
// shallowest breach to the deepest.
func (s *Snapshot) Tier() Tier {
	if s.Deltas.Maintenance.IsNil() || s.Deltas.Maintenance.IsPositive() {
		return TierHealthy
	}
	if s.Deltas.Liquidation.IsPositive() {
		return TierBid
	}
	if s.Deltas.Adl.IsPositive() {
		return TierDutch
	}
	return TierBackstop
}

// AccountCache is a thread-safe cache of observed margin snapshots
type AccountCache struct {
	snapshots map[string]*Snapshot
	mu        sync.RWMutex
}

// NewAccountCache creates a new account cache
func NewAccountCache() *AccountCache {
	return &AccountCache{
		snapshots: make(map[string]*Snapshot),
	}
}

// Get retrieves a snapshot from the cache
func (c *AccountCache) Get(key string) (*Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snapshot, exists := c.snapshots[key]
	return snapshot, exists
}

// Set stores a snapshot in the cache
func (c *AccountCache) Set(snapshot *Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshots[snapshot.Key()] = snapshot
}

// Delete removes a snapshot from the cache
func (c *AccountCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.snapshots, key)
}

// Len returns the number of snapshots in the cache
func (c *AccountCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.snapshots)
}

// Clear removes all snapshots from the cache
func (c *AccountCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshots = make(map[string]*Snapshot)
}

// GetAll returns all snapshots in the cache
func (c *AccountCache) GetAll() []*Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snapshots := make([]*Snapshot, 0, len(c.snapshots))
	for _, snapshot := range c.snapshots {
		snapshots = append(snapshots, snapshot)
	}
	return snapshots
}

// GetByToken returns all snapshots for a specific quote token
func (c *AccountCache) GetByToken(quoteToken string) []*Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snapshots := make([]*Snapshot, 0)
	for _, snapshot := range c.snapshots {
		if snapshot.QuoteToken == quoteToken {
			snapshots = append(snapshots, snapshot)
		}
	}
	return snapshots
}

// GetBreached returns all snapshots outside the healthy tier
func (c *AccountCache) GetBreached() []*Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snapshots := make([]*Snapshot, 0)
	for _, snapshot := range c.snapshots {
		if snapshot.Tier() != TierHealthy {
			snapshots = append(snapshots, snapshot)
		}
	}
	return snapshots
}

// IntentKind names the chain message an intent maps to
type IntentKind int

const (
	IntentSubmitBid IntentKind = iota
	IntentExecuteTopBid
	IntentExecuteDutch
	IntentExecuteBackstop
	IntentCloseUnfilledOrders
)

func (k IntentKind) String() string {
	switch k {
	case IntentSubmitBid:
		return "submit_liquidation_bid"
	case IntentExecuteTopBid:
		return "execute_top_ranked_liquidation_bid"
	case IntentExecuteDutch:
		return "execute_dutch_liquidation"
	case IntentExecuteBackstop:
		return "execute_backstop_liquidation"
	case IntentCloseUnfilledOrders:
		return "close_all_unfilled_orders"
	default:
		return "unknown"
	}
}

// Intent is one clearinghouse message pending submission
type Intent struct {
	Kind              IntentKind
	AccountID         uint64
	QuoteToken        string
	LiquidatorAccount uint64
	MarketID          uint64
	Inputs            []byte
	RewardParameter   math.LegacyDec
	CreatedAt         time.Time
}

// IntentBuffer is a thread-safe buffer for intents pending submission
type IntentBuffer struct {
	intents []*Intent
	maxSize int
	mu      sync.Mutex
}

// NewIntentBuffer creates a new intent buffer with the given max size
func NewIntentBuffer(maxSize int) *IntentBuffer {
	if maxSize <= 0 {
		maxSize = 100
	}
	return &IntentBuffer{
		intents: make([]*Intent, 0, maxSize),
		maxSize: maxSize,
	}
}

// Add adds an intent to the buffer
func (b *IntentBuffer) Add(intent *Intent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.intents = append(b.intents, intent)
}

// AddBatch adds multiple intents to the buffer
func (b *IntentBuffer) AddBatch(intents []*Intent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.intents = append(b.intents, intents...)
}

// Flush returns all intents and clears the buffer
func (b *IntentBuffer) Flush() []*Intent {
	b.mu.Lock()
	defer b.mu.Unlock()
	intents := b.intents
	b.intents = make([]*Intent, 0, b.maxSize)
	return intents
}

// FlushBatch returns up to maxSize intents and removes them from the buffer
func (b *IntentBuffer) FlushBatch() []*Intent {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.intents) == 0 {
		return nil
	}

	count := b.maxSize
	if len(b.intents) < count {
		count = len(b.intents)
	}

	batch := b.intents[:count]
	b.intents = b.intents[count:]
	return batch
}

// Len returns the number of intents in the buffer
func (b *IntentBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.intents)
}

// IsFull returns true if the buffer is at or above max size
func (b *IntentBuffer) IsFull() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.intents) >= b.maxSize
}

// Clear removes all intents from the buffer
func (b *IntentBuffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.intents = make([]*Intent, 0, b.maxSize)
}

// Peek returns the intents without removing them (for inspection)
func (b *IntentBuffer) Peek() []*Intent {
	b.mu.Lock()
	defer b.mu.Unlock()
	result := make([]*Intent, len(b.intents))
	copy(result, b.intents)
	return result
}
