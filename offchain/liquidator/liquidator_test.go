package liquidator

import (
	"context"
	"testing"
	"time"

	"cosmossdk.io/math"
)

func snapshotWithDeltas(accountID uint64, maintenance, liquidation, adl int64) *Snapshot {
	return &Snapshot{
		AccountID:  accountID,
		QuoteToken: "usdc",
		Deltas: Deltas{
			Initial:     math.LegacyNewDec(maintenance),
			Maintenance: math.LegacyNewDec(maintenance),
			Liquidation: math.LegacyNewDec(liquidation),
			Dutch:       math.LegacyNewDec(liquidation),
			Adl:         math.LegacyNewDec(adl),
		},
		ObservedAt: time.Now(),
	}
}

func TestSnapshotTier(t *testing.T) {
	tests := []struct {
		name                       string
		maintenance, lm, adl int64
		want                       Tier
	}{
		{"healthy", 100, 200, 300, TierHealthy},
		{"between mmr and lm", -50, 50, 150, TierBid},
		{"between lm and adl", -150, -50, 50, TierDutch},
		{"below adl", -300, -200, -100, TierBackstop},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := snapshotWithDeltas(1, tc.maintenance, tc.lm, tc.adl)
			if got := s.Tier(); got != tc.want {
				t.Errorf("expected tier %s, got %s", tc.want, got)
			}
		})
	}

	t.Run("nil deltas are healthy", func(t *testing.T) {
		s := &Snapshot{AccountID: 1, QuoteToken: "usdc"}
		if got := s.Tier(); got != TierHealthy {
			t.Errorf("expected healthy for unset deltas, got %s", got)
		}
	})
}

func TestTierCrossingFiresIntents(t *testing.T) {
	l := NewLiquidator(nil, NewMockSubmitter())

	// Crossing into the bid tier fires an order close plus a bid.
	if err := l.handleMarginUpdate(snapshotWithDeltas(1, -50, 50, 150)); err != nil {
		t.Fatalf("handleMarginUpdate failed: %v", err)
	}
	intents := l.intentBuffer.Flush()
	if len(intents) != 2 {
		t.Fatalf("expected 2 intents on bid-tier crossing, got %d", len(intents))
	}
	if intents[0].Kind != IntentCloseUnfilledOrders || intents[1].Kind != IntentSubmitBid {
		t.Errorf("expected close+bid, got %s and %s", intents[0].Kind, intents[1].Kind)
	}
	if !intents[1].RewardParameter.Equal(math.LegacyNewDecWithPrec(5, 1)) {
		t.Errorf("bid must carry the configured reward parameter, got %s", intents[1].RewardParameter.String())
	}

	// The same tier observed again is not a crossing.
	if err := l.handleMarginUpdate(snapshotWithDeltas(1, -40, 60, 160)); err != nil {
		t.Fatalf("handleMarginUpdate failed: %v", err)
	}
	if got := l.intentBuffer.Len(); got != 0 {
		t.Fatalf("expected no intents without a crossing, got %d", got)
	}

	// Falling further fires the dutch path.
	if err := l.handleMarginUpdate(snapshotWithDeltas(1, -150, -50, 50)); err != nil {
		t.Fatalf("handleMarginUpdate failed: %v", err)
	}
	intents = l.intentBuffer.Flush()
	if len(intents) != 1 || intents[0].Kind != IntentExecuteDutch {
		t.Fatalf("expected a dutch intent, got %v", intents)
	}

	// And finally the backstop.
	if err := l.handleMarginUpdate(snapshotWithDeltas(1, -300, -200, -100)); err != nil {
		t.Fatalf("handleMarginUpdate failed: %v", err)
	}
	intents = l.intentBuffer.Flush()
	if len(intents) != 1 || intents[0].Kind != IntentExecuteBackstop {
		t.Fatalf("expected a backstop intent, got %v", intents)
	}

	// Recovery to healthy is silent.
	if err := l.handleMarginUpdate(snapshotWithDeltas(1, 100, 200, 300)); err != nil {
		t.Fatalf("handleMarginUpdate failed: %v", err)
	}
	if got := l.intentBuffer.Len(); got != 0 {
		t.Fatalf("expected no intents on recovery, got %d", got)
	}
}

func TestHealthyAccountFiresNothing(t *testing.T) {
	l := NewLiquidator(nil, NewMockSubmitter())
	if err := l.handleMarginUpdate(snapshotWithDeltas(1, 100, 200, 300)); err != nil {
		t.Fatalf("handleMarginUpdate failed: %v", err)
	}
	if got := l.intentBuffer.Len(); got != 0 {
		t.Errorf("expected no intents for a healthy account, got %d", got)
	}
	if l.GetSnapshot(1, "usdc") == nil {
		t.Error("healthy snapshots must still be cached")
	}
}

func TestQueueExpiryFiresTopBidExecution(t *testing.T) {
	l := NewLiquidator(nil, NewMockSubmitter())
	if err := l.handleQueueExpired(&Snapshot{AccountID: 7, QuoteToken: "usdc"}); err != nil {
		t.Fatalf("handleQueueExpired failed: %v", err)
	}
	intents := l.intentBuffer.Flush()
	if len(intents) != 1 || intents[0].Kind != IntentExecuteTopBid {
		t.Fatalf("expected a top-bid execution intent, got %v", intents)
	}
	if intents[0].AccountID != 7 {
		t.Errorf("expected account 7, got %d", intents[0].AccountID)
	}
}

func TestAccountClosedDropsState(t *testing.T) {
	l := NewLiquidator(nil, NewMockSubmitter())
	if err := l.handleMarginUpdate(snapshotWithDeltas(3, -50, 50, 150)); err != nil {
		t.Fatalf("handleMarginUpdate failed: %v", err)
	}
	if err := l.handleAccountClosed(&Snapshot{AccountID: 3, QuoteToken: "usdc"}); err != nil {
		t.Fatalf("handleAccountClosed failed: %v", err)
	}
	if l.GetSnapshot(3, "usdc") != nil {
		t.Error("closed account must leave the cache")
	}
	stats := l.GetStats()
	if stats.WatchedAccounts != 0 || stats.CacheSize != 0 {
		t.Errorf("expected empty watch list, got %+v", stats)
	}
}

func TestSubmitPendingIntentsRebuffersOnFailure(t *testing.T) {
	submitter := NewMockSubmitter()
	l := NewLiquidator(nil, submitter)
	if err := l.handleMarginUpdate(snapshotWithDeltas(1, -50, 50, 150)); err != nil {
		t.Fatalf("handleMarginUpdate failed: %v", err)
	}

	submitter.SetSimulateFailure(true)
	l.submitPendingIntents(context.Background())
	if got := l.intentBuffer.Len(); got != 2 {
		t.Fatalf("expected failed intents re-buffered, got %d", got)
	}

	submitter.SetSimulateFailure(false)
	l.submitPendingIntents(context.Background())
	if got := l.intentBuffer.Len(); got != 0 {
		t.Fatalf("expected buffer drained after retry, got %d", got)
	}
	if got := len(submitter.GetSubmittedIntents()); got != 2 {
		t.Errorf("expected 2 intents submitted, got %d", got)
	}
}

func TestIntentBufferFlushBatch(t *testing.T) {
	buffer := NewIntentBuffer(2)
	for i := 0; i < 5; i++ {
		buffer.Add(&Intent{Kind: IntentSubmitBid, AccountID: uint64(i)})
	}
	if !buffer.IsFull() {
		t.Error("buffer past max size must report full")
	}

	batch := buffer.FlushBatch()
	if len(batch) != 2 {
		t.Fatalf("expected batch of 2, got %d", len(batch))
	}
	if batch[0].AccountID != 0 || batch[1].AccountID != 1 {
		t.Error("batches must preserve insertion order")
	}
	if buffer.Len() != 3 {
		t.Errorf("expected 3 intents left, got %d", buffer.Len())
	}

	rest := buffer.Flush()
	if len(rest) != 3 || buffer.Len() != 0 {
		t.Errorf("expected full drain, got %d flushed and %d left", len(rest), buffer.Len())
	}
}

func TestAccountCacheBreachedView(t *testing.T) {
	cache := NewAccountCache()
	cache.Set(snapshotWithDeltas(1, 100, 200, 300))
	cache.Set(snapshotWithDeltas(2, -50, 50, 150))
	cache.Set(snapshotWithDeltas(3, -300, -200, -100))

	breached := cache.GetBreached()
	if len(breached) != 2 {
		t.Fatalf("expected 2 breached accounts, got %d", len(breached))
	}
	for _, s := range breached {
		if s.AccountID == 1 {
			t.Error("healthy account must not appear in the breached view")
		}
	}
}
