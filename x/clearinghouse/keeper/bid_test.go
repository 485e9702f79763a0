package keeper

import (
	"testing"
	"time"

	"cosmossdk.io/math"

	"github.com/openalpha/clearing-core/x/clearinghouse/types"
	collateraltypes "github.com/openalpha/clearing-core/x/collateral/types"
)

func TestSubmitLiquidationBid(t *testing.T) {
	env, ctx := setupEnv(t)
	env.distressedLiquidatee(t, ctx)
	env.deposit(t, ctx, liquidatorID, "usdc", 1000)

	bid, queueID, err := env.keeper.SubmitLiquidationBid(
		ctx, "bob", liquidateeID, liquidatorID, "usdc",
		[]types.BidOrder{{MarketID: testMarketID}},
		"", math.LegacyNewDecWithPrec(5, 1),
	)
	if err != nil {
		t.Fatalf("SubmitLiquidationBid failed: %v", err)
	}
	if queueID != 1 {
		t.Errorf("expected first queue generation 1, got %d", queueID)
	}
	if bid.ID == "" {
		t.Error("bid id must be assigned")
	}
	// Rank is reward times reachable notional: 0.5 * 400.
	if !bid.Rank.Equal(math.LegacyNewDec(200)) {
		t.Errorf("expected rank 200, got %s", bid.Rank.String())
	}

	queue := env.keeper.GetBidQueue(ctx, liquidateeID, "usdc", queueID)
	if queue == nil {
		t.Fatal("queue not persisted")
	}
	if len(queue.Bids) != 1 {
		t.Fatalf("expected 1 bid in queue, got %d", len(queue.Bids))
	}
	if queue.Bids[0].ID != bid.ID {
		t.Errorf("persisted bid id mismatch: %s vs %s", queue.Bids[0].ID, bid.ID)
	}
	if got := env.keeper.GetLatestQueueID(ctx, liquidateeID, "usdc"); got != 1 {
		t.Errorf("expected latest queue id 1, got %d", got)
	}
}

func TestSubmitLiquidationBidBandRejections(t *testing.T) {
	env, ctx := setupEnv(t)
	env.deposit(t, ctx, liquidatorID, "usdc", 1000)
	orders := []types.BidOrder{{MarketID: testMarketID}}
	reward := math.LegacyNewDecWithPrec(5, 1)

	// Healthy account: 1000 against LM 200, maintenance delta positive.
	env.setExposure(t, ctx, liquidateeID, 400, 0)
	env.deposit(t, ctx, liquidateeID, "usdc", 1000)
	if _, _, err := env.keeper.SubmitLiquidationBid(ctx, "bob", liquidateeID, liquidatorID, "usdc", orders, "", reward); err == nil {
		t.Error("expected bid on healthy account to be rejected")
	}

	// Below LM: withdraw down to 150 against LM 200.
	if err := env.collateralKeeper.Withdraw(ctx, liquidateeID, "usdc", math.LegacyNewDec(850)); err != nil {
		t.Fatalf("Withdraw failed: %v", err)
	}
	if _, _, err := env.keeper.SubmitLiquidationBid(ctx, "bob", liquidateeID, liquidatorID, "usdc", orders, "", reward); err == nil {
		t.Error("expected bid below LM to be rejected")
	}
}

func TestSubmitLiquidationBidValidation(t *testing.T) {
	env, ctx := setupEnv(t)
	env.distressedLiquidatee(t, ctx)
	env.deposit(t, ctx, liquidatorID, "usdc", 1000)
	reward := math.LegacyNewDecWithPrec(5, 1)

	// No orders.
	if _, _, err := env.keeper.SubmitLiquidationBid(ctx, "bob", liquidateeID, liquidatorID, "usdc", nil, "", reward); err == nil {
		t.Error("expected empty bid to be rejected")
	}

	// Too many orders.
	many := make([]types.BidOrder, env.pool.MaxOrdersPerBid+1)
	for i := range many {
		many[i] = types.BidOrder{MarketID: testMarketID}
	}
	if _, _, err := env.keeper.SubmitLiquidationBid(ctx, "bob", liquidateeID, liquidatorID, "usdc", many, "", reward); err == nil {
		t.Error("expected oversized bid to be rejected")
	}

	// Quote token mismatch.
	if _, _, err := env.keeper.SubmitLiquidationBid(ctx, "bob", liquidateeID, liquidatorID, "eth",
		[]types.BidOrder{{MarketID: testMarketID}}, "", reward); err == nil {
		t.Error("expected quote token mismatch to be rejected")
	}

	// Unregistered hook.
	if _, _, err := env.keeper.SubmitLiquidationBid(ctx, "bob", liquidateeID, liquidatorID, "usdc",
		[]types.BidOrder{{MarketID: testMarketID}}, "no-such-hook", reward); err == nil {
		t.Error("expected unregistered hook to be rejected")
	}

	// Sender without admin on the liquidator account.
	if _, _, err := env.keeper.SubmitLiquidationBid(ctx, "mallory", liquidateeID, liquidatorID, "usdc",
		[]types.BidOrder{{MarketID: testMarketID}}, "", reward); err == nil {
		t.Error("expected non-admin sender to be rejected")
	}

	// Market-side order validation failure.
	env.market.validateErr = errOrderRejected
	if _, _, err := env.keeper.SubmitLiquidationBid(ctx, "bob", liquidateeID, liquidatorID, "usdc",
		[]types.BidOrder{{MarketID: testMarketID}}, "", reward); err == nil {
		t.Error("expected market validation failure to be surfaced")
	}
	env.market.validateErr = nil
}

func TestSubmitLiquidationBidLiquidatorPoolChecks(t *testing.T) {
	env, ctx := setupEnv(t)
	env.distressedLiquidatee(t, ctx)

	// Liquidator in a different pool.
	other := collateraltypes.DefaultCollateralPool(2, "pool-owner")
	if err := env.collateralKeeper.CreateCollateralPool(ctx, other); err != nil {
		t.Fatalf("failed to create second pool: %v", err)
	}
	if _, err := env.collateralKeeper.CreateAccount(ctx, 50, "dave", other.ID, collateraltypes.AccountModeMultiToken); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}
	if _, _, err := env.keeper.SubmitLiquidationBid(ctx, "dave", liquidateeID, 50, "usdc",
		[]types.BidOrder{{MarketID: testMarketID}}, "", math.LegacyNewDecWithPrec(5, 1)); err == nil {
		t.Error("expected cross-pool liquidator to be rejected")
	}

	// Liquidator itself below IM: LM 200 means IM requirement 400 against
	// a 100 balance.
	env.setExposure(t, ctx, liquidatorID, 400, 0)
	env.deposit(t, ctx, liquidatorID, "usdc", 100)
	if _, _, err := env.keeper.SubmitLiquidationBid(ctx, "bob", liquidateeID, liquidatorID, "usdc",
		[]types.BidOrder{{MarketID: testMarketID}}, "", math.LegacyNewDecWithPrec(5, 1)); err == nil {
		t.Error("expected undermargined liquidator to be rejected")
	}
}

func TestBidRankOrdering(t *testing.T) {
	env, ctx := setupEnv(t)
	env.distressedLiquidatee(t, ctx)
	env.deposit(t, ctx, liquidatorID, "usdc", 1000)

	low, _ := env.submitBid(t, ctx, "0.2")
	high, _ := env.submitBid(t, ctx, "0.5")
	mid, _ := env.submitBid(t, ctx, "0.3")

	queue := env.keeper.GetBidQueue(ctx, liquidateeID, "usdc", 1)
	if len(queue.Bids) != 3 {
		t.Fatalf("expected 3 bids, got %d", len(queue.Bids))
	}
	if queue.Bids[0].ID != high.ID || queue.Bids[1].ID != mid.ID || queue.Bids[2].ID != low.ID {
		t.Errorf("expected rank-descending order [%s %s %s], got [%s %s %s]",
			high.ID, mid.ID, low.ID, queue.Bids[0].ID, queue.Bids[1].ID, queue.Bids[2].ID)
	}
}

func TestBidRankTieBreaksBySubmissionOrder(t *testing.T) {
	env, ctx := setupEnv(t)
	env.distressedLiquidatee(t, ctx)
	env.deposit(t, ctx, liquidatorID, "usdc", 1000)

	first, _ := env.submitBid(t, ctx, "0.5")
	second, _ := env.submitBid(t, ctx, "0.5")

	queue := env.keeper.GetBidQueue(ctx, liquidateeID, "usdc", 1)
	if queue.Bids[0].ID != first.ID || queue.Bids[1].ID != second.ID {
		t.Errorf("equal ranks must keep submission order: got [%s %s]", queue.Bids[0].ID, queue.Bids[1].ID)
	}
	if queue.Bids[0].Seq >= queue.Bids[1].Seq {
		t.Errorf("sequence must increase: %d vs %d", queue.Bids[0].Seq, queue.Bids[1].Seq)
	}
}

func TestQueueExpiryOpensNextGeneration(t *testing.T) {
	env, ctx := setupEnv(t)
	env.distressedLiquidatee(t, ctx)
	env.deposit(t, ctx, liquidatorID, "usdc", 1000)

	_, queueID := env.submitBid(t, ctx, "0.5")
	if queueID != 1 {
		t.Fatalf("expected queue 1, got %d", queueID)
	}
	queue := env.keeper.GetBidQueue(ctx, liquidateeID, "usdc", 1)
	if queue.IsExpired(ctx.BlockTime()) {
		t.Fatal("fresh queue must not be expired")
	}

	later := ctx.WithBlockTime(ctx.BlockTime().Add(env.pool.BidQueueDuration + time.Second))
	if !queue.IsExpired(later.BlockTime()) {
		t.Fatal("queue must expire after its window")
	}

	_, queueID = env.submitBid(t, later, "0.5")
	if queueID != 2 {
		t.Errorf("expected expired queue to roll to generation 2, got %d", queueID)
	}
	if got := env.keeper.GetLatestQueueID(later, liquidateeID, "usdc"); got != 2 {
		t.Errorf("expected latest queue id 2, got %d", got)
	}
	// The old generation remains readable.
	if old := env.keeper.GetBidQueue(later, liquidateeID, "usdc", 1); old == nil || len(old.Bids) != 1 {
		t.Error("expired generation must remain persisted")
	}
}

func TestQueueOverflow(t *testing.T) {
	env, ctx := setupEnv(t)
	env.pool.MaxBidsPerQueue = 2
	env.collateralKeeper.SetCollateralPool(ctx, env.pool)
	env.distressedLiquidatee(t, ctx)
	env.deposit(t, ctx, liquidatorID, "usdc", 1000)

	env.submitBid(t, ctx, "0.5")
	env.submitBid(t, ctx, "0.4")
	_, _, err := env.keeper.SubmitLiquidationBid(
		ctx, "bob", liquidateeID, liquidatorID, "usdc",
		[]types.BidOrder{{MarketID: testMarketID}}, "", math.LegacyNewDecWithPrec(3, 1))
	if err == nil {
		t.Fatal("expected queue overflow to be rejected")
	}
}
