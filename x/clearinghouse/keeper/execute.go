package keeper

import (
	"fmt"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/clearing-core/x/clearinghouse/types"
)

// BidExecutionResult reports the outcome of one ExecuteTopRankedLiquidationBid
// call. The top bid is always dequeued; Executed tells whether its orders
// actually ran. A failed bid surfaces its reason in FailureReason instead of
// an error so the dequeue itself is never rolled back.
type BidExecutionResult struct {
	BidID         string
	QueueID       uint64
	Executed      bool
	FailureReason string

	// Penalty is the total penalty charged to the liquidatee when the bid
	// executed, in quote token.
	Penalty math.LegacyDec

	Distribution *types.PenaltyDistribution
}

// ExecuteTopRankedLiquidationBid pops the top bid off the account's live
// queue and attempts it. The dequeue persists regardless of the attempt's
// outcome, so a repeatedly failing bid cannot wedge the queue.
func (k *Keeper) ExecuteTopRankedLiquidationBid(
	ctx sdk.Context,
	sender string,
	accountID uint64,
	quoteToken string,
	keeperAccountID uint64,
) (*BidExecutionResult, error) {
	account, pool, err := k.collateralKeeper.PoolForAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	// Resting orders hold margin the auction would otherwise free; they
	// must be flushed through CloseAllUnfilledOrders first.
	unfilled, err := k.hasUnfilledOrders(ctx, account, quoteToken)
	if err != nil {
		return nil, err
	}
	if unfilled {
		return nil, types.ErrAccountHasUnfilledOrders.Wrapf("account %d token %s", accountID, quoteToken)
	}

	deltas, err := k.marginKeeper.GetRequirementDeltasByBubble(ctx, accountID, quoteToken)
	if err != nil {
		return nil, err
	}
	// Execution waits until the account falls through LM; the band ends
	// at ADL, below which only the backstop path applies.
	if deltas.Liquidation.IsPositive() || !deltas.Adl.IsPositive() {
		return nil, types.ErrAccountNotBetweenAdlAndLm.Wrapf(
			"account %d token %s: lm delta %s, adl delta %s",
			accountID, quoteToken, deltas.Liquidation.String(), deltas.Adl.String())
	}

	queue := k.currentBidQueue(ctx, accountID, quoteToken)
	if queue == nil || len(queue.Bids) == 0 {
		return nil, types.ErrLiquidationBidQueueEmpty.Wrapf("account %d token %s", accountID, quoteToken)
	}
	if queue.IsExpired(ctx.BlockTime()) {
		return nil, types.ErrLiquidationBidQueueExpired.Wrapf(
			"account %d token %s queue %d ended %s", accountID, quoteToken, queue.ID, queue.EndTime.String())
	}

	index := types.NewBidQueueIndex(queue)
	bid, _ := index.PopTop()
	queue.Bids = index.Ordered()
	k.SetBidQueue(ctx, queue)

	result := &BidExecutionResult{BidID: bid.ID, QueueID: queue.ID}

	// The attempt runs on a cache context: a failing bid leaves only the
	// dequeue behind.
	cacheCtx, write := ctx.CacheContext()
	penalty, distribution, attemptErr := k.attemptBid(cacheCtx, sender, accountID, quoteToken, pool.ID, bid, keeperAccountID, deltas.Liquidation)
	if attemptErr != nil {
		result.FailureReason = attemptErr.Error()
		ctx.EventManager().EmitEvent(
			sdk.NewEvent(
				"liquidation_bid_failed",
				sdk.NewAttribute("bid_id", bid.ID),
				sdk.NewAttribute("account_id", fmt.Sprintf("%d", accountID)),
				sdk.NewAttribute("reason", result.FailureReason),
			),
		)
		k.logger.Info("liquidation bid failed",
			"bid_id", bid.ID, "account_id", accountID, "reason", result.FailureReason)
		return result, nil
	}
	write()

	result.Executed = true
	result.Penalty = penalty
	result.Distribution = distribution

	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			"liquidation_bid_executed",
			sdk.NewAttribute("bid_id", bid.ID),
			sdk.NewAttribute("account_id", fmt.Sprintf("%d", accountID)),
			sdk.NewAttribute("liquidator_account", fmt.Sprintf("%d", bid.LiquidatorAccount)),
			sdk.NewAttribute("keeper_account", fmt.Sprintf("%d", keeperAccountID)),
			sdk.NewAttribute("penalty", penalty.String()),
		),
	)
	k.logger.Info("liquidation bid executed",
		"bid_id", bid.ID, "account_id", accountID, "penalty", penalty.String())
	return result, nil
}

// attemptBid runs one popped bid end to end: pre-hook, order execution,
// the health improvement fence, penalty charging and post-hook. Any error
// aborts the cache context it runs on.
func (k *Keeper) attemptBid(
	ctx sdk.Context,
	sender string,
	accountID uint64,
	quoteToken string,
	poolID uint64,
	bid types.LiquidationBid,
	keeperAccountID uint64,
	lmDeltaBefore math.LegacyDec,
) (math.LegacyDec, *types.PenaltyDistribution, error) {
	zero := math.LegacyZeroDec()

	var hook types.LiquidationHook
	if bid.HookAddress != "" {
		var err error
		hook, err = k.Hook(bid.HookAddress)
		if err != nil {
			return zero, nil, err
		}
		ack, err := hook.PreLiquidationHook(ctx, accountID, bid)
		if err != nil {
			return zero, nil, err
		}
		if ack != types.PreLiquidationHookAck {
			return zero, nil, types.ErrInvalidLiquidationHook.Wrapf("pre hook ack %q", ack)
		}
	}

	for _, order := range bid.Orders {
		manager, err := k.marginKeeper.Market(order.MarketID)
		if err != nil {
			return zero, nil, err
		}
		if err := manager.ExecuteLiquidationOrder(ctx, order.MarketID, accountID, bid.LiquidatorAccount, order.Inputs); err != nil {
			return zero, nil, err
		}
	}

	// A liquidation must reduce the requirement shortfall. The penalty is
	// proportional to how much of it the bid cleared.
	deltasAfter, err := k.marginKeeper.GetRequirementDeltasByBubble(ctx, accountID, quoteToken)
	if err != nil {
		return zero, nil, err
	}
	lmDeltaChange := deltasAfter.Liquidation.Sub(lmDeltaBefore)
	if lmDeltaChange.IsNegative() {
		return zero, nil, types.ErrNegativeLmDeltaChange.Wrapf(
			"lm delta %s -> %s", lmDeltaBefore.String(), deltasAfter.Liquidation.String())
	}

	penalty := bid.RewardParameter.Mul(lmDeltaChange)
	distribution, err := k.distributePenalty(ctx, accountID, quoteToken, poolID, penalty, keeperAccountID, bid.LiquidatorAccount)
	if err != nil {
		return zero, nil, err
	}

	// The liquidator must come out of the trade at or above IM.
	liquidatorDeltas, err := k.marginKeeper.GetRequirementDeltasByBubble(ctx, bid.LiquidatorAccount, quoteToken)
	if err != nil {
		return zero, nil, err
	}
	if liquidatorDeltas.Initial.IsNegative() {
		return zero, nil, types.ErrLiquidatorBelowIm.Wrapf(
			"account %d token %s: im delta %s", bid.LiquidatorAccount, quoteToken, liquidatorDeltas.Initial.String())
	}

	if hook != nil {
		ack, err := hook.PostLiquidationHook(ctx, accountID, bid)
		if err != nil {
			return zero, nil, err
		}
		if ack != types.PostLiquidationHookAck {
			return zero, nil, types.ErrInvalidLiquidationHook.Wrapf("post hook ack %q", ack)
		}
	}

	return penalty, distribution, nil
}
