package keeper

import (
	"fmt"

	sdk "github.com/cosmos/cosmos-sdk/types"

	collateraltypes "github.com/openalpha/clearing-core/x/collateral/types"
	"github.com/openalpha/clearing-core/x/clearinghouse/types"
)

type queueHead struct {
	LatestQueueID uint64 `json:"latest_queue_id"`
}

// GetLatestQueueID returns the current queue generation for
// (account, quote token); zero means no queue has ever been opened.
func (k *Keeper) GetLatestQueueID(ctx sdk.Context, accountID uint64, quoteToken string) uint64 {
	var head queueHead
	if !k.loadJSON(ctx, queueHeadKey(accountID, quoteToken), &head) {
		return 0
	}
	return head.LatestQueueID
}

// GetBidQueue returns a specific queue generation, or nil.
func (k *Keeper) GetBidQueue(ctx sdk.Context, accountID uint64, quoteToken string, queueID uint64) *types.BidQueue {
	var queue types.BidQueue
	if !k.loadJSON(ctx, bidQueueKey(accountID, quoteToken, queueID), &queue) {
		return nil
	}
	return &queue
}

// SetBidQueue persists a queue generation.
func (k *Keeper) SetBidQueue(ctx sdk.Context, queue *types.BidQueue) {
	k.storeJSON(ctx, bidQueueKey(queue.AccountID, queue.QuoteToken, queue.ID), queue)
}

// currentBidQueue returns the latest queue generation, or nil when none
// has been opened yet. Expired queues are returned as-is; callers decide
// whether expiry means "open the next generation" (submission) or "fail"
// (execution).
func (k *Keeper) currentBidQueue(ctx sdk.Context, accountID uint64, quoteToken string) *types.BidQueue {
	latest := k.GetLatestQueueID(ctx, accountID, quoteToken)
	if latest == 0 {
		return nil
	}
	return k.GetBidQueue(ctx, accountID, quoteToken, latest)
}

// openNextBidQueue opens the next queue generation with the pool's
// configured lifetime window.
func (k *Keeper) openNextBidQueue(ctx sdk.Context, accountID uint64, quoteToken string, pool *collateraltypes.CollateralPool) *types.BidQueue {
	next := k.GetLatestQueueID(ctx, accountID, quoteToken) + 1
	now := ctx.BlockTime()
	queue := &types.BidQueue{
		AccountID:  accountID,
		QuoteToken: quoteToken,
		ID:         next,
		StartTime:  now,
		EndTime:    now.Add(pool.BidQueueDuration),
	}
	k.SetBidQueue(ctx, queue)
	k.storeJSON(ctx, queueHeadKey(accountID, quoteToken), queueHead{LatestQueueID: next})

	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			"liquidation_bid_queue_opened",
			sdk.NewAttribute("account_id", fmt.Sprintf("%d", accountID)),
			sdk.NewAttribute("quote_token", quoteToken),
			sdk.NewAttribute("queue_id", fmt.Sprintf("%d", next)),
			sdk.NewAttribute("end_time", queue.EndTime.String()),
		),
	)
	return queue
}

// liveQueueNonEmpty reports whether the account has a non-expired queue
// holding at least one bid; the dutch path is blocked while the ranked
// auction still has standing bids.
func (k *Keeper) liveQueueNonEmpty(ctx sdk.Context, accountID uint64, quoteToken string) bool {
	queue := k.currentBidQueue(ctx, accountID, quoteToken)
	if queue == nil || queue.IsExpired(ctx.BlockTime()) {
		return false
	}
	return len(queue.Bids) > 0
}
