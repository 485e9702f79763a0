package keeper

import (
	"fmt"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/google/uuid"

	collateraltypes "github.com/openalpha/clearing-core/x/collateral/types"
	"github.com/openalpha/clearing-core/x/clearinghouse/types"
)

// SubmitLiquidationBid enqueues a ranked liquidation bid for an account
// sitting between its maintenance and liquidation margin requirements.
// The bid lands in the current queue generation for (account, quote
// token); a new generation is opened lazily when none exists or the
// previous one has expired.
func (k *Keeper) SubmitLiquidationBid(
	ctx sdk.Context,
	sender string,
	accountID uint64,
	liquidatorAccountID uint64,
	quoteToken string,
	orders []types.BidOrder,
	hookAddress string,
	rewardParameter math.LegacyDec,
) (*types.LiquidationBid, uint64, error) {
	_, pool, err := k.collateralKeeper.PoolForAccount(ctx, accountID)
	if err != nil {
		return nil, 0, err
	}
	liquidator, liquidatorPool, err := k.collateralKeeper.PoolForAccount(ctx, liquidatorAccountID)
	if err != nil {
		return nil, 0, err
	}
	if liquidatorPool.ID != pool.ID {
		return nil, 0, types.ErrCollateralPoolMismatch.Wrapf(
			"liquidator pool %d, liquidatee pool %d", liquidatorPool.ID, pool.ID)
	}
	if !liquidator.HasPermission(collateraltypes.PermissionAdmin, sender) {
		return nil, 0, types.ErrLiquidatorNotAdmin.Wrapf("account %d: %s", liquidatorAccountID, sender)
	}

	// Bids are only accepted between MMR and LM: the account is already
	// distressed but the ranked auction still has time to run.
	deltas, err := k.marginKeeper.GetRequirementDeltasByBubble(ctx, accountID, quoteToken)
	if err != nil {
		return nil, 0, err
	}
	if !deltas.Maintenance.IsNegative() || !deltas.Liquidation.IsPositive() {
		return nil, 0, types.ErrAccountNotBetweenMmrAndLm.Wrapf(
			"account %d token %s: mmr delta %s, lm delta %s",
			accountID, quoteToken, deltas.Maintenance.String(), deltas.Liquidation.String())
	}

	if len(orders) == 0 {
		return nil, 0, types.ErrInvalidBid.Wrap("bid carries no orders")
	}
	if len(orders) > pool.MaxOrdersPerBid {
		return nil, 0, types.ErrTooManyOrdersInBid.Wrapf(
			"bid carries %d orders, pool allows %d", len(orders), pool.MaxOrdersPerBid)
	}

	for _, order := range orders {
		manager, err := k.marginKeeper.Market(order.MarketID)
		if err != nil {
			return nil, 0, err
		}
		config, err := manager.GetMarketConfiguration(ctx, order.MarketID)
		if err != nil {
			return nil, 0, err
		}
		if config.QuoteToken != quoteToken {
			return nil, 0, types.ErrQuoteTokenMismatch.Wrapf(
				"market %d quotes %s, bid quotes %s", order.MarketID, config.QuoteToken, quoteToken)
		}
		if err := manager.ValidateLiquidationOrder(ctx, order.MarketID, accountID, order.Inputs); err != nil {
			return nil, 0, err
		}
	}

	// The optional hook must be a registered implementation; an unknown
	// address would otherwise only fail at execution time.
	if hookAddress != "" {
		if _, err := k.Hook(hookAddress); err != nil {
			return nil, 0, err
		}
	}

	rank, err := k.bidRank(ctx, accountID, orders, rewardParameter)
	if err != nil {
		return nil, 0, err
	}

	queue := k.currentBidQueue(ctx, accountID, quoteToken)
	if queue == nil || queue.IsExpired(ctx.BlockTime()) {
		queue = k.openNextBidQueue(ctx, accountID, quoteToken, pool)
	}
	if len(queue.Bids) >= pool.MaxBidsPerQueue {
		return nil, 0, types.ErrLiquidationBidQueueOverflow.Wrapf(
			"queue %d holds %d bids, pool allows %d", queue.ID, len(queue.Bids), pool.MaxBidsPerQueue)
	}

	bid := types.LiquidationBid{
		ID:                uuid.NewString(),
		LiquidatorAccount: liquidatorAccountID,
		QuoteToken:        quoteToken,
		Orders:            orders,
		HookAddress:       hookAddress,
		RewardParameter:   rewardParameter,
		Rank:              rank,
		Seq:               queue.NextSeq,
		SubmittedAt:       ctx.BlockTime(),
	}
	queue.NextSeq++

	index := types.NewBidQueueIndex(queue)
	index.Insert(bid)
	queue.Bids = index.Ordered()
	k.SetBidQueue(ctx, queue)

	// Submitting a bid must not leave the liquidator itself undermargined.
	liquidatorDeltas, err := k.marginKeeper.GetRequirementDeltasByBubble(ctx, liquidatorAccountID, quoteToken)
	if err != nil {
		return nil, 0, err
	}
	if liquidatorDeltas.Initial.IsNegative() {
		return nil, 0, types.ErrLiquidatorBelowIm.Wrapf(
			"account %d token %s: im delta %s", liquidatorAccountID, quoteToken, liquidatorDeltas.Initial.String())
	}

	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			"liquidation_bid_submitted",
			sdk.NewAttribute("bid_id", bid.ID),
			sdk.NewAttribute("account_id", fmt.Sprintf("%d", accountID)),
			sdk.NewAttribute("liquidator_account", fmt.Sprintf("%d", liquidatorAccountID)),
			sdk.NewAttribute("quote_token", quoteToken),
			sdk.NewAttribute("queue_id", fmt.Sprintf("%d", queue.ID)),
			sdk.NewAttribute("rank", rank.String()),
		),
	)
	k.logger.Info("liquidation bid submitted",
		"bid_id", bid.ID,
		"account_id", accountID,
		"queue_id", queue.ID,
		"rank", rank.String(),
	)
	return &bid, queue.ID, nil
}

// bidRank scores a bid by the liquidatee exposure its orders can reach,
// scaled by the offered reward parameter. Reward scaling makes cheaper
// bids (lower penalty for the liquidatee) outrank expensive ones covering
// the same exposure only when they cover more of it; submission order
// breaks exact ties.
func (k *Keeper) bidRank(ctx sdk.Context, accountID uint64, orders []types.BidOrder, rewardParameter math.LegacyDec) (math.LegacyDec, error) {
	reachable := math.LegacyZeroDec()
	seen := make(map[uint64]bool)
	for _, order := range orders {
		if seen[order.MarketID] {
			continue
		}
		seen[order.MarketID] = true

		manager, err := k.marginKeeper.Market(order.MarketID)
		if err != nil {
			return math.LegacyZeroDec(), err
		}
		pairs, err := manager.GetAccountTakerAndMakerExposures(ctx, order.MarketID, accountID)
		if err != nil {
			return math.LegacyZeroDec(), err
		}
		for _, pair := range pairs {
			notional := pair.Lower.AnnualizedNotional.Abs()
			if upper := pair.Upper.AnnualizedNotional.Abs(); upper.GT(notional) {
				notional = upper
			}
			reachable = reachable.Add(notional)
		}
	}
	return rewardParameter.Mul(reachable), nil
}
