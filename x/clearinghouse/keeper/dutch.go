package keeper

import (
	"fmt"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	collateraltypes "github.com/openalpha/clearing-core/x/collateral/types"
	"github.com/openalpha/clearing-core/x/clearinghouse/types"
)

// DutchLiquidationResult reports one executed dutch liquidation step.
type DutchLiquidationResult struct {
	PenaltyParameter math.LegacyDec
	Penalty          math.LegacyDec
	Distribution     *types.PenaltyDistribution
}

// ExecuteDutchLiquidation lets any sufficiently margined account take over
// part of a distressed position at a penalty that scales with how deep the
// account is under water. The dutch path opens below MMR but is blocked
// above the dutch threshold while a live ranked auction still holds bids.
func (k *Keeper) ExecuteDutchLiquidation(
	ctx sdk.Context,
	sender string,
	accountID uint64,
	liquidatorAccountID uint64,
	quoteToken string,
	marketID uint64,
	inputs []byte,
) (*DutchLiquidationResult, error) {
	account, pool, err := k.collateralKeeper.PoolForAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	liquidator, liquidatorPool, err := k.collateralKeeper.PoolForAccount(ctx, liquidatorAccountID)
	if err != nil {
		return nil, err
	}
	if liquidatorPool.ID != pool.ID {
		return nil, types.ErrCollateralPoolMismatch.Wrapf(
			"liquidator pool %d, liquidatee pool %d", liquidatorPool.ID, pool.ID)
	}
	if !liquidator.HasPermission(collateraltypes.PermissionAdmin, sender) {
		return nil, types.ErrLiquidatorNotAdmin.Wrapf("account %d: %s", liquidatorAccountID, sender)
	}

	unfilled, err := k.hasUnfilledOrders(ctx, account, quoteToken)
	if err != nil {
		return nil, err
	}
	if unfilled {
		return nil, types.ErrAccountHasUnfilledOrders.Wrapf("account %d token %s", accountID, quoteToken)
	}

	info, err := k.marginKeeper.GetMarginInfoByBubble(ctx, accountID, quoteToken)
	if err != nil {
		return nil, err
	}
	deltas := info.Deltas
	if !deltas.Maintenance.IsNegative() {
		return nil, types.ErrAccountNotBelowMmr.Wrapf(
			"account %d token %s: mmr delta %s", accountID, quoteToken, deltas.Maintenance.String())
	}
	if deltas.Adl.IsNegative() {
		return nil, types.ErrAccountNotBetweenAdlAndLm.Wrapf(
			"account %d token %s: adl delta %s", accountID, quoteToken, deltas.Adl.String())
	}
	// Above the dutch threshold the ranked auction has priority: dutch
	// steps only run once its queue is drained or expired.
	if deltas.Dutch.IsPositive() && k.liveQueueNonEmpty(ctx, accountID, quoteToken) {
		return nil, types.ErrAccountAboveDutchWithNonEmptyBidQueue.Wrapf(
			"account %d token %s: dutch delta %s", accountID, quoteToken, deltas.Dutch.String())
	}

	manager, err := k.marginKeeper.Market(marketID)
	if err != nil {
		return nil, err
	}
	config, err := manager.GetMarketConfiguration(ctx, marketID)
	if err != nil {
		return nil, err
	}
	if config.QuoteToken != quoteToken {
		return nil, types.ErrQuoteTokenMismatch.Wrapf(
			"market %d quotes %s, requested %s", marketID, config.QuoteToken, quoteToken)
	}

	penaltyParam := dutchPenaltyParameter(info.HealthRatio(), pool.Dutch.DMin, pool.Dutch.DSlope)
	lmDeltaBefore := deltas.Liquidation

	if err := manager.ExecuteLiquidationOrder(ctx, marketID, accountID, liquidatorAccountID, inputs); err != nil {
		return nil, err
	}

	deltasAfter, err := k.marginKeeper.GetRequirementDeltasByBubble(ctx, accountID, quoteToken)
	if err != nil {
		return nil, err
	}
	lmDeltaChange := deltasAfter.Liquidation.Sub(lmDeltaBefore)
	if lmDeltaChange.IsNegative() {
		return nil, types.ErrNegativeLmDeltaChange.Wrapf(
			"lm delta %s -> %s", lmDeltaBefore.String(), deltasAfter.Liquidation.String())
	}

	penalty := penaltyParam.Mul(lmDeltaChange)
	distribution, err := k.distributePenalty(ctx, accountID, quoteToken, pool.ID, penalty, 0, liquidatorAccountID)
	if err != nil {
		return nil, err
	}

	liquidatorDeltas, err := k.marginKeeper.GetRequirementDeltasByBubble(ctx, liquidatorAccountID, quoteToken)
	if err != nil {
		return nil, err
	}
	if liquidatorDeltas.Initial.IsNegative() {
		return nil, types.ErrLiquidatorBelowIm.Wrapf(
			"account %d token %s: im delta %s", liquidatorAccountID, quoteToken, liquidatorDeltas.Initial.String())
	}

	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			"dutch_liquidation_executed",
			sdk.NewAttribute("account_id", fmt.Sprintf("%d", accountID)),
			sdk.NewAttribute("liquidator_account", fmt.Sprintf("%d", liquidatorAccountID)),
			sdk.NewAttribute("market_id", fmt.Sprintf("%d", marketID)),
			sdk.NewAttribute("penalty_parameter", penaltyParam.String()),
			sdk.NewAttribute("penalty", penalty.String()),
		),
	)
	k.logger.Info("dutch liquidation executed",
		"account_id", accountID,
		"market_id", marketID,
		"penalty_parameter", penaltyParam.String(),
		"penalty", penalty.String(),
	)
	return &DutchLiquidationResult{
		PenaltyParameter: penaltyParam,
		Penalty:          penalty,
		Distribution:     distribution,
	}, nil
}

// dutchPenaltyParameter maps account health into a penalty fraction:
// dMin at full health, rising by dSlope per unit of health lost, capped
// at one.
func dutchPenaltyParameter(health, dMin, dSlope math.LegacyDec) math.LegacyDec {
	param := dMin.Add(math.LegacyOneDec().Sub(health).Mul(dSlope))
	if param.GT(math.LegacyOneDec()) {
		return math.LegacyOneDec()
	}
	return param
}
