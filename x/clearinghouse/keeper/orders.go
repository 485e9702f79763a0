package keeper

import (
	"fmt"
	"sort"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	collateraltypes "github.com/openalpha/clearing-core/x/collateral/types"
	"github.com/openalpha/clearing-core/x/clearinghouse/types"
)

// CloseAllUnfilledOrders force-cancels every resting order of an account
// that has fallen below its maintenance margin requirement in at least one
// quote token. Freeing held margin is a precondition for the ranked
// auction; the caller earns a small penalty for performing it.
func (k *Keeper) CloseAllUnfilledOrders(
	ctx sdk.Context,
	sender string,
	accountID uint64,
	liquidatorAccountID uint64,
) (math.LegacyDec, error) {
	zero := math.LegacyZeroDec()

	account, pool, err := k.collateralKeeper.PoolForAccount(ctx, accountID)
	if err != nil {
		return zero, err
	}
	liquidator, liquidatorPool, err := k.collateralKeeper.PoolForAccount(ctx, liquidatorAccountID)
	if err != nil {
		return zero, err
	}
	if liquidatorPool.ID != pool.ID {
		return zero, types.ErrCollateralPoolMismatch.Wrapf(
			"liquidator pool %d, liquidatee pool %d", liquidatorPool.ID, pool.ID)
	}
	if !liquidator.HasPermission(collateraltypes.PermissionAdmin, sender) {
		return zero, types.ErrLiquidatorNotAdmin.Wrapf("account %d: %s", liquidatorAccountID, sender)
	}

	quoteTokens := make([]string, 0, len(account.ActiveMarkets))
	for token := range account.ActiveMarkets {
		quoteTokens = append(quoteTokens, token)
	}
	sort.Strings(quoteTokens)

	totalPenalty := zero
	closedAny := false
	for _, quoteToken := range quoteTokens {
		deltas, err := k.marginKeeper.GetRequirementDeltasByBubble(ctx, accountID, quoteToken)
		if err != nil {
			return zero, err
		}
		if !deltas.Maintenance.IsNegative() {
			continue
		}

		unfilled, err := k.hasUnfilledOrders(ctx, account, quoteToken)
		if err != nil {
			return zero, err
		}
		if !unfilled {
			continue
		}

		for _, marketID := range account.ActiveMarkets[quoteToken] {
			manager, err := k.marginKeeper.Market(marketID)
			if err != nil {
				return zero, err
			}
			if err := manager.CloseAllUnfilledOrders(ctx, marketID, accountID); err != nil {
				return zero, err
			}
		}
		closedAny = true

		// Cancelling orders only releases held margin; the requirement
		// shortfall must not grow.
		deltasAfter, err := k.marginKeeper.GetRequirementDeltasByBubble(ctx, accountID, quoteToken)
		if err != nil {
			return zero, err
		}
		lmDeltaChange := deltasAfter.Liquidation.Sub(deltas.Liquidation)
		if lmDeltaChange.IsNegative() {
			return zero, types.ErrNegativeLmDeltaChange.Wrapf(
				"lm delta %s -> %s", deltas.Liquidation.String(), deltasAfter.Liquidation.String())
		}

		penalty := pool.Fees.UnfilledFee.Mul(lmDeltaChange)
		if penalty.IsPositive() {
			if _, err := k.distributePenalty(ctx, accountID, quoteToken, pool.ID, penalty, 0, liquidatorAccountID); err != nil {
				return zero, err
			}
			totalPenalty = totalPenalty.Add(penalty)
		}
	}

	if !closedAny {
		return zero, types.ErrAccountNotBelowMmr.Wrapf(
			"account %d has no unfilled orders under maintenance shortfall", accountID)
	}

	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			"unfilled_orders_closed",
			sdk.NewAttribute("account_id", fmt.Sprintf("%d", accountID)),
			sdk.NewAttribute("liquidator_account", fmt.Sprintf("%d", liquidatorAccountID)),
			sdk.NewAttribute("penalty", totalPenalty.String()),
		),
	)
	k.logger.Info("unfilled orders closed",
		"account_id", accountID, "penalty", totalPenalty.String())
	return totalPenalty, nil
}
