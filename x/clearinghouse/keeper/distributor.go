package keeper

import (
	"fmt"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/clearing-core/x/clearinghouse/types"
)

// distributePenalty charges the liquidatee the full penalty and splits it
// between the insurance fund, the backstop LP, the keeper and the
// liquidator. The liquidator receives the exact remainder so the shares
// always sum to the penalty. The liquidatee's balance may go into deficit;
// the shortfall is resolved later by auto-exchange or the backstop.
func (k *Keeper) distributePenalty(
	ctx sdk.Context,
	accountID uint64,
	quoteToken string,
	poolID uint64,
	penalty math.LegacyDec,
	keeperAccountID uint64,
	liquidatorAccountID uint64,
) (*types.PenaltyDistribution, error) {
	dist := &types.PenaltyDistribution{
		Penalty:       penalty,
		InsuranceFund: math.LegacyZeroDec(),
		BackstopLp:    math.LegacyZeroDec(),
		Keeper:        math.LegacyZeroDec(),
		Liquidator:    math.LegacyZeroDec(),
	}
	if !penalty.IsPositive() {
		return dist, nil
	}

	pool := k.collateralKeeper.GetCollateralPool(ctx, poolID)
	if pool == nil {
		return nil, types.ErrCollateralPoolMismatch.Wrapf("pool %d", poolID)
	}

	dist.InsuranceFund = pool.Fees.LiquidationFee.Mul(penalty)

	// The backstop LP earns its share only while it stays above the
	// pool's viability floor; otherwise the share falls through to the
	// liquidator.
	if pool.BackstopLp.AccountID != 0 {
		lpDeltas, err := k.marginKeeper.GetRequirementDeltasByBubble(ctx, pool.BackstopLp.AccountID, quoteToken)
		if err != nil {
			return nil, err
		}
		if lpDeltas.Initial.GTE(pool.Insurance.MinBackstopLpFreeCollateral) {
			dist.BackstopLp = pool.Fees.LiquidationFee.Mul(penalty)
		} else {
			dist.BackstopSkipped = true
		}
	}

	if keeperAccountID != 0 {
		dist.Keeper = pool.Fees.BidKeeperFee.Mul(penalty)
	}

	dist.Liquidator = penalty.Sub(dist.InsuranceFund).Sub(dist.BackstopLp).Sub(dist.Keeper)
	if dist.Liquidator.IsNegative() {
		// Misconfigured fee fractions summing above one; the liquidator
		// share is floored and the insurance fund absorbs the difference.
		dist.InsuranceFund = dist.InsuranceFund.Add(dist.Liquidator)
		dist.Liquidator = math.LegacyZeroDec()
	}

	transfers := []struct {
		toID   uint64
		amount math.LegacyDec
	}{
		{pool.Insurance.AccountID, dist.InsuranceFund},
		{pool.BackstopLp.AccountID, dist.BackstopLp},
		{keeperAccountID, dist.Keeper},
		{liquidatorAccountID, dist.Liquidator},
	}
	for _, t := range transfers {
		if t.toID == 0 || !t.amount.IsPositive() {
			continue
		}
		if err := k.collateralKeeper.TransferCollateral(ctx, accountID, t.toID, quoteToken, t.amount, true); err != nil {
			return nil, err
		}
	}

	if dist.InsuranceFund.IsPositive() && pool.Insurance.AccountID != 0 {
		fund := k.GetInsuranceFund(ctx, poolID, quoteToken)
		fund.Collect(dist.InsuranceFund, ctx.BlockTime())
		k.SetInsuranceFund(ctx, fund)
	}

	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			"liquidation_penalty_distributed",
			sdk.NewAttribute("account_id", fmt.Sprintf("%d", accountID)),
			sdk.NewAttribute("quote_token", quoteToken),
			sdk.NewAttribute("penalty", penalty.String()),
			sdk.NewAttribute("insurance_fund", dist.InsuranceFund.String()),
			sdk.NewAttribute("backstop_lp", dist.BackstopLp.String()),
			sdk.NewAttribute("keeper", dist.Keeper.String()),
			sdk.NewAttribute("liquidator", dist.Liquidator.String()),
		),
	)
	return dist, nil
}
