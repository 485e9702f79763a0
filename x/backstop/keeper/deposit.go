package keeper

import (
	"fmt"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/clearing-core/x/backstop/types"
	collateraltypes "github.com/openalpha/clearing-core/x/collateral/types"
)

// Deposit moves quote collateral from the depositor's account into the
// backstop account and mints pool shares at the current NAV.
func (k *Keeper) Deposit(
	ctx sdk.Context,
	sender string,
	collateralPoolID uint64,
	depositorAccountID uint64,
	amount math.LegacyDec,
) (shares math.LegacyDec, nav math.LegacyDec, err error) {
	zero := math.LegacyZeroDec()
	if !amount.IsPositive() {
		return zero, zero, types.ErrDepositTooSmall.Wrapf("amount %s", amount.String())
	}

	pool := k.GetBackstopPool(ctx, collateralPoolID)
	if pool == nil {
		return zero, zero, types.ErrPoolNotFound.Wrapf("collateral pool %d", collateralPoolID)
	}

	depositor := k.collateralKeeper.GetAccount(ctx, depositorAccountID)
	if depositor == nil {
		return zero, zero, collateraltypes.ErrAccountNotFound.Wrapf("account %d", depositorAccountID)
	}
	if !depositor.HasPermission(collateraltypes.PermissionAdmin, sender) {
		return zero, zero, types.ErrUnauthorized.Wrapf("account %d: %s", depositorAccountID, sender)
	}

	// NAV is read before the transfer so the deposit itself does not
	// dilute or inflate the minted shares.
	nav = k.PoolNAV(ctx, pool)
	if !nav.IsPositive() {
		nav = math.LegacyOneDec()
	}
	shares = pool.SharesForDeposit(amount, nav)

	if err := k.collateralKeeper.TransferCollateral(ctx, depositorAccountID, pool.AccountID, pool.QuoteToken, amount, false); err != nil {
		return zero, zero, err
	}

	pool.TotalShares = pool.TotalShares.Add(shares)
	pool.UpdatedAt = ctx.BlockTime()
	k.SetBackstopPool(ctx, pool)
	k.setDepositorShares(ctx, collateralPoolID, sender,
		k.GetDepositorShares(ctx, collateralPoolID, sender).Add(shares))

	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			"backstop_deposit",
			sdk.NewAttribute("collateral_pool_id", fmt.Sprintf("%d", collateralPoolID)),
			sdk.NewAttribute("depositor", sender),
			sdk.NewAttribute("amount", amount.String()),
			sdk.NewAttribute("shares", shares.String()),
			sdk.NewAttribute("nav", nav.String()),
		),
	)
	k.logger.Info("backstop deposit processed",
		"collateral_pool_id", collateralPoolID,
		"depositor", sender,
		"amount", amount.String(),
		"shares", shares.String(),
	)
	return shares, nav, nil
}
