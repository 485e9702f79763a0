package keeper

import (
	"fmt"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/google/uuid"

	"github.com/openalpha/clearing-core/x/backstop/types"
	collateraltypes "github.com/openalpha/clearing-core/x/collateral/types"
)

// RequestWithdrawal starts a delayed redemption of backstop pool shares.
// Shares are locked immediately; the payout happens at claim time at the
// then-current NAV.
func (k *Keeper) RequestWithdrawal(
	ctx sdk.Context,
	sender string,
	collateralPoolID uint64,
	withdrawerAccountID uint64,
	shares math.LegacyDec,
) (*types.Withdrawal, error) {
	if !shares.IsPositive() {
		return nil, types.ErrInsufficientShares.Wrapf("shares %s", shares.String())
	}

	pool := k.GetBackstopPool(ctx, collateralPoolID)
	if pool == nil {
		return nil, types.ErrPoolNotFound.Wrapf("collateral pool %d", collateralPoolID)
	}

	withdrawer := k.collateralKeeper.GetAccount(ctx, withdrawerAccountID)
	if withdrawer == nil {
		return nil, collateraltypes.ErrAccountNotFound.Wrapf("account %d", withdrawerAccountID)
	}
	if !withdrawer.HasPermission(collateraltypes.PermissionAdmin, sender) {
		return nil, types.ErrUnauthorized.Wrapf("account %d: %s", withdrawerAccountID, sender)
	}

	held := k.GetDepositorShares(ctx, collateralPoolID, sender)
	if shares.GT(held) {
		return nil, types.ErrInsufficientShares.Wrapf("held %s, requested %s", held.String(), shares.String())
	}
	k.setDepositorShares(ctx, collateralPoolID, sender, held.Sub(shares))

	now := ctx.BlockTime()
	withdrawal := &types.Withdrawal{
		ID:                uuid.NewString(),
		CollateralPoolID:  collateralPoolID,
		WithdrawerAccount: withdrawerAccountID,
		Withdrawer:        sender,
		Shares:            shares,
		NAVAtRequest:      k.PoolNAV(ctx, pool),
		RequestedAt:       now,
		AvailableAt:       now.Add(pool.RedemptionDelay),
		Status:            types.WithdrawalStatusPending,
		AmountReceived:    math.LegacyZeroDec(),
	}
	k.SetWithdrawal(ctx, withdrawal)

	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			"backstop_withdrawal_requested",
			sdk.NewAttribute("withdrawal_id", withdrawal.ID),
			sdk.NewAttribute("collateral_pool_id", fmt.Sprintf("%d", collateralPoolID)),
			sdk.NewAttribute("withdrawer", sender),
			sdk.NewAttribute("shares", shares.String()),
			sdk.NewAttribute("available_at", withdrawal.AvailableAt.String()),
		),
	)
	k.logger.Info("backstop withdrawal requested",
		"withdrawal_id", withdrawal.ID,
		"collateral_pool_id", collateralPoolID,
		"shares", shares.String(),
	)
	return withdrawal, nil
}

// ClaimWithdrawal redeems a matured request at the current NAV. The
// redemption is refused when it would leave the backstop account with less
// initial-margin headroom than the pool's viability floor.
func (k *Keeper) ClaimWithdrawal(
	ctx sdk.Context,
	sender string,
	withdrawalID string,
) (math.LegacyDec, error) {
	zero := math.LegacyZeroDec()

	withdrawal := k.GetWithdrawal(ctx, withdrawalID)
	if withdrawal == nil {
		return zero, types.ErrWithdrawalNotFound.Wrapf("withdrawal %s", withdrawalID)
	}
	if withdrawal.Withdrawer != sender {
		return zero, types.ErrUnauthorized.Wrapf("withdrawal %s: %s", withdrawalID, sender)
	}
	if withdrawal.Status == types.WithdrawalStatusCompleted {
		return zero, types.ErrWithdrawalNotFound.Wrapf("withdrawal %s already claimed", withdrawalID)
	}
	if !withdrawal.IsReady(ctx.BlockTime()) {
		return zero, types.ErrWithdrawalNotReady.Wrapf(
			"withdrawal %s available at %s", withdrawalID, withdrawal.AvailableAt.String())
	}

	pool := k.GetBackstopPool(ctx, withdrawal.CollateralPoolID)
	if pool == nil {
		return zero, types.ErrPoolNotFound.Wrapf("collateral pool %d", withdrawal.CollateralPoolID)
	}

	nav := k.PoolNAV(ctx, pool)
	amount := pool.ValueForShares(withdrawal.Shares, nav)

	// The backstop account must stay viable as a liquidation backstop:
	// its free collateral after the payout must clear the pool minimum.
	deltas, err := k.marginKeeper.GetRequirementDeltasByBubble(ctx, pool.AccountID, pool.QuoteToken)
	if err != nil {
		return zero, err
	}
	if deltas.Initial.Sub(amount).LT(pool.MinFreeCollateral) {
		return zero, types.ErrBelowMinFreeCollateral.Wrapf(
			"free collateral %s, payout %s, minimum %s",
			deltas.Initial.String(), amount.String(), pool.MinFreeCollateral.String())
	}

	if amount.IsPositive() {
		if err := k.collateralKeeper.TransferCollateral(ctx, pool.AccountID, withdrawal.WithdrawerAccount, pool.QuoteToken, amount, false); err != nil {
			return zero, err
		}
	}

	pool.TotalShares = pool.TotalShares.Sub(withdrawal.Shares)
	pool.UpdatedAt = ctx.BlockTime()
	k.SetBackstopPool(ctx, pool)

	withdrawal.Status = types.WithdrawalStatusCompleted
	withdrawal.AmountReceived = amount
	withdrawal.CompletedAt = ctx.BlockTime()
	k.SetWithdrawal(ctx, withdrawal)

	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			"backstop_withdrawal_claimed",
			sdk.NewAttribute("withdrawal_id", withdrawal.ID),
			sdk.NewAttribute("collateral_pool_id", fmt.Sprintf("%d", withdrawal.CollateralPoolID)),
			sdk.NewAttribute("amount", amount.String()),
			sdk.NewAttribute("nav", nav.String()),
		),
	)
	k.logger.Info("backstop withdrawal claimed",
		"withdrawal_id", withdrawal.ID,
		"amount", amount.String(),
	)
	return amount, nil
}

// GetWithdrawal returns a withdrawal request, or nil.
func (k *Keeper) GetWithdrawal(ctx sdk.Context, id string) *types.Withdrawal {
	var withdrawal types.Withdrawal
	if !k.loadJSON(ctx, withdrawalKey(id), &withdrawal) {
		return nil
	}
	return &withdrawal
}

// SetWithdrawal persists a withdrawal request.
func (k *Keeper) SetWithdrawal(ctx sdk.Context, withdrawal *types.Withdrawal) {
	k.storeJSON(ctx, withdrawalKey(withdrawal.ID), withdrawal)
}
