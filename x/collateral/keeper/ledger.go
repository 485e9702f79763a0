package keeper

import (
	"encoding/json"
	"fmt"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/clearing-core/x/collateral/types"
)

// collateralPosition is the stored per-(account, token) share balance.
type collateralPosition struct {
	Shares math.LegacyDec `json:"shares"`
}

// netDepositsRecord tracks cumulative deposits minus withdrawals in asset
// terms, independent of trading PnL.
type netDepositsRecord struct {
	Amount math.LegacyDec `json:"amount"`
}

// GetCollateralShares returns the share balance for (account, token).
func (k *Keeper) GetCollateralShares(ctx sdk.Context, accountID uint64, token string) math.LegacyDec {
	store := k.GetStore(ctx)
	bz := store.Get(positionKey(accountID, token))
	if bz == nil {
		return math.LegacyZeroDec()
	}
	var pos collateralPosition
	if err := json.Unmarshal(bz, &pos); err != nil {
		return math.LegacyZeroDec()
	}
	return pos.Shares
}

// GetCollateralBalance returns the asset-denominated balance for
// (account, token), converting shares through the token adapter.
func (k *Keeper) GetCollateralBalance(ctx sdk.Context, accountID uint64, token string) math.LegacyDec {
	return k.TokenAdapter(token).AssetsForShares(k.GetCollateralShares(ctx, accountID, token))
}

func (k *Keeper) setCollateralShares(ctx sdk.Context, accountID uint64, token string, shares math.LegacyDec) {
	store := k.GetStore(ctx)
	bz, _ := json.Marshal(collateralPosition{Shares: shares})
	store.Set(positionKey(accountID, token), bz)
}

// adjustShares applies a signed share delta and keeps the account's active
// collateral set in sync with zero crossings.
func (k *Keeper) adjustShares(ctx sdk.Context, accountID uint64, token string, delta math.LegacyDec, allowNegative bool) error {
	account := k.GetAccount(ctx, accountID)
	if account == nil {
		return types.ErrAccountNotFound.Wrapf("account %d", accountID)
	}

	balance := k.GetCollateralShares(ctx, accountID, token)
	updated := balance.Add(delta)
	if updated.IsNegative() && !allowNegative {
		return types.ErrInsufficientCollateral.Wrapf(
			"account %d token %s: balance %s, delta %s", accountID, token, balance.String(), delta.String())
	}

	k.setCollateralShares(ctx, accountID, token, updated)

	if updated.IsZero() {
		account.DeactivateCollateral(token)
	} else {
		account.ActivateCollateral(token)
	}
	k.SetAccount(ctx, account)
	return nil
}

// IncreaseCollateralShares credits shares to (account, token).
func (k *Keeper) IncreaseCollateralShares(ctx sdk.Context, accountID uint64, token string, shares math.LegacyDec) error {
	return k.adjustShares(ctx, accountID, token, shares, false)
}

// DecreaseCollateralShares debits shares from (account, token), failing if
// the balance would go negative.
func (k *Keeper) DecreaseCollateralShares(ctx sdk.Context, accountID uint64, token string, shares math.LegacyDec) error {
	return k.adjustShares(ctx, accountID, token, shares.Neg(), false)
}

// DecreaseCollateralSharesIntoDeficit debits shares and permits the balance
// to go negative. Reserved for liquidation, auto-exchange and cashflow
// propagation paths.
func (k *Keeper) DecreaseCollateralSharesIntoDeficit(ctx sdk.Context, accountID uint64, token string, shares math.LegacyDec) error {
	return k.adjustShares(ctx, accountID, token, shares.Neg(), true)
}

// TransferCollateral moves an asset-denominated amount between two accounts
// in the same token. The debit may drive the payer into deficit when
// allowDeficit is set.
func (k *Keeper) TransferCollateral(ctx sdk.Context, fromID, toID uint64, token string, assets math.LegacyDec, allowDeficit bool) error {
	if assets.IsZero() {
		return nil
	}
	shares := k.TokenAdapter(token).SharesForAssets(assets)
	if err := k.adjustShares(ctx, fromID, token, shares.Neg(), allowDeficit); err != nil {
		return err
	}
	return k.adjustShares(ctx, toID, token, shares, false)
}

// ============ Net Deposits ============

// GetAccountNetCollateralDeposits returns the cumulative net deposits in
// asset terms for (account, token).
func (k *Keeper) GetAccountNetCollateralDeposits(ctx sdk.Context, accountID uint64, token string) math.LegacyDec {
	store := k.GetStore(ctx)
	bz := store.Get(netDepositsKey(accountID, token))
	if bz == nil {
		return math.LegacyZeroDec()
	}
	var rec netDepositsRecord
	if err := json.Unmarshal(bz, &rec); err != nil {
		return math.LegacyZeroDec()
	}
	return rec.Amount
}

// UpdateNetCollateralDeposits applies a signed asset delta to the net
// deposits record.
func (k *Keeper) UpdateNetCollateralDeposits(ctx sdk.Context, accountID uint64, token string, delta math.LegacyDec) {
	store := k.GetStore(ctx)
	updated := k.GetAccountNetCollateralDeposits(ctx, accountID, token).Add(delta)
	bz, _ := json.Marshal(netDepositsRecord{Amount: updated})
	store.Set(netDepositsKey(accountID, token), bz)
}

// IncreaseNetCollateralDeposits records a deposit.
func (k *Keeper) IncreaseNetCollateralDeposits(ctx sdk.Context, accountID uint64, token string, amount math.LegacyDec) {
	k.UpdateNetCollateralDeposits(ctx, accountID, token, amount)
}

// DecreaseNetCollateralDeposits records a withdrawal.
func (k *Keeper) DecreaseNetCollateralDeposits(ctx sdk.Context, accountID uint64, token string, amount math.LegacyDec) {
	k.UpdateNetCollateralDeposits(ctx, accountID, token, amount.Neg())
}

// ============ Deposits / Withdrawals ============

// Deposit converts a raw asset amount to shares via the token adapter and
// credits the account. The token must be configured in the account's pool.
func (k *Keeper) Deposit(ctx sdk.Context, accountID uint64, token string, assets math.LegacyDec) error {
	if !assets.IsPositive() {
		return types.ErrInvalidAmount.Wrapf("deposit %s", assets.String())
	}
	account, pool, err := k.PoolForAccount(ctx, accountID)
	if err != nil {
		return err
	}
	if _, err := k.GetCollateralConfig(ctx, pool.ID, token); err != nil {
		return err
	}
	if account.Mode == types.AccountModeSingleToken {
		for _, active := range account.ActiveCollaterals {
			if active != token {
				return types.ErrSingleTokenViolation.Wrapf("account %d already holds %s", accountID, active)
			}
		}
	}

	shares := k.TokenAdapter(token).SharesForAssets(assets)
	if err := k.IncreaseCollateralShares(ctx, accountID, token, shares); err != nil {
		return err
	}
	k.IncreaseNetCollateralDeposits(ctx, accountID, token, assets)

	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			"collateral_deposit",
			sdk.NewAttribute("account_id", fmt.Sprintf("%d", accountID)),
			sdk.NewAttribute("token", token),
			sdk.NewAttribute("assets", assets.String()),
			sdk.NewAttribute("shares", shares.String()),
		),
	)
	return nil
}

// Withdraw debits a raw asset amount. The caller is expected to have
// checked the withdrawable bound (margin keeper) before invoking; the
// ledger still refuses to go negative.
func (k *Keeper) Withdraw(ctx sdk.Context, accountID uint64, token string, assets math.LegacyDec) error {
	if !assets.IsPositive() {
		return types.ErrInvalidAmount.Wrapf("withdraw %s", assets.String())
	}
	shares := k.TokenAdapter(token).SharesForAssets(assets)
	if err := k.DecreaseCollateralShares(ctx, accountID, token, shares); err != nil {
		return err
	}
	k.DecreaseNetCollateralDeposits(ctx, accountID, token, assets)

	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			"collateral_withdraw",
			sdk.NewAttribute("account_id", fmt.Sprintf("%d", accountID)),
			sdk.NewAttribute("token", token),
			sdk.NewAttribute("assets", assets.String()),
			sdk.NewAttribute("shares", shares.String()),
		),
	)
	return nil
}
