package keeper

import (
	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/clearing-core/x/clearinghouse/types"
)

// GetInsuranceFund returns the pool's fund record for a quote token,
// creating an empty record when none exists yet.
func (k *Keeper) GetInsuranceFund(ctx sdk.Context, poolID uint64, quoteToken string) *types.InsuranceFund {
	var fund types.InsuranceFund
	if !k.loadJSON(ctx, insuranceFundTokenKey(poolID, quoteToken), &fund) {
		return types.NewInsuranceFund(poolID, quoteToken, math.LegacyZeroDec(), ctx.BlockTime())
	}
	return &fund
}

// SetInsuranceFund persists a fund record.
func (k *Keeper) SetInsuranceFund(ctx sdk.Context, fund *types.InsuranceFund) {
	k.storeJSON(ctx, insuranceFundTokenKey(fund.PoolID, fund.QuoteToken), fund)
}

// FundInsurance credits external capacity into the fund, backing it with
// a ledger transfer into the pool's insurance account.
func (k *Keeper) FundInsurance(ctx sdk.Context, fromAccountID, poolID uint64, quoteToken string, amount math.LegacyDec) error {
	if !amount.IsPositive() {
		return types.ErrInvalidBid.Wrap("insurance contribution must be positive")
	}
	pool := k.collateralKeeper.GetCollateralPool(ctx, poolID)
	if pool == nil {
		return types.ErrCollateralPoolMismatch.Wrapf("pool %d", poolID)
	}
	if err := k.collateralKeeper.TransferCollateral(ctx, fromAccountID, pool.Insurance.AccountID, quoteToken, amount, false); err != nil {
		return err
	}
	fund := k.GetInsuranceFund(ctx, poolID, quoteToken)
	fund.Collect(amount, ctx.BlockTime())
	k.SetInsuranceFund(ctx, fund)
	return nil
}

func insuranceFundTokenKey(poolID uint64, quoteToken string) []byte {
	return append(insuranceFundKey(poolID), []byte(quoteToken)...)
}
