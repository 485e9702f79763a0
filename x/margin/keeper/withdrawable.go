package keeper

import (
	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
)

// GetWithdrawableCollateralBalance returns the largest asset amount of
// token the account can withdraw without breaching initial margin in the
// token's bubble, exceeding the settled bubble balance, or exceeding the
// settled balance of the token itself.
func (k *Keeper) GetWithdrawableCollateralBalance(ctx sdk.Context, accountID uint64, token string) (math.LegacyDec, error) {
	info, err := k.GetMarginInfoByBubble(ctx, accountID, token)
	if err != nil {
		return math.LegacyZeroDec(), err
	}

	withdrawable := info.Deltas.Initial
	if info.RealBalance.LT(withdrawable) {
		withdrawable = info.RealBalance
	}
	if tokenBalance := k.collateralKeeper.GetCollateralBalance(ctx, accountID, token); tokenBalance.LT(withdrawable) {
		withdrawable = tokenBalance
	}
	if withdrawable.IsNegative() {
		return math.LegacyZeroDec(), nil
	}
	return withdrawable, nil
}
