package keeper

import (
	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	collateraltypes "github.com/openalpha/clearing-core/x/collateral/types"
	"github.com/openalpha/clearing-core/x/margin/types"
)

// GetMarginInfoByBubble computes the account's margin info at the bubble
// rooted at token: the account's own exposure under token combined with
// every child token's contribution, converted through the bubble edges.
func (k *Keeper) GetMarginInfoByBubble(ctx sdk.Context, accountID uint64, token string) (types.MarginInfo, error) {
	account, pool, err := k.collateralKeeper.PoolForAccount(ctx, accountID)
	if err != nil {
		return types.MarginInfo{}, err
	}
	switch account.Mode {
	case collateraltypes.AccountModeSingleToken, collateraltypes.AccountModeMultiToken:
	default:
		return types.MarginInfo{}, types.ErrUnsupportedAccountExposure.Wrapf(
			"account %d mode %d", accountID, account.Mode)
	}
	info, err := k.bubbleMarginInfo(ctx, account, pool, token)
	if err != nil {
		return types.MarginInfo{}, err
	}
	return finalize(info, pool.Multipliers), nil
}

// GetRequirementDeltasByBubble computes just the requirement deltas at the
// bubble rooted at token.
func (k *Keeper) GetRequirementDeltasByBubble(ctx sdk.Context, accountID uint64, token string) (types.MarginRequirementDeltas, error) {
	info, err := k.GetMarginInfoByBubble(ctx, accountID, token)
	if err != nil {
		return types.MarginRequirementDeltas{}, err
	}
	return info.Deltas, nil
}

// GetTokenMarginInfo computes the account's margin info for token alone,
// without descending into child bubbles. This is the single-token view
// solvency checks and auto-exchange eligibility are defined over.
func (k *Keeper) GetTokenMarginInfo(ctx sdk.Context, accountID uint64, token string) (types.MarginInfo, error) {
	account, pool, err := k.collateralKeeper.PoolForAccount(ctx, accountID)
	if err != nil {
		return types.MarginInfo{}, err
	}
	info, err := k.tokenMarginInfo(ctx, account, token)
	if err != nil {
		return types.MarginInfo{}, err
	}
	return finalize(info, pool.Multipliers), nil
}

// bubbleMarginInfo recurses over the collateral tree. Single-token
// accounts never descend: their margin is defined over one token only.
func (k *Keeper) bubbleMarginInfo(ctx sdk.Context, account *collateraltypes.Account, pool *collateraltypes.CollateralPool, token string) (types.MarginInfo, error) {
	info, err := k.tokenMarginInfo(ctx, account, token)
	if err != nil {
		return types.MarginInfo{}, err
	}
	if account.Mode == collateraltypes.AccountModeSingleToken {
		return info, nil
	}

	for _, child := range k.collateralKeeper.GetBubbleChildren(ctx, pool.ID, token) {
		childInfo, err := k.bubbleMarginInfo(ctx, account, pool, child.Token)
		if err != nil {
			return types.MarginInfo{}, err
		}
		// Signed quantities take the directional haircut; requirement
		// magnitudes and the raw balance convert at the full price so risk
		// is never discounted away.
		info.NetDeposits = info.NetDeposits.Add(child.ConvertToParent(childInfo.NetDeposits))
		info.RealBalance = info.RealBalance.Add(child.ConvertToParent(childInfo.RealBalance))
		info.MarginBalance = info.MarginBalance.Add(child.ConvertToParent(childInfo.MarginBalance))
		info.RawMarginBalance = info.RawMarginBalance.Add(child.ConvertToParentRaw(childInfo.RawMarginBalance))
		info.LiquidationMarginRequirement = info.LiquidationMarginRequirement.Add(
			child.ConvertToParentRaw(childInfo.LiquidationMarginRequirement))
	}
	return info, nil
}

// tokenMarginInfo computes the account's own-token contribution: the sum
// over active markets under token of the liquidation margin requirement
// and the highest unrealized loss, taking the worse unfilled-exposure
// scenario per position.
func (k *Keeper) tokenMarginInfo(ctx sdk.Context, account *collateraltypes.Account, token string) (types.MarginInfo, error) {
	lmRequirement := math.LegacyZeroDec()
	unrealizedLoss := math.LegacyZeroDec()

	for _, marketID := range account.ActiveMarkets[token] {
		manager, err := k.Market(marketID)
		if err != nil {
			return types.MarginInfo{}, err
		}
		config, err := manager.GetMarketConfiguration(ctx, marketID)
		if err != nil {
			return types.MarginInfo{}, err
		}
		pairs, err := manager.GetAccountTakerAndMakerExposures(ctx, marketID, account.ID)
		if err != nil {
			return types.MarginInfo{}, err
		}

		for _, pair := range pairs {
			chosen, chosenLm := worseExposure(pair, config.RiskParameter)
			lmRequirement = lmRequirement.Add(chosenLm)
			unrealizedLoss = unrealizedLoss.Add(chosen.UnrealizedLoss)
		}
	}

	realBalance := k.collateralKeeper.GetCollateralBalance(ctx, account.ID, token)
	marginBalance := realBalance.Sub(unrealizedLoss)

	return types.MarginInfo{
		AccountID:                    account.ID,
		CollateralPoolID:             account.CollateralPoolID,
		Token:                        token,
		NetDeposits:                  k.collateralKeeper.GetAccountNetCollateralDeposits(ctx, account.ID, token),
		RealBalance:                  realBalance,
		MarginBalance:                marginBalance,
		RawMarginBalance:             marginBalance,
		LiquidationMarginRequirement: lmRequirement,
	}, nil
}

// worseExposure picks the scenario with the larger combined loss
// (requirement plus unrealized loss). Balanced pairs skip the comparison.
func worseExposure(pair types.ExposurePair, riskParameter math.LegacyDec) (types.MarketExposure, math.LegacyDec) {
	lmLower := riskParameter.Mul(pair.Lower.AnnualizedNotional.Abs())
	if pair.IsBalanced() {
		return pair.Lower, lmLower
	}
	lmUpper := riskParameter.Mul(pair.Upper.AnnualizedNotional.Abs())
	if lmLower.Add(pair.Lower.UnrealizedLoss).GT(lmUpper.Add(pair.Upper.UnrealizedLoss)) {
		return pair.Lower, lmLower
	}
	return pair.Upper, lmUpper
}

// finalize derives the five requirement deltas from the aggregated margin
// balance and LM requirement.
func finalize(info types.MarginInfo, multipliers collateraltypes.RiskMultipliers) types.MarginInfo {
	lm := info.LiquidationMarginRequirement
	info.Deltas = types.MarginRequirementDeltas{
		Initial:     info.MarginBalance.Sub(multipliers.Initial.Mul(lm)),
		Maintenance: info.MarginBalance.Sub(multipliers.Maintenance.Mul(lm)),
		Liquidation: info.MarginBalance.Sub(lm),
		Dutch:       info.MarginBalance.Sub(multipliers.Dutch.Mul(lm)),
		Adl:         info.MarginBalance.Sub(multipliers.Adl.Mul(lm)),
	}
	return info
}
