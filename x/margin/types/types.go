package types

import (
	"cosmossdk.io/math"
)

// MarginRequirementDeltas holds the five requirement deltas for an account
// at a bubble level. Each delta is balance minus requirement: positive is
// healthy, non-positive is a breach of that tier.
type MarginRequirementDeltas struct {
	Initial     math.LegacyDec
	Maintenance math.LegacyDec
	Liquidation math.LegacyDec
	Dutch       math.LegacyDec
	Adl         math.LegacyDec
}

// MarginInfo is the computed margin state of an account at a bubble level.
// It is a pure view over stored positions and market exposures, never
// persisted.
type MarginInfo struct {
	AccountID        uint64
	CollateralPoolID uint64

	// Token is the bubble level the info is expressed in.
	Token string

	// NetDeposits is cumulative deposits minus withdrawals across the
	// bubble, in Token terms.
	NetDeposits math.LegacyDec

	// RealBalance is the settled collateral balance across the bubble,
	// with directional haircuts applied on child conversions.
	RealBalance math.LegacyDec

	// MarginBalance is RealBalance reduced by the highest unrealized loss
	// across the account's markets.
	MarginBalance math.LegacyDec

	// RawMarginBalance is MarginBalance converted without haircuts; used
	// for solvency checks where discounting would overstate insolvency.
	RawMarginBalance math.LegacyDec

	// LiquidationMarginRequirement is the aggregated LM requirement in
	// Token terms, converted without haircuts.
	LiquidationMarginRequirement math.LegacyDec

	Deltas MarginRequirementDeltas
}

// HealthRatio is margin balance over the liquidation requirement, capped
// at one. A zero requirement reads as fully healthy.
func (i MarginInfo) HealthRatio() math.LegacyDec {
	if !i.LiquidationMarginRequirement.IsPositive() {
		return math.LegacyOneDec()
	}
	health := i.MarginBalance.Quo(i.LiquidationMarginRequirement)
	if health.GT(math.LegacyOneDec()) {
		return math.LegacyOneDec()
	}
	return health
}
