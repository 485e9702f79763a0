package types

import (
	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
)

// MarketExposure is one exposure scenario reported by a market manager.
type MarketExposure struct {
	// AnnualizedNotional is the position's exposure normalized to a
	// one-year-equivalent quantity for risk-parameter scaling.
	AnnualizedNotional math.LegacyDec

	// UnrealizedLoss is the loss locked in under this scenario; zero or
	// positive.
	UnrealizedLoss math.LegacyDec
}

// ExposurePair is a (lower, upper) unfilled-exposure scenario pair for one
// position. Filled-only (taker) positions report equal scenarios.
type ExposurePair struct {
	Lower MarketExposure
	Upper MarketExposure
}

// IsBalanced reports whether both scenarios are identical, letting the
// aggregator skip the worse-of comparison.
func (p ExposurePair) IsBalanced() bool {
	return p.Lower.AnnualizedNotional.Equal(p.Upper.AnnualizedNotional) &&
		p.Lower.UnrealizedLoss.Equal(p.Upper.UnrealizedLoss)
}

// MarketConfiguration is the risk-relevant configuration of a market.
type MarketConfiguration struct {
	QuoteToken    string
	RiskParameter math.LegacyDec
}

// MarketManager is the capability a registered market exposes to the core.
// Market implementations are plugged in via the margin keeper's registry
// keyed by market id; the core treats them as fallible collaborators and
// validates existence before use.
type MarketManager interface {
	// GetMarketConfiguration returns the market's quote token and risk
	// parameter.
	GetMarketConfiguration(ctx sdk.Context, marketID uint64) (MarketConfiguration, error)

	// GetAccountTakerAndMakerExposures returns one exposure pair per
	// position the account holds in the market.
	GetAccountTakerAndMakerExposures(ctx sdk.Context, marketID, accountID uint64) ([]ExposurePair, error)

	// ValidateLiquidationOrder checks encoded order inputs against the
	// account's position without executing.
	ValidateLiquidationOrder(ctx sdk.Context, marketID, accountID uint64, inputs []byte) error

	// ExecuteLiquidationOrder executes encoded order inputs on behalf of
	// the liquidator against the liquidatable account.
	ExecuteLiquidationOrder(ctx sdk.Context, marketID, liquidatableAccountID, liquidatorAccountID uint64, inputs []byte) error

	// ExecuteADLOrder force-unwinds the account's position against the
	// counterparty book. The two flags select which side is unwound:
	// positions currently in profit, in loss, or both when both are set.
	// When adlNegativeUpnl is set and totalUnrealizedLossQuote is
	// positive, losing positions unwind at the bankruptcy price that
	// shares realBalanceAndIF pro rata over the loss; otherwise market
	// price applies.
	ExecuteADLOrder(ctx sdk.Context, marketID, accountID uint64, adlNegativeUpnl, adlPositiveUpnl bool, totalUnrealizedLossQuote, realBalanceAndIF math.LegacyDec) error

	// AssignPositionAtMarketPrice moves the account's filled position to
	// the assignee at the current market price, with no penalty applied.
	AssignPositionAtMarketPrice(ctx sdk.Context, marketID, fromAccountID, toAccountID uint64) error

	// GetAccountUnrealizedPnL returns the signed unrealized PnL of the
	// account's filled position in quote terms.
	GetAccountUnrealizedPnL(ctx sdk.Context, marketID, accountID uint64) (math.LegacyDec, error)

	// HasOpenPosition reports whether the account has non-zero filled
	// exposure on either side.
	HasOpenPosition(ctx sdk.Context, marketID, accountID uint64) (bool, error)

	// HasUnfilledOrders reports whether the account has resting unfilled
	// orders in the market.
	HasUnfilledOrders(ctx sdk.Context, marketID, accountID uint64) (bool, error)

	// CloseAllUnfilledOrders cancels every unfilled order of the account.
	CloseAllUnfilledOrders(ctx sdk.Context, marketID, accountID uint64) error
}
