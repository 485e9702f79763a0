package types

import (
	"cosmossdk.io/math"
)

// RootToken is the sentinel parent of every bubble root. Balances expressed
// in RootToken terms are USD-equivalent.
const RootToken = ""

// CollateralConfig is one node of a pool's collateral bubble tree. Each
// non-root token has a parent token, an exchange price denominated in the
// parent, and a haircut applied when converting value into the parent.
type CollateralConfig struct {
	Token  string
	Parent string

	// ExchangePrice is the value of one unit of Token in Parent terms.
	ExchangePrice math.LegacyDec

	// Haircut discounts positive deltas converted into the parent.
	// Negative deltas pass through at the full exchange price.
	Haircut math.LegacyDec

	// Cap is the maximum share balance accepted for this token; zero means
	// uncapped.
	Cap math.LegacyDec
}

// Validate checks the node-local invariants. Tree-level invariants
// (known parent, acyclicity) are checked by the keeper at configuration
// time.
func (c CollateralConfig) Validate() error {
	if !c.ExchangePrice.IsPositive() {
		return ErrInvalidExchangePrice
	}
	if c.Haircut.IsNegative() || c.Haircut.GTE(math.LegacyOneDec()) {
		return ErrInvalidHaircut
	}
	return nil
}

// ConvertToParent converts a signed quantity of Token into Parent terms.
// Positive quantities are discounted by the haircut; negative quantities
// convert at the full exchange price so that losses are never understated.
func (c CollateralConfig) ConvertToParent(quantity math.LegacyDec) math.LegacyDec {
	converted := quantity.Mul(c.ExchangePrice)
	if converted.IsPositive() {
		return converted.Mul(math.LegacyOneDec().Sub(c.Haircut))
	}
	return converted
}

// ConvertToParentRaw converts without applying the haircut. Used for
// requirement magnitudes and solvency checks, where discounting would
// understate risk.
func (c CollateralConfig) ConvertToParentRaw(quantity math.LegacyDec) math.LegacyDec {
	return quantity.Mul(c.ExchangePrice)
}
