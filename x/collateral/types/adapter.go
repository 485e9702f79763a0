package types

import (
	"cosmossdk.io/math"
)

// TokenAdapter converts between raw asset amounts and internal shares.
// Shares are the stored unit so that rebasing or interest-bearing wrapped
// assets keep a stable ledger representation while their asset value
// drifts.
type TokenAdapter interface {
	// SharesForAssets returns the share amount minted for an asset deposit.
	SharesForAssets(assets math.LegacyDec) math.LegacyDec

	// AssetsForShares returns the asset amount redeemed for a share balance.
	AssetsForShares(shares math.LegacyDec) math.LegacyDec
}

// StandardAdapter is the 1:1 adapter for plain tokens.
type StandardAdapter struct{}

func (StandardAdapter) SharesForAssets(assets math.LegacyDec) math.LegacyDec { return assets }
func (StandardAdapter) AssetsForShares(shares math.LegacyDec) math.LegacyDec { return shares }

// RebasingAdapter converts through a share rate: one share redeems for
// Rate assets. The rate is expected to grow as yield accrues.
type RebasingAdapter struct {
	Rate math.LegacyDec
}

func (a RebasingAdapter) SharesForAssets(assets math.LegacyDec) math.LegacyDec {
	if !a.Rate.IsPositive() {
		return assets
	}
	return assets.Quo(a.Rate)
}

func (a RebasingAdapter) AssetsForShares(shares math.LegacyDec) math.LegacyDec {
	if !a.Rate.IsPositive() {
		return shares
	}
	return shares.Mul(a.Rate)
}
