package types

import (
	"time"

	"cosmossdk.io/math"
)

// InsuranceFund tracks a collateral pool's underwriting capacity. The
// fund's collateral lives on its ledger account; this record tracks how
// much of it is still available for covering liquidation shortfalls.
type InsuranceFund struct {
	PoolID         uint64
	QuoteToken     string
	Capacity       math.LegacyDec // remaining underwriting capacity
	TotalCollected math.LegacyDec // penalties received
	TotalCovered   math.LegacyDec // shortfalls underwritten
	UpdatedAt      time.Time
}

// NewInsuranceFund creates a fund record with the given starting capacity.
func NewInsuranceFund(poolID uint64, quoteToken string, capacity math.LegacyDec, now time.Time) *InsuranceFund {
	return &InsuranceFund{
		PoolID:         poolID,
		QuoteToken:     quoteToken,
		Capacity:       capacity,
		TotalCollected: math.LegacyZeroDec(),
		TotalCovered:   math.LegacyZeroDec(),
		UpdatedAt:      now,
	}
}

// Collect credits a penalty share to the fund.
func (f *InsuranceFund) Collect(amount math.LegacyDec, now time.Time) {
	f.Capacity = f.Capacity.Add(amount)
	f.TotalCollected = f.TotalCollected.Add(amount)
	f.UpdatedAt = now
}

// CanCover reports whether the fund can underwrite the full shortfall.
func (f *InsuranceFund) CanCover(amount math.LegacyDec) bool {
	return f.Capacity.GTE(amount)
}

// Cover debits up to amount from the fund and returns what was actually
// covered.
func (f *InsuranceFund) Cover(amount math.LegacyDec, now time.Time) math.LegacyDec {
	covered := amount
	if f.Capacity.LT(covered) {
		covered = f.Capacity
	}
	if covered.IsNegative() {
		covered = math.LegacyZeroDec()
	}
	f.Capacity = f.Capacity.Sub(covered)
	f.TotalCovered = f.TotalCovered.Add(covered)
	f.UpdatedAt = now
	return covered
}

// PenaltyDistribution is the exact split of one liquidation penalty.
// Conservation: the four shares sum to the penalty.
type PenaltyDistribution struct {
	Penalty         math.LegacyDec
	InsuranceFund   math.LegacyDec
	BackstopLp      math.LegacyDec
	Keeper          math.LegacyDec
	Liquidator      math.LegacyDec
	BackstopSkipped bool // backstop LP share zeroed by the viability gate
}
