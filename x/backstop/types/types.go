package types

import (
	"time"

	"cosmossdk.io/math"
)

// BackstopPool is the share ledger behind a collateral pool's backstop LP
// account. Deposits mint shares at the pool's NAV, withdrawals burn them
// after a redemption delay, and every redemption is gated on the backstop
// account keeping enough free collateral to stay viable as a liquidation
// backstop.
type BackstopPool struct {
	CollateralPoolID uint64
	AccountID        uint64 // backstop LP collateral account
	QuoteToken       string

	TotalShares math.LegacyDec

	// RedemptionDelay is the wait between a withdrawal request and its
	// claim.
	RedemptionDelay time.Duration

	// MinFreeCollateral is the initial-margin headroom the backstop
	// account must retain after a redemption.
	MinFreeCollateral math.LegacyDec

	CreatedAt time.Time
	UpdatedAt time.Time
}

// SharesForDeposit converts a deposit amount into shares at the given NAV.
func (p *BackstopPool) SharesForDeposit(amount, nav math.LegacyDec) math.LegacyDec {
	if p.TotalShares.IsZero() || !nav.IsPositive() {
		return amount
	}
	return amount.Quo(nav)
}

// ValueForShares converts shares into a redemption amount at the given NAV.
func (p *BackstopPool) ValueForShares(shares, nav math.LegacyDec) math.LegacyDec {
	return shares.Mul(nav)
}

// WithdrawalStatus tracks a withdrawal request's lifecycle.
type WithdrawalStatus int

const (
	WithdrawalStatusPending WithdrawalStatus = iota
	WithdrawalStatusCompleted
)

// Withdrawal is a delayed redemption request against a backstop pool.
type Withdrawal struct {
	ID               string
	CollateralPoolID uint64

	// WithdrawerAccount receives the redeemed collateral.
	WithdrawerAccount uint64
	Withdrawer        string

	Shares       math.LegacyDec
	NAVAtRequest math.LegacyDec

	RequestedAt time.Time
	AvailableAt time.Time
	Status      WithdrawalStatus

	AmountReceived math.LegacyDec
	CompletedAt    time.Time
}

// IsReady reports whether the redemption delay has passed.
func (w *Withdrawal) IsReady(now time.Time) bool {
	return !now.Before(w.AvailableAt)
}
