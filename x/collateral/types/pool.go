package types

import (
	"time"

	"cosmossdk.io/math"
)

// RiskMultipliers scale the liquidation margin requirement into the other
// requirement tiers. Initial > Maintenance > 1 > Dutch > Adl, so that the
// thresholds are crossed in order as an account's health decays.
type RiskMultipliers struct {
	Initial     math.LegacyDec
	Maintenance math.LegacyDec
	Dutch       math.LegacyDec
	Adl         math.LegacyDec
}

// DutchConfig parameterizes the dutch-auction penalty curve:
// penalty = min(1, DMin + (1 - health) * DSlope).
type DutchConfig struct {
	DMin   math.LegacyDec
	DSlope math.LegacyDec
}

// FeeConfig parameterizes how liquidation penalties are split.
type FeeConfig struct {
	// LiquidationFee is the fraction of a penalty routed to the insurance
	// fund, and again to the backstop LP when it is above its minimum
	// free collateral.
	LiquidationFee math.LegacyDec

	// BidKeeperFee is the fraction paid to the keeper that executed a
	// ranked bid, when one was supplied.
	BidKeeperFee math.LegacyDec

	// UnfilledFee scales the penalty charged when unfilled orders are
	// force-closed below MMR.
	UnfilledFee math.LegacyDec
}

// InsuranceFundConfig identifies the pool's insurance fund account and its
// protection threshold for the backstop LP.
type InsuranceFundConfig struct {
	AccountID uint64

	// MinBackstopLpFreeCollateral gates the backstop LP's share of
	// liquidation penalties: below this free collateral the backstop LP
	// receives nothing, to avoid drawing it below viability.
	MinBackstopLpFreeCollateral math.LegacyDec
}

// BackstopLpConfig identifies the pool's backstop liquidity provider.
type BackstopLpConfig struct {
	AccountID uint64

	// ImBuffer is the extra initial-margin headroom the backstop LP must
	// retain after absorbing residual exposure during a solvent backstop
	// liquidation.
	ImBuffer math.LegacyDec
}

// AutoExchangeConfig parameterizes auto-exchange eligibility and sizing.
type AutoExchangeConfig struct {
	// SingleThresholdUSD: a negative single-token IM delta beyond this
	// absolute USD value makes the account eligible.
	SingleThresholdUSD math.LegacyDec

	// AggregateThresholdUSD: aggregate negative quote balances beyond this
	// absolute USD value make the account eligible.
	AggregateThresholdUSD math.LegacyDec

	// TotalValueRatio: aggregate negative quote balances beyond this
	// fraction of total account value make the account eligible.
	TotalValueRatio math.LegacyDec

	// Ratio caps one exchange at Ratio * |IM delta| in the deficit token.
	Ratio math.LegacyDec

	// DiscountRatio rewards the exchanger by pricing the covering token
	// below its exchange price. Zero disables the discount.
	DiscountRatio math.LegacyDec
}

// CollateralPool groups markets and accounts sharing risk parameters.
// Created once by configuration and mutated only by its owner.
type CollateralPool struct {
	ID    uint64
	Owner string

	Multipliers  RiskMultipliers
	Dutch        DutchConfig
	Fees         FeeConfig
	Insurance    InsuranceFundConfig
	BackstopLp   BackstopLpConfig
	AutoExchange AutoExchangeConfig

	// BidQueueDuration bounds the lifetime of a liquidation bid priority
	// queue generation.
	BidQueueDuration time.Duration

	// MaxBidsPerQueue bounds the number of bids a queue accepts.
	MaxBidsPerQueue int

	// MaxOrdersPerBid bounds the number of orders a single bid may carry.
	MaxOrdersPerBid int
}

// DefaultRiskMultipliers returns conservative defaults: IM 2x, MMR 1.5x,
// dutch 0.8x and ADL 0.5x of the liquidation margin requirement.
func DefaultRiskMultipliers() RiskMultipliers {
	return RiskMultipliers{
		Initial:     math.LegacyNewDec(2),
		Maintenance: math.LegacyNewDecWithPrec(15, 1),
		Dutch:       math.LegacyNewDecWithPrec(8, 1),
		Adl:         math.LegacyNewDecWithPrec(5, 1),
	}
}

// DefaultCollateralPool returns a pool with default risk parameters.
func DefaultCollateralPool(id uint64, owner string) *CollateralPool {
	return &CollateralPool{
		ID:          id,
		Owner:       owner,
		Multipliers: DefaultRiskMultipliers(),
		Dutch: DutchConfig{
			DMin:   math.LegacyNewDecWithPrec(5, 2),  // 5%
			DSlope: math.LegacyNewDecWithPrec(50, 2), // 50%
		},
		Fees: FeeConfig{
			LiquidationFee: math.LegacyNewDecWithPrec(20, 2), // 20%
			BidKeeperFee:   math.LegacyNewDecWithPrec(5, 2),  // 5%
			UnfilledFee:    math.LegacyNewDecWithPrec(5, 2),  // 5%
		},
		Insurance: InsuranceFundConfig{
			MinBackstopLpFreeCollateral: math.LegacyZeroDec(),
		},
		BackstopLp: BackstopLpConfig{
			ImBuffer: math.LegacyZeroDec(),
		},
		AutoExchange: AutoExchangeConfig{
			SingleThresholdUSD:    math.LegacyNewDec(1000),
			AggregateThresholdUSD: math.LegacyNewDec(5000),
			TotalValueRatio:       math.LegacyNewDecWithPrec(10, 2), // 10%
			Ratio:                 math.LegacyOneDec(),
			DiscountRatio:         math.LegacyZeroDec(),
		},
		BidQueueDuration: 5 * time.Minute,
		MaxBidsPerQueue:  50,
		MaxOrdersPerBid:  10,
	}
}
