package types

import (
	"cosmossdk.io/errors"
)

// Module error codes
var (
	ErrAccountNotBetweenMmrAndLm             = errors.Register("clearinghouse", 1, "account is not between maintenance and liquidation margin")
	ErrAccountNotBelowMmr                    = errors.Register("clearinghouse", 2, "account is not below maintenance margin")
	ErrAccountNotBelowAdl                    = errors.Register("clearinghouse", 3, "account is not below the ADL margin requirement")
	ErrAccountNotBetweenAdlAndLm             = errors.Register("clearinghouse", 4, "account is not between the ADL and liquidation margin requirements")
	ErrAccountHasUnfilledOrders              = errors.Register("clearinghouse", 5, "account has unfilled orders")
	ErrAccountAboveDutchWithNonEmptyBidQueue = errors.Register("clearinghouse", 6, "account is above the dutch threshold and its liquidation bid queue is not empty")
	ErrCollateralPoolMismatch                = errors.Register("clearinghouse", 7, "liquidator and liquidatee are not in the same collateral pool")
	ErrLiquidationBidQueueOverflow           = errors.Register("clearinghouse", 8, "liquidation bid priority queue overflow")
	ErrLiquidationBidQueueExpired            = errors.Register("clearinghouse", 9, "liquidation bid priority queue expired")
	ErrLiquidationBidQueueEmpty              = errors.Register("clearinghouse", 10, "liquidation bid priority queue is empty")
	ErrNegativeLmDeltaChange                 = errors.Register("clearinghouse", 11, "liquidation caused a negative liquidation margin delta change")
	ErrTooManyOrdersInBid                    = errors.Register("clearinghouse", 12, "bid carries more orders than the pool allows")
	ErrQuoteTokenMismatch                    = errors.Register("clearinghouse", 13, "bid quote token does not match the market quote token")
	ErrInvalidLiquidationHook                = errors.Register("clearinghouse", 14, "liquidation hook did not acknowledge")
	ErrHookNotRegistered                     = errors.Register("clearinghouse", 15, "no liquidation hook registered at address")
	ErrLiquidatorNotAdmin                    = errors.Register("clearinghouse", 16, "liquidator lacks the admin permission on its account")
	ErrLiquidatorBelowIm                     = errors.Register("clearinghouse", 17, "liquidator account below initial margin")
	ErrBackstopLpBelowIm                     = errors.Register("clearinghouse", 18, "backstop LP cannot absorb exposure without breaching initial margin plus buffer")
	ErrAccountSolvent                        = errors.Register("clearinghouse", 19, "account is solvent")
	ErrNotEligibleForAutoExchange            = errors.Register("clearinghouse", 20, "account is not eligible for auto-exchange")
	ErrAutoExchangeAmountTooLarge            = errors.Register("clearinghouse", 21, "auto-exchange amount exceeds the maximum exchangeable")
	ErrInvalidBid                            = errors.Register("clearinghouse", 22, "invalid liquidation bid")
)
