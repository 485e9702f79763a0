package types

import (
	"cosmossdk.io/errors"
)

// Module error codes
var (
	ErrPoolNotFound          = errors.Register("backstop", 1, "backstop pool not found")
	ErrPoolAlreadyExists     = errors.Register("backstop", 2, "backstop pool already exists")
	ErrDepositTooSmall       = errors.Register("backstop", 3, "deposit amount must be positive")
	ErrInsufficientShares    = errors.Register("backstop", 4, "insufficient backstop pool shares")
	ErrWithdrawalNotFound    = errors.Register("backstop", 5, "withdrawal request not found")
	ErrWithdrawalNotReady    = errors.Register("backstop", 6, "withdrawal redemption delay has not passed")
	ErrUnauthorized          = errors.Register("backstop", 7, "unauthorized")
	ErrBelowMinFreeCollateral = errors.Register("backstop", 8, "redemption would leave the backstop account below its minimum free collateral")
)
