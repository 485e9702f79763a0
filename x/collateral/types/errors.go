package types

import (
	"cosmossdk.io/errors"
)

// Module error codes
var (
	ErrAccountAlreadyExists   = errors.Register("collateral", 1, "account already exists")
	ErrAccountNotFound        = errors.Register("collateral", 2, "account not found")
	ErrUnauthorized           = errors.Register("collateral", 3, "address lacks the required account permission")
	ErrInsufficientCollateral = errors.Register("collateral", 4, "insufficient collateral")
	ErrPoolNotFound           = errors.Register("collateral", 5, "collateral pool not found")
	ErrPoolAlreadyExists      = errors.Register("collateral", 6, "collateral pool already exists")
	ErrPoolOwnerOnly          = errors.Register("collateral", 7, "only the pool owner may change pool configuration")
	ErrTokenNotConfigured     = errors.Register("collateral", 8, "collateral token not configured in pool")
	ErrAdapterNotRegistered   = errors.Register("collateral", 9, "no token adapter registered for token")
	ErrBubbleCycle            = errors.Register("collateral", 10, "collateral configuration would introduce a cycle")
	ErrUnknownParentToken     = errors.Register("collateral", 11, "parent token is not configured in pool")
	ErrInvalidHaircut         = errors.Register("collateral", 12, "haircut must be in [0, 1)")
	ErrInvalidExchangePrice   = errors.Register("collateral", 13, "exchange price must be positive")
	ErrSingleTokenViolation   = errors.Register("collateral", 14, "single-token account may only hold its designated token")
	ErrInvalidAmount          = errors.Register("collateral", 15, "amount must be positive")
)
