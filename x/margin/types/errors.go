package types

import (
	"cosmossdk.io/errors"
)

// Module error codes
var (
	ErrUnsupportedAccountExposure = errors.Register("margin", 1, "unsupported account mode for exposure aggregation")
	ErrMarketManagerNotFound      = errors.Register("margin", 2, "no market manager registered for market")
	ErrAccountNotFound            = errors.Register("margin", 3, "account not found")
)
