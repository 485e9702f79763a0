package types

import (
	sdk "github.com/cosmos/cosmos-sdk/types"
)

// Hook acknowledgement values. A hook call that returns anything else is
// treated as invalid and aborts the liquidation.
const (
	PreLiquidationHookAck  = "pre_liquidation_hook_ack"
	PostLiquidationHookAck = "post_liquidation_hook_ack"
)

// LiquidationHook is the optional per-bid callback contract. Hooks are
// registered in the clearinghouse keeper's registry keyed by address.
type LiquidationHook interface {
	// PreLiquidationHook runs before the bid's orders execute and must
	// return PreLiquidationHookAck.
	PreLiquidationHook(ctx sdk.Context, accountID uint64, bid LiquidationBid) (string, error)

	// PostLiquidationHook runs after the bid's orders execute and must
	// return PostLiquidationHookAck.
	PostLiquidationHook(ctx sdk.Context, accountID uint64, bid LiquidationBid) (string, error)
}
