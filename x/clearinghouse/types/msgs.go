package types

import (
	"context"

	cdctypes "github.com/cosmos/cosmos-sdk/codec/types"
	sdk "github.com/cosmos/cosmos-sdk/types"
)

// RegisterInterfaces registers the module's interface types
func RegisterInterfaces(registry cdctypes.InterfaceRegistry) {
	registry.RegisterImplementations((*sdk.Msg)(nil),
		&MsgSubmitLiquidationBid{},
		&MsgExecuteTopRankedLiquidationBid{},
		&MsgExecuteDutchLiquidation{},
		&MsgExecuteBackstopLiquidation{},
		&MsgCloseAllUnfilledOrders{},
		&MsgTriggerAutoExchange{},
	)
}

// Message types for the clearinghouse module
const (
	TypeMsgSubmitLiquidationBid           = "submit_liquidation_bid"
	TypeMsgExecuteTopRankedLiquidationBid = "execute_top_ranked_liquidation_bid"
	TypeMsgExecuteDutchLiquidation        = "execute_dutch_liquidation"
	TypeMsgExecuteBackstopLiquidation     = "execute_backstop_liquidation"
	TypeMsgCloseAllUnfilledOrders         = "close_all_unfilled_orders"
	TypeMsgTriggerAutoExchange            = "trigger_auto_exchange"
)

// MsgServer defines the clearinghouse module's message service
type MsgServer interface {
	SubmitLiquidationBid(context.Context, *MsgSubmitLiquidationBid) (*MsgSubmitLiquidationBidResponse, error)
	ExecuteTopRankedLiquidationBid(context.Context, *MsgExecuteTopRankedLiquidationBid) (*MsgExecuteTopRankedLiquidationBidResponse, error)
	ExecuteDutchLiquidation(context.Context, *MsgExecuteDutchLiquidation) (*MsgExecuteDutchLiquidationResponse, error)
	ExecuteBackstopLiquidation(context.Context, *MsgExecuteBackstopLiquidation) (*MsgExecuteBackstopLiquidationResponse, error)
	CloseAllUnfilledOrders(context.Context, *MsgCloseAllUnfilledOrders) (*MsgCloseAllUnfilledOrdersResponse, error)
	TriggerAutoExchange(context.Context, *MsgTriggerAutoExchange) (*MsgTriggerAutoExchangeResponse, error)
}

// RegisterMsgServer registers the MsgServer to the configurator's MsgServer
func RegisterMsgServer(s interface{}, srv MsgServer) {
	// This is a placeholder - in production, this would use gRPC registration
	// For now, the messages are handled through the module's handler
}

// BidOrderInput is the wire form of one liquidation order inside a bid.
type BidOrderInput struct {
	MarketID uint64 `json:"market_id"`
	Inputs   []byte `json:"inputs"`
}

// MsgSubmitLiquidationBid enqueues a liquidation bid for an account
// sitting between its maintenance and liquidation margin requirements.
type MsgSubmitLiquidationBid struct {
	Sender            string          `json:"sender"`
	AccountID         uint64          `json:"account_id"`
	LiquidatorAccount uint64          `json:"liquidator_account"`
	QuoteToken        string          `json:"quote_token"`
	Orders            []BidOrderInput `json:"orders"`
	HookAddress       string          `json:"hook_address,omitempty"`
	RewardParameter   string          `json:"reward_parameter"`
}

// MsgSubmitLiquidationBidResponse reports the queue the bid landed in.
type MsgSubmitLiquidationBidResponse struct {
	BidID   string `json:"bid_id"`
	QueueID uint64 `json:"queue_id"`
}

// MsgExecuteTopRankedLiquidationBid executes the top bid of an account's
// current queue generation.
type MsgExecuteTopRankedLiquidationBid struct {
	Sender        string `json:"sender"`
	AccountID     uint64 `json:"account_id"`
	QuoteToken    string `json:"quote_token"`
	KeeperAccount uint64 `json:"keeper_account,omitempty"`
}

// MsgExecuteTopRankedLiquidationBidResponse reports the executed bid and
// the penalty charged.
type MsgExecuteTopRankedLiquidationBidResponse struct {
	BidID    string `json:"bid_id"`
	Executed bool   `json:"executed"`
	Penalty  string `json:"penalty"`
}

// MsgExecuteDutchLiquidation executes a single liquidation order at the
// dutch penalty curve.
type MsgExecuteDutchLiquidation struct {
	Sender            string `json:"sender"`
	AccountID         uint64 `json:"account_id"`
	LiquidatorAccount uint64 `json:"liquidator_account"`
	QuoteToken        string `json:"quote_token"`
	MarketID          uint64 `json:"market_id"`
	Inputs            []byte `json:"inputs"`
}

// MsgExecuteDutchLiquidationResponse reports the penalty charged.
type MsgExecuteDutchLiquidationResponse struct {
	Penalty          string `json:"penalty"`
	PenaltyParameter string `json:"penalty_parameter"`
}

// MsgExecuteBackstopLiquidation unwinds an account below the ADL margin
// requirement through the backstop LP, the insurance fund and ADL.
type MsgExecuteBackstopLiquidation struct {
	Sender     string          `json:"sender"`
	AccountID  uint64          `json:"account_id"`
	QuoteToken string          `json:"quote_token"`
	Orders     []BidOrderInput `json:"orders"`
}

// MsgExecuteBackstopLiquidationResponse reports which path ran.
type MsgExecuteBackstopLiquidationResponse struct {
	Solvent bool `json:"solvent"`
}

// MsgCloseAllUnfilledOrders force-cancels every unfilled order of an
// account below maintenance margin.
type MsgCloseAllUnfilledOrders struct {
	Sender            string `json:"sender"`
	AccountID         uint64 `json:"account_id"`
	LiquidatorAccount uint64 `json:"liquidator_account"`
}

// MsgCloseAllUnfilledOrdersResponse reports the penalty charged.
type MsgCloseAllUnfilledOrdersResponse struct {
	Penalty string `json:"penalty"`
}

// MsgTriggerAutoExchange exchanges part of an account's deficit in one
// quote token against its balance in a covering token.
type MsgTriggerAutoExchange struct {
	Sender             string `json:"sender"`
	AccountID          uint64 `json:"account_id"`
	ExchangerAccount   uint64 `json:"exchanger_account"`
	CoveringToken      string `json:"covering_token"`
	AutoExchangedToken string `json:"auto_exchanged_token"`
	Amount             string `json:"amount"`
}

// MsgTriggerAutoExchangeResponse reports the executed amounts.
type MsgTriggerAutoExchangeResponse struct {
	CoveringAmount      string `json:"covering_amount"`
	AutoExchangedAmount string `json:"auto_exchanged_amount"`
}

// Proto interface implementations for MsgSubmitLiquidationBid
func (msg *MsgSubmitLiquidationBid) Reset()         { *msg = MsgSubmitLiquidationBid{} }
func (msg *MsgSubmitLiquidationBid) String() string { return msg.Sender }
func (msg *MsgSubmitLiquidationBid) ProtoMessage()  {}

func (msg *MsgSubmitLiquidationBid) XXX_MessageName() string {
	return "clearingcore.clearinghouse.v1.MsgSubmitLiquidationBid"
}

func (msg *MsgSubmitLiquidationBid) ValidateBasic() error {
	if msg.Sender == "" {
		return ErrInvalidBid.Wrap("empty sender")
	}
	if len(msg.Orders) == 0 {
		return ErrInvalidBid.Wrap("bid carries no orders")
	}
	return nil
}

func (msg *MsgSubmitLiquidationBid) GetSigners() []sdk.AccAddress {
	sender, _ := sdk.AccAddressFromBech32(msg.Sender)
	return []sdk.AccAddress{sender}
}

// Proto interface implementations for MsgExecuteTopRankedLiquidationBid
func (msg *MsgExecuteTopRankedLiquidationBid) Reset()         { *msg = MsgExecuteTopRankedLiquidationBid{} }
func (msg *MsgExecuteTopRankedLiquidationBid) String() string { return msg.Sender }
func (msg *MsgExecuteTopRankedLiquidationBid) ProtoMessage()  {}

func (msg *MsgExecuteTopRankedLiquidationBid) XXX_MessageName() string {
	return "clearingcore.clearinghouse.v1.MsgExecuteTopRankedLiquidationBid"
}

func (msg *MsgExecuteTopRankedLiquidationBid) ValidateBasic() error {
	if msg.Sender == "" {
		return ErrInvalidBid.Wrap("empty sender")
	}
	return nil
}

func (msg *MsgExecuteTopRankedLiquidationBid) GetSigners() []sdk.AccAddress {
	sender, _ := sdk.AccAddressFromBech32(msg.Sender)
	return []sdk.AccAddress{sender}
}

// Proto interface implementations for MsgExecuteDutchLiquidation
func (msg *MsgExecuteDutchLiquidation) Reset()         { *msg = MsgExecuteDutchLiquidation{} }
func (msg *MsgExecuteDutchLiquidation) String() string { return msg.Sender }
func (msg *MsgExecuteDutchLiquidation) ProtoMessage()  {}

func (msg *MsgExecuteDutchLiquidation) XXX_MessageName() string {
	return "clearingcore.clearinghouse.v1.MsgExecuteDutchLiquidation"
}

func (msg *MsgExecuteDutchLiquidation) ValidateBasic() error {
	if msg.Sender == "" {
		return ErrInvalidBid.Wrap("empty sender")
	}
	return nil
}

func (msg *MsgExecuteDutchLiquidation) GetSigners() []sdk.AccAddress {
	sender, _ := sdk.AccAddressFromBech32(msg.Sender)
	return []sdk.AccAddress{sender}
}

// Proto interface implementations for MsgExecuteBackstopLiquidation
func (msg *MsgExecuteBackstopLiquidation) Reset()         { *msg = MsgExecuteBackstopLiquidation{} }
func (msg *MsgExecuteBackstopLiquidation) String() string { return msg.Sender }
func (msg *MsgExecuteBackstopLiquidation) ProtoMessage()  {}

func (msg *MsgExecuteBackstopLiquidation) XXX_MessageName() string {
	return "clearingcore.clearinghouse.v1.MsgExecuteBackstopLiquidation"
}

func (msg *MsgExecuteBackstopLiquidation) ValidateBasic() error {
	if msg.Sender == "" {
		return ErrInvalidBid.Wrap("empty sender")
	}
	return nil
}

func (msg *MsgExecuteBackstopLiquidation) GetSigners() []sdk.AccAddress {
	sender, _ := sdk.AccAddressFromBech32(msg.Sender)
	return []sdk.AccAddress{sender}
}

// Proto interface implementations for MsgCloseAllUnfilledOrders
func (msg *MsgCloseAllUnfilledOrders) Reset()         { *msg = MsgCloseAllUnfilledOrders{} }
func (msg *MsgCloseAllUnfilledOrders) String() string { return msg.Sender }
func (msg *MsgCloseAllUnfilledOrders) ProtoMessage()  {}

func (msg *MsgCloseAllUnfilledOrders) XXX_MessageName() string {
	return "clearingcore.clearinghouse.v1.MsgCloseAllUnfilledOrders"
}

func (msg *MsgCloseAllUnfilledOrders) ValidateBasic() error {
	if msg.Sender == "" {
		return ErrInvalidBid.Wrap("empty sender")
	}
	return nil
}

func (msg *MsgCloseAllUnfilledOrders) GetSigners() []sdk.AccAddress {
	sender, _ := sdk.AccAddressFromBech32(msg.Sender)
	return []sdk.AccAddress{sender}
}

// Proto interface implementations for MsgTriggerAutoExchange
func (msg *MsgTriggerAutoExchange) Reset()         { *msg = MsgTriggerAutoExchange{} }
func (msg *MsgTriggerAutoExchange) String() string { return msg.Sender }
func (msg *MsgTriggerAutoExchange) ProtoMessage()  {}

func (msg *MsgTriggerAutoExchange) XXX_MessageName() string {
	return "clearingcore.clearinghouse.v1.MsgTriggerAutoExchange"
}

func (msg *MsgTriggerAutoExchange) ValidateBasic() error {
	if msg.Sender == "" {
		return ErrInvalidBid.Wrap("empty sender")
	}
	return nil
}

func (msg *MsgTriggerAutoExchange) GetSigners() []sdk.AccAddress {
	sender, _ := sdk.AccAddressFromBech32(msg.Sender)
	return []sdk.AccAddress{sender}
}
