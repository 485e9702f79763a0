package types

import (
	"context"

	cdctypes "github.com/cosmos/cosmos-sdk/codec/types"
	sdk "github.com/cosmos/cosmos-sdk/types"
)

// RegisterInterfaces registers the module's interface types
func RegisterInterfaces(registry cdctypes.InterfaceRegistry) {
	registry.RegisterImplementations((*sdk.Msg)(nil),
		&MsgDeposit{},
		&MsgRequestWithdrawal{},
		&MsgClaimWithdrawal{},
	)
}

// Message types for the backstop module
const (
	TypeMsgDeposit           = "backstop_deposit"
	TypeMsgRequestWithdrawal = "backstop_request_withdrawal"
	TypeMsgClaimWithdrawal   = "backstop_claim_withdrawal"
)

// MsgServer defines the backstop module's message service
type MsgServer interface {
	Deposit(context.Context, *MsgDeposit) (*MsgDepositResponse, error)
	RequestWithdrawal(context.Context, *MsgRequestWithdrawal) (*MsgRequestWithdrawalResponse, error)
	ClaimWithdrawal(context.Context, *MsgClaimWithdrawal) (*MsgClaimWithdrawalResponse, error)
}

// RegisterMsgServer registers the MsgServer to the configurator's MsgServer
func RegisterMsgServer(s interface{}, srv MsgServer) {
	// This is a placeholder - in production, this would use gRPC registration
	// For now, the messages are handled through the module's handler
}

// MsgDeposit moves collateral from the depositor's account into the
// backstop LP account, minting pool shares at NAV.
type MsgDeposit struct {
	Sender           string `json:"sender"`
	CollateralPoolID uint64 `json:"collateral_pool_id"`
	DepositorAccount uint64 `json:"depositor_account"`
	Amount           string `json:"amount"`
}

// MsgDepositResponse reports the shares minted.
type MsgDepositResponse struct {
	Shares string `json:"shares"`
	NAV    string `json:"nav"`
}

// MsgRequestWithdrawal starts a delayed redemption of pool shares.
type MsgRequestWithdrawal struct {
	Sender            string `json:"sender"`
	CollateralPoolID  uint64 `json:"collateral_pool_id"`
	WithdrawerAccount uint64 `json:"withdrawer_account"`
	Shares            string `json:"shares"`
}

// MsgRequestWithdrawalResponse reports the created request.
type MsgRequestWithdrawalResponse struct {
	WithdrawalID string `json:"withdrawal_id"`
	AvailableAt  string `json:"available_at"`
}

// MsgClaimWithdrawal redeems a matured withdrawal request.
type MsgClaimWithdrawal struct {
	Sender       string `json:"sender"`
	WithdrawalID string `json:"withdrawal_id"`
}

// MsgClaimWithdrawalResponse reports the amount received.
type MsgClaimWithdrawalResponse struct {
	Amount string `json:"amount"`
}

// Proto interface implementations for MsgDeposit
func (msg *MsgDeposit) Reset()         { *msg = MsgDeposit{} }
func (msg *MsgDeposit) String() string { return msg.Sender }
func (msg *MsgDeposit) ProtoMessage()  {}

func (msg *MsgDeposit) XXX_MessageName() string {
	return "clearingcore.backstop.v1.MsgDeposit"
}

func (msg *MsgDeposit) ValidateBasic() error {
	if msg.Sender == "" {
		return ErrUnauthorized.Wrap("empty sender")
	}
	return nil
}

func (msg *MsgDeposit) GetSigners() []sdk.AccAddress {
	sender, _ := sdk.AccAddressFromBech32(msg.Sender)
	return []sdk.AccAddress{sender}
}

// Proto interface implementations for MsgRequestWithdrawal
func (msg *MsgRequestWithdrawal) Reset()         { *msg = MsgRequestWithdrawal{} }
func (msg *MsgRequestWithdrawal) String() string { return msg.Sender }
func (msg *MsgRequestWithdrawal) ProtoMessage()  {}

func (msg *MsgRequestWithdrawal) XXX_MessageName() string {
	return "clearingcore.backstop.v1.MsgRequestWithdrawal"
}

func (msg *MsgRequestWithdrawal) ValidateBasic() error {
	if msg.Sender == "" {
		return ErrUnauthorized.Wrap("empty sender")
	}
	return nil
}

func (msg *MsgRequestWithdrawal) GetSigners() []sdk.AccAddress {
	sender, _ := sdk.AccAddressFromBech32(msg.Sender)
	return []sdk.AccAddress{sender}
}

// Proto interface implementations for MsgClaimWithdrawal
func (msg *MsgClaimWithdrawal) Reset()         { *msg = MsgClaimWithdrawal{} }
func (msg *MsgClaimWithdrawal) String() string { return msg.Sender }
func (msg *MsgClaimWithdrawal) ProtoMessage()  {}

func (msg *MsgClaimWithdrawal) XXX_MessageName() string {
	return "clearingcore.backstop.v1.MsgClaimWithdrawal"
}

func (msg *MsgClaimWithdrawal) ValidateBasic() error {
	if msg.Sender == "" {
		return ErrUnauthorized.Wrap("empty sender")
	}
	if msg.WithdrawalID == "" {
		return ErrWithdrawalNotFound.Wrap("empty withdrawal id")
	}
	return nil
}

func (msg *MsgClaimWithdrawal) GetSigners() []sdk.AccAddress {
	sender, _ := sdk.AccAddressFromBech32(msg.Sender)
	return []sdk.AccAddress{sender}
}
