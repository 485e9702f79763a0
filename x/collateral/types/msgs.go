package types

import (
	"context"

	cdctypes "github.com/cosmos/cosmos-sdk/codec/types"
	sdk "github.com/cosmos/cosmos-sdk/types"
)

// RegisterInterfaces registers the module's interface types
func RegisterInterfaces(registry cdctypes.InterfaceRegistry) {
	registry.RegisterImplementations((*sdk.Msg)(nil),
		&MsgCreateAccount{},
		&MsgDeposit{},
		&MsgWithdraw{},
		&MsgGrantPermission{},
		&MsgRevokePermission{},
	)
}

// Message types for the collateral module
const (
	TypeMsgCreateAccount    = "create_account"
	TypeMsgDeposit          = "deposit"
	TypeMsgWithdraw         = "withdraw"
	TypeMsgGrantPermission  = "grant_permission"
	TypeMsgRevokePermission = "revoke_permission"
)

// MsgServer defines the collateral module's message service
type MsgServer interface {
	CreateAccount(context.Context, *MsgCreateAccount) (*MsgCreateAccountResponse, error)
	Deposit(context.Context, *MsgDeposit) (*MsgDepositResponse, error)
	Withdraw(context.Context, *MsgWithdraw) (*MsgWithdrawResponse, error)
	GrantPermission(context.Context, *MsgGrantPermission) (*MsgGrantPermissionResponse, error)
	RevokePermission(context.Context, *MsgRevokePermission) (*MsgRevokePermissionResponse, error)
}

// RegisterMsgServer registers the MsgServer to the configurator's MsgServer
func RegisterMsgServer(s interface{}, srv MsgServer) {
	// This is a placeholder - in production, this would use gRPC registration
	// For now, the messages are handled through the module's handler
}

// MsgCreateAccountResponse is the response for MsgCreateAccount.
type MsgCreateAccountResponse struct {
	AccountID uint64 `json:"account_id"`
}

// MsgDepositResponse is the response for MsgDeposit.
type MsgDepositResponse struct {
	NewBalance string `json:"new_balance"`
}

// MsgWithdrawResponse is the response for MsgWithdraw.
type MsgWithdrawResponse struct {
	NewBalance string `json:"new_balance"`
}

// MsgGrantPermissionResponse is the response for MsgGrantPermission.
type MsgGrantPermissionResponse struct{}

// MsgRevokePermissionResponse is the response for MsgRevokePermission.
type MsgRevokePermissionResponse struct{}

// MsgCreateAccount creates a margin account in a collateral pool.
type MsgCreateAccount struct {
	Owner     string `json:"owner"`
	AccountID uint64 `json:"account_id"`
	PoolID    uint64 `json:"pool_id"`
	Mode      int    `json:"mode"`
}

// MsgDeposit deposits raw assets into an account's collateral balance.
type MsgDeposit struct {
	Sender    string `json:"sender"`
	AccountID uint64 `json:"account_id"`
	Token     string `json:"token"`
	Amount    string `json:"amount"`
}

// MsgWithdraw withdraws raw assets from an account's collateral balance.
type MsgWithdraw struct {
	Sender    string `json:"sender"`
	AccountID uint64 `json:"account_id"`
	Token     string `json:"token"`
	Amount    string `json:"amount"`
}

// MsgGrantPermission grants a named account permission to an address.
type MsgGrantPermission struct {
	Sender     string `json:"sender"`
	AccountID  uint64 `json:"account_id"`
	Permission string `json:"permission"`
	Grantee    string `json:"grantee"`
}

// MsgRevokePermission revokes a named account permission from an address.
type MsgRevokePermission struct {
	Sender     string `json:"sender"`
	AccountID  uint64 `json:"account_id"`
	Permission string `json:"permission"`
	Grantee    string `json:"grantee"`
}

// Proto interface implementations for MsgCreateAccount
func (msg *MsgCreateAccount) Reset()         { *msg = MsgCreateAccount{} }
func (msg *MsgCreateAccount) String() string { return msg.Owner }
func (msg *MsgCreateAccount) ProtoMessage()  {}

func (msg *MsgCreateAccount) XXX_MessageName() string {
	return "clearingcore.collateral.v1.MsgCreateAccount"
}

func (msg *MsgCreateAccount) ValidateBasic() error {
	if msg.Owner == "" {
		return ErrUnauthorized
	}
	return nil
}

func (msg *MsgCreateAccount) GetSigners() []sdk.AccAddress {
	owner, _ := sdk.AccAddressFromBech32(msg.Owner)
	return []sdk.AccAddress{owner}
}

// Proto interface implementations for MsgDeposit
func (msg *MsgDeposit) Reset()         { *msg = MsgDeposit{} }
func (msg *MsgDeposit) String() string { return msg.Sender }
func (msg *MsgDeposit) ProtoMessage()  {}

func (msg *MsgDeposit) XXX_MessageName() string {
	return "clearingcore.collateral.v1.MsgDeposit"
}

func (msg *MsgDeposit) ValidateBasic() error {
	if msg.Sender == "" {
		return ErrUnauthorized
	}
	if msg.Token == "" {
		return ErrTokenNotConfigured
	}
	return nil
}

func (msg *MsgDeposit) GetSigners() []sdk.AccAddress {
	sender, _ := sdk.AccAddressFromBech32(msg.Sender)
	return []sdk.AccAddress{sender}
}

// Proto interface implementations for MsgWithdraw
func (msg *MsgWithdraw) Reset()         { *msg = MsgWithdraw{} }
func (msg *MsgWithdraw) String() string { return msg.Sender }
func (msg *MsgWithdraw) ProtoMessage()  {}

func (msg *MsgWithdraw) XXX_MessageName() string {
	return "clearingcore.collateral.v1.MsgWithdraw"
}

func (msg *MsgWithdraw) ValidateBasic() error {
	if msg.Sender == "" {
		return ErrUnauthorized
	}
	if msg.Token == "" {
		return ErrTokenNotConfigured
	}
	return nil
}

func (msg *MsgWithdraw) GetSigners() []sdk.AccAddress {
	sender, _ := sdk.AccAddressFromBech32(msg.Sender)
	return []sdk.AccAddress{sender}
}

// Proto interface implementations for MsgGrantPermission
func (msg *MsgGrantPermission) Reset()         { *msg = MsgGrantPermission{} }
func (msg *MsgGrantPermission) String() string { return msg.Sender }
func (msg *MsgGrantPermission) ProtoMessage()  {}

func (msg *MsgGrantPermission) XXX_MessageName() string {
	return "clearingcore.collateral.v1.MsgGrantPermission"
}

func (msg *MsgGrantPermission) ValidateBasic() error {
	if msg.Sender == "" || msg.Grantee == "" {
		return ErrUnauthorized
	}
	return nil
}

func (msg *MsgGrantPermission) GetSigners() []sdk.AccAddress {
	sender, _ := sdk.AccAddressFromBech32(msg.Sender)
	return []sdk.AccAddress{sender}
}

// Proto interface implementations for MsgRevokePermission
func (msg *MsgRevokePermission) Reset()         { *msg = MsgRevokePermission{} }
func (msg *MsgRevokePermission) String() string { return msg.Sender }
func (msg *MsgRevokePermission) ProtoMessage()  {}

func (msg *MsgRevokePermission) XXX_MessageName() string {
	return "clearingcore.collateral.v1.MsgRevokePermission"
}

func (msg *MsgRevokePermission) ValidateBasic() error {
	if msg.Sender == "" || msg.Grantee == "" {
		return ErrUnauthorized
	}
	return nil
}

func (msg *MsgRevokePermission) GetSigners() []sdk.AccAddress {
	sender, _ := sdk.AccAddressFromBech32(msg.Sender)
	return []sdk.AccAddress{sender}
}
