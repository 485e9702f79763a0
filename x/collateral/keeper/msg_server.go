package keeper

import (
	"context"
	"fmt"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/clearing-core/x/collateral/types"
)

var _ types.MsgServer = (*msgServer)(nil)

type msgServer struct {
	Keeper *Keeper
}

// NewMsgServerImpl returns an implementation of the MsgServer interface
func NewMsgServerImpl(keeper *Keeper) types.MsgServer {
	return &msgServer{Keeper: keeper}
}

// CreateAccount handles the MsgCreateAccount message
func (m *msgServer) CreateAccount(ctx context.Context, msg *types.MsgCreateAccount) (*types.MsgCreateAccountResponse, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)

	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}

	account, err := m.Keeper.CreateAccount(sdkCtx, msg.AccountID, msg.Owner, msg.PoolID, types.AccountMode(msg.Mode))
	if err != nil {
		return nil, err
	}
	return &types.MsgCreateAccountResponse{AccountID: account.ID}, nil
}

// Deposit handles the MsgDeposit message
func (m *msgServer) Deposit(ctx context.Context, msg *types.MsgDeposit) (*types.MsgDepositResponse, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)

	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}
	amount, err := math.LegacyNewDecFromStr(msg.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}

	if err := m.Keeper.Deposit(sdkCtx, msg.AccountID, msg.Token, amount); err != nil {
		return nil, err
	}

	return &types.MsgDepositResponse{
		NewBalance: m.Keeper.GetCollateralBalance(sdkCtx, msg.AccountID, msg.Token).String(),
	}, nil
}

// Withdraw handles the MsgWithdraw message. The withdrawal is bounded by
// the margin module's withdrawable balance so it can never breach the
// bubble's initial margin.
func (m *msgServer) Withdraw(ctx context.Context, msg *types.MsgWithdraw) (*types.MsgWithdrawResponse, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)

	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}
	amount, err := math.LegacyNewDecFromStr(msg.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}

	account := m.Keeper.GetAccount(sdkCtx, msg.AccountID)
	if account == nil {
		return nil, types.ErrAccountNotFound.Wrapf("account %d", msg.AccountID)
	}
	if !account.HasPermission(types.PermissionAdmin, msg.Sender) {
		return nil, types.ErrUnauthorized.Wrapf("account %d: %s", msg.AccountID, msg.Sender)
	}

	if m.Keeper.marginKeeper != nil {
		withdrawable, err := m.Keeper.marginKeeper.GetWithdrawableCollateralBalance(sdkCtx, msg.AccountID, msg.Token)
		if err != nil {
			return nil, err
		}
		if amount.GT(withdrawable) {
			return nil, types.ErrInsufficientCollateral.Wrapf(
				"account %d token %s: withdrawable %s, requested %s",
				msg.AccountID, msg.Token, withdrawable.String(), amount.String())
		}
	}

	if err := m.Keeper.Withdraw(sdkCtx, msg.AccountID, msg.Token, amount); err != nil {
		return nil, err
	}

	return &types.MsgWithdrawResponse{
		NewBalance: m.Keeper.GetCollateralBalance(sdkCtx, msg.AccountID, msg.Token).String(),
	}, nil
}

// GrantPermission handles the MsgGrantPermission message
func (m *msgServer) GrantPermission(ctx context.Context, msg *types.MsgGrantPermission) (*types.MsgGrantPermissionResponse, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)

	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}
	if err := m.Keeper.GrantAccountPermission(sdkCtx, msg.AccountID, msg.Sender, msg.Permission, msg.Grantee); err != nil {
		return nil, err
	}
	return &types.MsgGrantPermissionResponse{}, nil
}

// RevokePermission handles the MsgRevokePermission message
func (m *msgServer) RevokePermission(ctx context.Context, msg *types.MsgRevokePermission) (*types.MsgRevokePermissionResponse, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)

	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}
	if err := m.Keeper.RevokeAccountPermission(sdkCtx, msg.AccountID, msg.Sender, msg.Permission, msg.Grantee); err != nil {
		return nil, err
	}
	return &types.MsgRevokePermissionResponse{}, nil
}
