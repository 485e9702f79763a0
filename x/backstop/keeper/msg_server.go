package keeper

import (
	"context"
	"fmt"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/clearing-core/x/backstop/types"
)

var _ types.MsgServer = (*msgServer)(nil)

type msgServer struct {
	Keeper *Keeper
}

// NewMsgServerImpl returns an implementation of the MsgServer interface
func NewMsgServerImpl(keeper *Keeper) types.MsgServer {
	return &msgServer{Keeper: keeper}
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

	shares, nav, err := m.Keeper.Deposit(sdkCtx, msg.Sender, msg.CollateralPoolID, msg.DepositorAccount, amount)
	if err != nil {
		return nil, err
	}
	return &types.MsgDepositResponse{Shares: shares.String(), NAV: nav.String()}, nil
}

// RequestWithdrawal handles the MsgRequestWithdrawal message
func (m *msgServer) RequestWithdrawal(ctx context.Context, msg *types.MsgRequestWithdrawal) (*types.MsgRequestWithdrawalResponse, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)

	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}
	shares, err := math.LegacyNewDecFromStr(msg.Shares)
	if err != nil {
		return nil, fmt.Errorf("invalid shares: %w", err)
	}

	withdrawal, err := m.Keeper.RequestWithdrawal(sdkCtx, msg.Sender, msg.CollateralPoolID, msg.WithdrawerAccount, shares)
	if err != nil {
		return nil, err
	}
	return &types.MsgRequestWithdrawalResponse{
		WithdrawalID: withdrawal.ID,
		AvailableAt:  withdrawal.AvailableAt.String(),
	}, nil
}

// ClaimWithdrawal handles the MsgClaimWithdrawal message
func (m *msgServer) ClaimWithdrawal(ctx context.Context, msg *types.MsgClaimWithdrawal) (*types.MsgClaimWithdrawalResponse, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)

	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}
	amount, err := m.Keeper.ClaimWithdrawal(sdkCtx, msg.Sender, msg.WithdrawalID)
	if err != nil {
		return nil, err
	}
	return &types.MsgClaimWithdrawalResponse{Amount: amount.String()}, nil
}
