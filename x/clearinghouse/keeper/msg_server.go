package keeper

import (
	"context"
	"fmt"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/clearing-core/x/clearinghouse/types"
)

var _ types.MsgServer = (*msgServer)(nil)

type msgServer struct {
	Keeper *Keeper
}

// NewMsgServerImpl returns an implementation of the MsgServer interface
func NewMsgServerImpl(keeper *Keeper) types.MsgServer {
	return &msgServer{Keeper: keeper}
}

func bidOrdersFromInputs(inputs []types.BidOrderInput) []types.BidOrder {
	orders := make([]types.BidOrder, 0, len(inputs))
	for _, in := range inputs {
		orders = append(orders, types.BidOrder{MarketID: in.MarketID, Inputs: in.Inputs})
	}
	return orders
}

// SubmitLiquidationBid handles the MsgSubmitLiquidationBid message
func (m *msgServer) SubmitLiquidationBid(ctx context.Context, msg *types.MsgSubmitLiquidationBid) (*types.MsgSubmitLiquidationBidResponse, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)

	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}
	rewardParameter, err := math.LegacyNewDecFromStr(msg.RewardParameter)
	if err != nil {
		return nil, fmt.Errorf("invalid reward parameter: %w", err)
	}
	if rewardParameter.IsNegative() || rewardParameter.GT(math.LegacyOneDec()) {
		return nil, types.ErrInvalidBid.Wrapf("reward parameter %s outside [0, 1]", rewardParameter.String())
	}

	bid, queueID, err := m.Keeper.SubmitLiquidationBid(
		sdkCtx,
		msg.Sender,
		msg.AccountID,
		msg.LiquidatorAccount,
		msg.QuoteToken,
		bidOrdersFromInputs(msg.Orders),
		msg.HookAddress,
		rewardParameter,
	)
	if err != nil {
		return nil, err
	}
	return &types.MsgSubmitLiquidationBidResponse{BidID: bid.ID, QueueID: queueID}, nil
}

// ExecuteTopRankedLiquidationBid handles the MsgExecuteTopRankedLiquidationBid
// message. A bid whose orders fail is still dequeued; the response reports
// Executed false in that case.
func (m *msgServer) ExecuteTopRankedLiquidationBid(ctx context.Context, msg *types.MsgExecuteTopRankedLiquidationBid) (*types.MsgExecuteTopRankedLiquidationBidResponse, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)

	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}
	result, err := m.Keeper.ExecuteTopRankedLiquidationBid(sdkCtx, msg.Sender, msg.AccountID, msg.QuoteToken, msg.KeeperAccount)
	if err != nil {
		return nil, err
	}
	resp := &types.MsgExecuteTopRankedLiquidationBidResponse{
		BidID:    result.BidID,
		Executed: result.Executed,
	}
	if result.Executed {
		resp.Penalty = result.Penalty.String()
	}
	return resp, nil
}

// ExecuteDutchLiquidation handles the MsgExecuteDutchLiquidation message
func (m *msgServer) ExecuteDutchLiquidation(ctx context.Context, msg *types.MsgExecuteDutchLiquidation) (*types.MsgExecuteDutchLiquidationResponse, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)

	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}
	result, err := m.Keeper.ExecuteDutchLiquidation(
		sdkCtx, msg.Sender, msg.AccountID, msg.LiquidatorAccount, msg.QuoteToken, msg.MarketID, msg.Inputs)
	if err != nil {
		return nil, err
	}
	return &types.MsgExecuteDutchLiquidationResponse{
		Penalty:          result.Penalty.String(),
		PenaltyParameter: result.PenaltyParameter.String(),
	}, nil
}

// ExecuteBackstopLiquidation handles the MsgExecuteBackstopLiquidation message
func (m *msgServer) ExecuteBackstopLiquidation(ctx context.Context, msg *types.MsgExecuteBackstopLiquidation) (*types.MsgExecuteBackstopLiquidationResponse, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)

	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}
	solvent, err := m.Keeper.ExecuteBackstopLiquidation(
		sdkCtx, msg.Sender, msg.AccountID, msg.QuoteToken, bidOrdersFromInputs(msg.Orders))
	if err != nil {
		return nil, err
	}
	return &types.MsgExecuteBackstopLiquidationResponse{Solvent: solvent}, nil
}

// CloseAllUnfilledOrders handles the MsgCloseAllUnfilledOrders message
func (m *msgServer) CloseAllUnfilledOrders(ctx context.Context, msg *types.MsgCloseAllUnfilledOrders) (*types.MsgCloseAllUnfilledOrdersResponse, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)

	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}
	penalty, err := m.Keeper.CloseAllUnfilledOrders(sdkCtx, msg.Sender, msg.AccountID, msg.LiquidatorAccount)
	if err != nil {
		return nil, err
	}
	return &types.MsgCloseAllUnfilledOrdersResponse{Penalty: penalty.String()}, nil
}

// TriggerAutoExchange handles the MsgTriggerAutoExchange message
func (m *msgServer) TriggerAutoExchange(ctx context.Context, msg *types.MsgTriggerAutoExchange) (*types.MsgTriggerAutoExchangeResponse, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)

	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}
	amount, err := math.LegacyNewDecFromStr(msg.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}
	coveringAmount, autoExchangedAmount, err := m.Keeper.TriggerAutoExchange(
		sdkCtx, msg.Sender, msg.AccountID, msg.ExchangerAccount, msg.CoveringToken, msg.AutoExchangedToken, amount)
	if err != nil {
		return nil, err
	}
	return &types.MsgTriggerAutoExchangeResponse{
		CoveringAmount:      coveringAmount.String(),
		AutoExchangedAmount: autoExchangedAmount.String(),
	}, nil
}
