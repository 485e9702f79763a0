package cli

import (
	"encoding/base64"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cosmos/cosmos-sdk/client"
	"github.com/cosmos/cosmos-sdk/client/flags"
	"github.com/cosmos/cosmos-sdk/client/tx"

	"github.com/openalpha/clearing-core/x/clearinghouse/types"
)

// GetTxCmd returns the transaction commands for the clearinghouse module
func GetTxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:                        "clearinghouse",
		Short:                      "Clearinghouse module transaction commands",
		DisableFlagParsing:         true,
		SuggestionsMinimumDistance: 2,
		RunE:                       client.ValidateCmd,
	}

	cmd.AddCommand(
		CmdSubmitBid(),
		CmdExecuteTopBid(),
		CmdExecuteDutch(),
		CmdExecuteBackstop(),
		CmdCloseUnfilled(),
		CmdTriggerAutoExchange(),
	)

	return cmd
}

// parseOrders decodes market-id:base64-inputs pairs from positional args.
func parseOrders(args []string) ([]types.BidOrderInput, error) {
	orders := make([]types.BidOrderInput, 0, len(args))
	for _, arg := range args {
		var marketID uint64
		var encoded string
		if _, err := fmt.Sscanf(arg, "%d:%s", &marketID, &encoded); err != nil {
			return nil, fmt.Errorf("invalid order %q, want market-id:base64-inputs", arg)
		}
		inputs, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("invalid order inputs in %q: %v", arg, err)
		}
		orders = append(orders, types.BidOrderInput{MarketID: marketID, Inputs: inputs})
	}
	return orders, nil
}

// CmdSubmitBid returns the command to submit a liquidation bid
func CmdSubmitBid() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit-bid [account-id] [liquidator-account] [quote-token] [reward-parameter] [orders...]",
		Short: "Submit a ranked liquidation bid for a distressed account",
		Args:  cobra.MinimumNArgs(5),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientCtx, err := client.GetClientTxContext(cmd)
			if err != nil {
				return err
			}

			accountID, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid account id: %v", err)
			}
			liquidatorAccount, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid liquidator account: %v", err)
			}
			orders, err := parseOrders(args[4:])
			if err != nil {
				return err
			}
			hookAddress, _ := cmd.Flags().GetString("hook-address")

			msg := &types.MsgSubmitLiquidationBid{
				Sender:            clientCtx.GetFromAddress().String(),
				AccountID:         accountID,
				LiquidatorAccount: liquidatorAccount,
				QuoteToken:        args[2],
				Orders:            orders,
				HookAddress:       hookAddress,
				RewardParameter:   args[3],
			}

			return tx.GenerateOrBroadcastTxCLI(clientCtx, cmd.Flags(), msg)
		},
	}

	cmd.Flags().String("hook-address", "", "optional liquidation hook address")
	flags.AddTxFlagsToCmd(cmd)
	return cmd
}

// CmdExecuteTopBid returns the command to execute the top-ranked bid
func CmdExecuteTopBid() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "execute-top-bid [account-id] [quote-token] [keeper-account]",
		Short: "Execute the top-ranked bid in an account's liquidation queue",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientCtx, err := client.GetClientTxContext(cmd)
			if err != nil {
				return err
			}

			accountID, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid account id: %v", err)
			}
			keeperAccount, err := strconv.ParseUint(args[2], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid keeper account: %v", err)
			}

			msg := &types.MsgExecuteTopRankedLiquidationBid{
				Sender:        clientCtx.GetFromAddress().String(),
				AccountID:     accountID,
				QuoteToken:    args[1],
				KeeperAccount: keeperAccount,
			}

			return tx.GenerateOrBroadcastTxCLI(clientCtx, cmd.Flags(), msg)
		},
	}

	flags.AddTxFlagsToCmd(cmd)
	return cmd
}

// CmdExecuteDutch returns the command to execute a dutch liquidation
func CmdExecuteDutch() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "execute-dutch [account-id] [liquidator-account] [quote-token] [market-id] [base64-inputs]",
		Short: "Execute a dutch liquidation order against a distressed account",
		Args:  cobra.ExactArgs(5),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientCtx, err := client.GetClientTxContext(cmd)
			if err != nil {
				return err
			}

			accountID, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid account id: %v", err)
			}
			liquidatorAccount, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid liquidator account: %v", err)
			}
			marketID, err := strconv.ParseUint(args[3], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid market id: %v", err)
			}
			inputs, err := base64.StdEncoding.DecodeString(args[4])
			if err != nil {
				return fmt.Errorf("invalid inputs: %v", err)
			}

			msg := &types.MsgExecuteDutchLiquidation{
				Sender:            clientCtx.GetFromAddress().String(),
				AccountID:         accountID,
				LiquidatorAccount: liquidatorAccount,
				QuoteToken:        args[2],
				MarketID:          marketID,
				Inputs:            inputs,
			}

			return tx.GenerateOrBroadcastTxCLI(clientCtx, cmd.Flags(), msg)
		},
	}

	flags.AddTxFlagsToCmd(cmd)
	return cmd
}

// CmdExecuteBackstop returns the command to run a backstop liquidation
func CmdExecuteBackstop() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "execute-backstop [account-id] [quote-token] [orders...]",
		Short: "Run a backstop liquidation for an account below the ADL requirement",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientCtx, err := client.GetClientTxContext(cmd)
			if err != nil {
				return err
			}

			accountID, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid account id: %v", err)
			}
			orders, err := parseOrders(args[2:])
			if err != nil {
				return err
			}

			msg := &types.MsgExecuteBackstopLiquidation{
				Sender:     clientCtx.GetFromAddress().String(),
				AccountID:  accountID,
				QuoteToken: args[1],
				Orders:     orders,
			}

			return tx.GenerateOrBroadcastTxCLI(clientCtx, cmd.Flags(), msg)
		},
	}

	flags.AddTxFlagsToCmd(cmd)
	return cmd
}

// CmdCloseUnfilled returns the command to close an account's unfilled orders
func CmdCloseUnfilled() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "close-unfilled [account-id] [liquidator-account]",
		Short: "Close all unfilled orders of an account below maintenance margin",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientCtx, err := client.GetClientTxContext(cmd)
			if err != nil {
				return err
			}

			accountID, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid account id: %v", err)
			}
			liquidatorAccount, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid liquidator account: %v", err)
			}

			msg := &types.MsgCloseAllUnfilledOrders{
				Sender:            clientCtx.GetFromAddress().String(),
				AccountID:         accountID,
				LiquidatorAccount: liquidatorAccount,
			}

			return tx.GenerateOrBroadcastTxCLI(clientCtx, cmd.Flags(), msg)
		},
	}

	flags.AddTxFlagsToCmd(cmd)
	return cmd
}

// CmdTriggerAutoExchange returns the command to trigger an auto-exchange
func CmdTriggerAutoExchange() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auto-exchange [account-id] [exchanger-account] [covering-token] [auto-exchanged-token] [amount]",
		Short: "Exchange part of an account's deficit against its other collateral",
		Args:  cobra.ExactArgs(5),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientCtx, err := client.GetClientTxContext(cmd)
			if err != nil {
				return err
			}

			accountID, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid account id: %v", err)
			}
			exchangerAccount, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid exchanger account: %v", err)
			}

			msg := &types.MsgTriggerAutoExchange{
				Sender:             clientCtx.GetFromAddress().String(),
				AccountID:          accountID,
				ExchangerAccount:   exchangerAccount,
				CoveringToken:      args[2],
				AutoExchangedToken: args[3],
				Amount:             args[4],
			}

			return tx.GenerateOrBroadcastTxCLI(clientCtx, cmd.Flags(), msg)
		},
	}

	flags.AddTxFlagsToCmd(cmd)
	return cmd
}
