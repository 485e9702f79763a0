package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cosmos/cosmos-sdk/client"
	"github.com/cosmos/cosmos-sdk/client/flags"
	"github.com/cosmos/cosmos-sdk/client/tx"

	"github.com/openalpha/clearing-core/x/backstop/types"
)

// GetTxCmd returns the transaction commands for the backstop module
func GetTxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:                        "backstop",
		Short:                      "Backstop module transaction commands",
		DisableFlagParsing:         true,
		SuggestionsMinimumDistance: 2,
		RunE:                       client.ValidateCmd,
	}

	cmd.AddCommand(
		CmdDeposit(),
		CmdRequestWithdrawal(),
		CmdClaimWithdrawal(),
	)

	return cmd
}

// CmdDeposit returns the command to deposit into a backstop pool
func CmdDeposit() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deposit [collateral-pool-id] [depositor-account] [amount]",
		Short: "Deposit collateral into a backstop LP pool",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientCtx, err := client.GetClientTxContext(cmd)
			if err != nil {
				return err
			}

			poolID, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid pool id: %v", err)
			}
			depositorAccount, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid depositor account: %v", err)
			}

			msg := &types.MsgDeposit{
				Sender:           clientCtx.GetFromAddress().String(),
				CollateralPoolID: poolID,
				DepositorAccount: depositorAccount,
				Amount:           args[2],
			}

			return tx.GenerateOrBroadcastTxCLI(clientCtx, cmd.Flags(), msg)
		},
	}

	flags.AddTxFlagsToCmd(cmd)
	return cmd
}

// CmdRequestWithdrawal returns the command to request a withdrawal
func CmdRequestWithdrawal() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "request-withdrawal [collateral-pool-id] [withdrawer-account] [shares]",
		Short: "Request a delayed redemption of backstop pool shares",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientCtx, err := client.GetClientTxContext(cmd)
			if err != nil {
				return err
			}

			poolID, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid pool id: %v", err)
			}
			withdrawerAccount, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid withdrawer account: %v", err)
			}

			msg := &types.MsgRequestWithdrawal{
				Sender:            clientCtx.GetFromAddress().String(),
				CollateralPoolID:  poolID,
				WithdrawerAccount: withdrawerAccount,
				Shares:            args[2],
			}

			return tx.GenerateOrBroadcastTxCLI(clientCtx, cmd.Flags(), msg)
		},
	}

	flags.AddTxFlagsToCmd(cmd)
	return cmd
}

// CmdClaimWithdrawal returns the command to claim a matured withdrawal
func CmdClaimWithdrawal() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "claim-withdrawal [withdrawal-id]",
		Short: "Claim a matured backstop pool withdrawal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientCtx, err := client.GetClientTxContext(cmd)
			if err != nil {
				return err
			}

			msg := &types.MsgClaimWithdrawal{
				Sender:       clientCtx.GetFromAddress().String(),
				WithdrawalID: args[0],
			}

			return tx.GenerateOrBroadcastTxCLI(clientCtx, cmd.Flags(), msg)
		},
	}

	flags.AddTxFlagsToCmd(cmd)
	return cmd
}
