package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cosmos/cosmos-sdk/client"
	"github.com/cosmos/cosmos-sdk/client/flags"
	"github.com/cosmos/cosmos-sdk/client/tx"

	"github.com/openalpha/clearing-core/x/collateral/types"
)

// GetTxCmd returns the transaction commands for the collateral module
func GetTxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:                        "collateral",
		Short:                      "Collateral module transaction commands",
		DisableFlagParsing:         true,
		SuggestionsMinimumDistance: 2,
		RunE:                       client.ValidateCmd,
	}

	cmd.AddCommand(
		CmdCreateAccount(),
		CmdDeposit(),
		CmdWithdraw(),
		CmdGrantPermission(),
		CmdRevokePermission(),
	)

	return cmd
}

// CmdCreateAccount returns the command to create a collateral account
func CmdCreateAccount() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create-account [account-id] [pool-id] [mode]",
		Short: "Create a collateral account in a pool (mode: single or multi)",
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
			poolID, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid pool id: %v", err)
			}

			var mode types.AccountMode
			switch args[2] {
			case "single":
				mode = types.AccountModeSingleToken
			case "multi":
				mode = types.AccountModeMultiToken
			default:
				return fmt.Errorf("invalid mode %q, want single or multi", args[2])
			}

			msg := &types.MsgCreateAccount{
				Owner:     clientCtx.GetFromAddress().String(),
				AccountID: accountID,
				PoolID:    poolID,
				Mode:      int(mode),
			}

			return tx.GenerateOrBroadcastTxCLI(clientCtx, cmd.Flags(), msg)
		},
	}

	flags.AddTxFlagsToCmd(cmd)
	return cmd
}

// CmdDeposit returns the command to deposit collateral
func CmdDeposit() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deposit [account-id] [token] [amount]",
		Short: "Deposit collateral into an account",
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

			msg := &types.MsgDeposit{
				Sender:    clientCtx.GetFromAddress().String(),
				AccountID: accountID,
				Token:     args[1],
				Amount:    args[2],
			}

			return tx.GenerateOrBroadcastTxCLI(clientCtx, cmd.Flags(), msg)
		},
	}

	flags.AddTxFlagsToCmd(cmd)
	return cmd
}

// CmdWithdraw returns the command to withdraw collateral
func CmdWithdraw() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "withdraw [account-id] [token] [amount]",
		Short: "Withdraw collateral from an account",
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

			msg := &types.MsgWithdraw{
				Sender:    clientCtx.GetFromAddress().String(),
				AccountID: accountID,
				Token:     args[1],
				Amount:    args[2],
			}

			return tx.GenerateOrBroadcastTxCLI(clientCtx, cmd.Flags(), msg)
		},
	}

	flags.AddTxFlagsToCmd(cmd)
	return cmd
}

// CmdGrantPermission returns the command to grant an account permission
func CmdGrantPermission() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grant-permission [account-id] [permission] [grantee]",
		Short: "Grant a permission on an account to an address",
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

			msg := &types.MsgGrantPermission{
				Sender:     clientCtx.GetFromAddress().String(),
				AccountID:  accountID,
				Permission: args[1],
				Grantee:    args[2],
			}

			return tx.GenerateOrBroadcastTxCLI(clientCtx, cmd.Flags(), msg)
		},
	}

	flags.AddTxFlagsToCmd(cmd)
	return cmd
}

// CmdRevokePermission returns the command to revoke an account permission
func CmdRevokePermission() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "revoke-permission [account-id] [permission] [grantee]",
		Short: "Revoke a permission on an account from an address",
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

			msg := &types.MsgRevokePermission{
				Sender:     clientCtx.GetFromAddress().String(),
				AccountID:  accountID,
				Permission: args[1],
				Grantee:    args[2],
			}

			return tx.GenerateOrBroadcastTxCLI(clientCtx, cmd.Flags(), msg)
		},
	}

	flags.AddTxFlagsToCmd(cmd)
	return cmd
}
