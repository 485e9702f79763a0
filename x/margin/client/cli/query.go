package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cosmos/cosmos-sdk/client"
	"github.com/cosmos/cosmos-sdk/client/flags"
)

// GetQueryCmd returns the cli query commands for the margin module
func GetQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:                        "margin",
		Short:                      "Querying commands for the margin module",
		DisableFlagParsing:         true,
		SuggestionsMinimumDistance: 2,
		RunE:                       client.ValidateCmd,
	}

	cmd.AddCommand(
		CmdQueryMarginInfo(),
		CmdQueryRequirementDeltas(),
		CmdQueryWithdrawable(),
	)

	return cmd
}

// CmdQueryMarginInfo returns the command to query bubble margin info
func CmdQueryMarginInfo() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info [account-id] [token]",
		Short: "Query an account's margin info aggregated over the token's bubble",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("Margin info query requires a running node connection")
			fmt.Printf("Use REST API: GET /clearingcore/margin/v1/info/%s/%s\n", args[0], args[1])
			return nil
		},
	}

	flags.AddQueryFlagsToCmd(cmd)
	return cmd
}

// CmdQueryRequirementDeltas returns the command to query requirement deltas
func CmdQueryRequirementDeltas() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deltas [account-id] [token]",
		Short: "Query an account's five margin requirement deltas",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("Deltas query requires a running node connection")
			fmt.Printf("Use REST API: GET /clearingcore/margin/v1/deltas/%s/%s\n", args[0], args[1])
			return nil
		},
	}

	flags.AddQueryFlagsToCmd(cmd)
	return cmd
}

// CmdQueryWithdrawable returns the command to query the withdrawable balance
func CmdQueryWithdrawable() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "withdrawable [account-id] [token]",
		Short: "Query how much collateral an account can withdraw in a token",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("Withdrawable query requires a running node connection")
			fmt.Printf("Use REST API: GET /clearingcore/margin/v1/withdrawable/%s/%s\n", args[0], args[1])
			return nil
		},
	}

	flags.AddQueryFlagsToCmd(cmd)
	return cmd
}
