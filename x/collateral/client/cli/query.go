package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cosmos/cosmos-sdk/client"
	"github.com/cosmos/cosmos-sdk/client/flags"
)

// GetQueryCmd returns the cli query commands for the collateral module
func GetQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:                        "collateral",
		Short:                      "Querying commands for the collateral module",
		DisableFlagParsing:         true,
		SuggestionsMinimumDistance: 2,
		RunE:                       client.ValidateCmd,
	}

	cmd.AddCommand(
		CmdQueryAccount(),
		CmdQueryBalance(),
		CmdQueryPool(),
	)

	return cmd
}

// CmdQueryAccount returns the command to query a collateral account
func CmdQueryAccount() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account [account-id]",
		Short: "Query a collateral account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("Account query requires a running node connection")
			fmt.Printf("Use REST API: GET /clearingcore/collateral/v1/account/%s\n", args[0])
			return nil
		},
	}

	flags.AddQueryFlagsToCmd(cmd)
	return cmd
}

// CmdQueryBalance returns the command to query a collateral balance
func CmdQueryBalance() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "balance [account-id] [token]",
		Short: "Query an account's collateral balance in a token",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("Balance query requires a running node connection")
			fmt.Printf("Use REST API: GET /clearingcore/collateral/v1/balance/%s/%s\n", args[0], args[1])
			return nil
		},
	}

	flags.AddQueryFlagsToCmd(cmd)
	return cmd
}

// CmdQueryPool returns the command to query a collateral pool
func CmdQueryPool() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pool [pool-id]",
		Short: "Query a collateral pool's configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("Pool query requires a running node connection")
			fmt.Printf("Use REST API: GET /clearingcore/collateral/v1/pool/%s\n", args[0])
			return nil
		},
	}

	flags.AddQueryFlagsToCmd(cmd)
	return cmd
}
