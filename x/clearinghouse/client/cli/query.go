package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cosmos/cosmos-sdk/client"
	"github.com/cosmos/cosmos-sdk/client/flags"
)

// GetQueryCmd returns the cli query commands for the clearinghouse module
func GetQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:                        "clearinghouse",
		Short:                      "Querying commands for the clearinghouse module",
		DisableFlagParsing:         true,
		SuggestionsMinimumDistance: 2,
		RunE:                       client.ValidateCmd,
	}

	cmd.AddCommand(
		CmdQueryBidQueue(),
		CmdQueryInsuranceFund(),
		CmdQueryAutoExchangeEligibility(),
	)

	return cmd
}

// CmdQueryBidQueue returns the command to query a liquidation bid queue
func CmdQueryBidQueue() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bid-queue [account-id] [quote-token]",
		Short: "Query an account's current liquidation bid queue",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("Bid queue query requires a running node connection")
			fmt.Printf("Use REST API: GET /clearingcore/clearinghouse/v1/bid-queue/%s/%s\n", args[0], args[1])
			return nil
		},
	}

	flags.AddQueryFlagsToCmd(cmd)
	return cmd
}

// CmdQueryInsuranceFund returns the command to query an insurance fund
func CmdQueryInsuranceFund() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "insurance-fund [pool-id] [quote-token]",
		Short: "Query a pool's insurance fund",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("Insurance fund query requires a running node connection")
			fmt.Printf("Use REST API: GET /clearingcore/clearinghouse/v1/insurance-fund/%s/%s\n", args[0], args[1])
			return nil
		},
	}

	flags.AddQueryFlagsToCmd(cmd)
	return cmd
}

// CmdQueryAutoExchangeEligibility returns the command to query eligibility
func CmdQueryAutoExchangeEligibility() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auto-exchange-eligible [account-id] [quote-token]",
		Short: "Query whether an account is eligible for auto-exchange",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("Eligibility query requires a running node connection")
			fmt.Printf("Use REST API: GET /clearingcore/clearinghouse/v1/auto-exchange-eligible/%s/%s\n", args[0], args[1])
			return nil
		},
	}

	flags.AddQueryFlagsToCmd(cmd)
	return cmd
}
