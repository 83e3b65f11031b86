package main

import (
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"venusadapter/services/adapterd/api"
)

func newSandboxCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sandbox",
		Short: "Administer the sandbox world (requires the admin scope)",
	}
	cmd.AddCommand(
		newApproveCmd(o),
		newEnterCmd(o),
		newBorrowCmd(o),
		newMineCmd(o),
	)
	return cmd
}

func newApproveCmd(o *options) *cobra.Command {
	var spender string
	cmd := &cobra.Command{
		Use:   "approve <token|market> <amount|max>",
		Short: "Approve the adapter, or --spender, to pull from the caller",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := o.client()
			if err != nil {
				return err
			}
			caller, err := o.callerAddress()
			if err != nil {
				return err
			}
			var spenderAddr *common.Address
			if spender != "" {
				addr, err := parseAddress(spender)
				if err != nil {
					return fmt.Errorf("--spender: %w", err)
				}
				spenderAddr = &addr
			}
			// Approvals are always raw: the contract may be a token or a
			// market and the two carry different decimals.
			amount, err := (&options{raw: true}).parseAmount(args[1], 0)
			if err != nil {
				return err
			}
			ctx, cancel := o.context(cmd)
			defer cancel()
			if err := c.Approve(ctx, api.ApproveRequest{Caller: caller, Contract: args[0], Spender: spenderAddr, Amount: amount}); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "approved")
			return nil
		},
	}
	cmd.Flags().StringVar(&spender, "spender", "", "spender address (defaults to the adapter)")
	return cmd
}

func newEnterCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "enter <market>...",
		Short: "Use markets as collateral",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := o.client()
			if err != nil {
				return err
			}
			caller, err := o.callerAddress()
			if err != nil {
				return err
			}
			ctx, cancel := o.context(cmd)
			defer cancel()
			if err := c.EnterMarkets(ctx, api.EnterMarketsRequest{Caller: caller, Markets: args}); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "entered")
			return nil
		},
	}
}

func newBorrowCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "borrow <market> <amount>",
		Short: "Borrow underlying directly from a market",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := o.client()
			if err != nil {
				return err
			}
			caller, err := o.callerAddress()
			if err != nil {
				return err
			}
			ctx, cancel := o.context(cmd)
			defer cancel()
			amount, err := o.marketAmount(ctx, c, args[0], args[1])
			if err != nil {
				return err
			}
			value, ok := amount.Value()
			if !ok {
				return fmt.Errorf("borrow needs an exact amount")
			}
			view, err := c.Borrow(ctx, api.BorrowRequest{Caller: caller, Market: args[0], Amount: value})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), view)
		},
	}
}

func newMineCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "mine [blocks]",
		Short: "Advance the sandbox block height so interest accrues",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			blocks := uint64(1)
			if len(args) == 1 {
				n, err := strconv.ParseUint(args[0], 10, 64)
				if err != nil || n == 0 {
					return fmt.Errorf("blocks must be a positive integer")
				}
				blocks = n
			}
			c, err := o.client()
			if err != nil {
				return err
			}
			ctx, cancel := o.context(cmd)
			defer cancel()
			height, err := c.Mine(ctx, blocks)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "block %d\n", height)
			return nil
		},
	}
}
