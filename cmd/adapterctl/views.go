package main

import (
	"fmt"
	"math/big"

	"github.com/spf13/cobra"

	"venusadapter/integrations/venusrpc"
)

func newMarketsCmd(o *options) *cobra.Command {
	var (
		rpcURL       string
		comptroller  string
		nativeMarket string
		block        uint64
	)
	cmd := &cobra.Command{
		Use:   "markets",
		Short: "List markets from adapterd or a live Comptroller",
		Long: `markets lists the daemon's sandbox markets. With --rpc it reads the
listing straight from a Venus Comptroller instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := o.context(cmd)
			defer cancel()
			if rpcURL == "" {
				c, err := o.client()
				if err != nil {
					return err
				}
				markets, err := c.Markets(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), markets)
			}

			comp, err := parseAddress(comptroller)
			if err != nil {
				return fmt.Errorf("--comptroller: %w", err)
			}
			native, err := parseAddress(nativeMarket)
			if err != nil {
				return fmt.Errorf("--native-market: %w", err)
			}
			eth, err := venusrpc.Dial(rpcURL)
			if err != nil {
				return err
			}
			defer eth.Close()
			reader, err := venusrpc.NewReader(eth, comp, native)
			if err != nil {
				return err
			}
			if block > 0 {
				reader = reader.AtBlock(new(big.Int).SetUint64(block))
			}
			markets, err := reader.Markets(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), markets)
		},
	}
	cmd.Flags().StringVar(&rpcURL, "rpc", "", "JSON-RPC endpoint of a BNB chain node")
	cmd.Flags().StringVar(&comptroller, "comptroller", "", "Comptroller address (with --rpc)")
	cmd.Flags().StringVar(&nativeMarket, "native-market", "", "native market address (with --rpc)")
	cmd.Flags().Uint64Var(&block, "block", 0, "block height to read at (with --rpc, 0 for latest)")
	cmd.MarkFlagsRequiredTogether("rpc", "comptroller", "native-market")
	return cmd
}

func newAccountCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "account <address>",
		Short: "Show balances, positions and allowances of an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := parseAddress(args[0])
			if err != nil {
				return err
			}
			c, err := o.client()
			if err != nil {
				return err
			}
			ctx, cancel := o.context(cmd)
			defer cancel()
			view, err := c.Account(ctx, addr)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), view)
		},
	}
}

func newReceiptsCmd(o *options) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "receipts <address>",
		Short: "List recent operation receipts of an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := parseAddress(args[0])
			if err != nil {
				return err
			}
			c, err := o.client()
			if err != nil {
				return err
			}
			ctx, cancel := o.context(cmd)
			defer cancel()
			records, err := c.Receipts(ctx, addr, limit)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), records)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of receipts")
	return cmd
}

func newReceiptCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "receipt <id>",
		Short: "Fetch one stored receipt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := o.client()
			if err != nil {
				return err
			}
			ctx, cancel := o.context(cmd)
			defer cancel()
			resp, err := c.Receipt(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
}
