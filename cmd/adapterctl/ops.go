package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/spf13/cobra"

	"venusadapter/config"
	"venusadapter/native/adapter"
	"venusadapter/services/adapterd/api"
	"venusadapter/services/adapterd/client"
	"venusadapter/services/adapterd/sandbox"
)

const nativeDecimals = 18

// findMarket resolves a symbol or address against the daemon's listing.
func findMarket(ctx context.Context, c *client.Client, ref string) (*sandbox.MarketView, error) {
	markets, err := c.Markets(ctx)
	if err != nil {
		return nil, err
	}
	ref = strings.TrimSpace(ref)
	for i := range markets {
		m := &markets[i]
		if strings.EqualFold(m.Symbol, ref) || (common.IsHexAddress(ref) && common.HexToAddress(ref) == m.Address) {
			return m, nil
		}
	}
	return nil, fmt.Errorf("market %q is not listed", ref)
}

// marketAmount parses an amount of market's underlying. Decimals are only
// fetched when the amount needs scaling.
func (o *options) marketAmount(ctx context.Context, c *client.Client, market, amount string) (adapter.Amount, error) {
	if o.raw || isMax(amount) {
		return o.parseAmount(amount, 0)
	}
	m, err := findMarket(ctx, c, market)
	if err != nil {
		return adapter.Amount{}, err
	}
	return o.parseAmount(amount, m.UnderlyingDecimals)
}

// marketTokenAmount parses a quantity of the market token itself.
func (o *options) marketTokenAmount(ctx context.Context, c *client.Client, market, amount string) (adapter.Amount, error) {
	if o.raw || isMax(amount) {
		return o.parseAmount(amount, 0)
	}
	m, err := findMarket(ctx, c, market)
	if err != nil {
		return adapter.Amount{}, err
	}
	return o.parseAmount(amount, m.Decimals)
}

func isMax(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "max", "full":
		return true
	}
	return false
}

// parseValue reads attached native value. Empty means none.
func (o *options) parseValue(raw string) (*uint256.Int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if o.raw {
		return uint256.FromDecimal(raw)
	}
	return config.ParseUnits(raw, nativeDecimals)
}

// runOp wires the shared client, context, caller and output handling.
func (o *options) runOp(cmd *cobra.Command, fn func(ctx context.Context, c *client.Client, caller common.Address) (*api.OperationResponse, error)) error {
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
	resp, err := fn(ctx, c, caller)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), resp)
}

func newSupplyCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "supply <market> <amount|max>",
		Short: "Deposit underlying into a market",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.runOp(cmd, func(ctx context.Context, c *client.Client, caller common.Address) (*api.OperationResponse, error) {
				amount, err := o.marketAmount(ctx, c, args[0], args[1])
				if err != nil {
					return nil, err
				}
				return c.Supply(ctx, api.SupplyRequest{Caller: caller, Market: args[0], Amount: amount})
			})
		},
	}
}

func newSupplyNativeCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "supply-native <value>",
		Short: "Deposit native currency into the native market",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := o.parseValue(args[0])
			if err != nil {
				return err
			}
			return o.runOp(cmd, func(ctx context.Context, c *client.Client, caller common.Address) (*api.OperationResponse, error) {
				return c.SupplyNative(ctx, api.SupplyNativeRequest{Caller: caller, Value: value})
			})
		},
	}
}

func newWithdrawCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "withdraw <market> <amount|max>",
		Short: "Redeem market tokens for underlying",
		Long: `withdraw redeems market tokens. The amount is a market token quantity
and is scaled by the market's own decimals.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.runOp(cmd, func(ctx context.Context, c *client.Client, caller common.Address) (*api.OperationResponse, error) {
				amount, err := o.marketTokenAmount(ctx, c, args[0], args[1])
				if err != nil {
					return nil, err
				}
				return c.Withdraw(ctx, api.WithdrawRequest{Caller: caller, Market: args[0], Amount: amount})
			})
		},
	}
}

func newRepayCmd(o *options) *cobra.Command {
	var value string
	cmd := &cobra.Command{
		Use:   "repay <market> <amount|max>",
		Short: "Repay borrowed underlying",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := o.parseValue(value)
			if err != nil {
				return err
			}
			return o.runOp(cmd, func(ctx context.Context, c *client.Client, caller common.Address) (*api.OperationResponse, error) {
				amount, err := o.marketAmount(ctx, c, args[0], args[1])
				if err != nil {
					return nil, err
				}
				return c.Repay(ctx, api.RepayRequest{Caller: caller, Market: args[0], Amount: amount, Value: v})
			})
		},
	}
	cmd.Flags().StringVar(&value, "value", "", "native value to attach (native market only)")
	return cmd
}

func newRepayNativeCmd(o *options) *cobra.Command {
	var value string
	cmd := &cobra.Command{
		Use:   "repay-native <amount|max> --value <value>",
		Short: "Repay native debt from attached value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := o.parseValue(value)
			if err != nil {
				return err
			}
			amount, err := o.parseAmount(args[0], nativeDecimals)
			if err != nil {
				return err
			}
			return o.runOp(cmd, func(ctx context.Context, c *client.Client, caller common.Address) (*api.OperationResponse, error) {
				return c.RepayNative(ctx, api.RepayNativeRequest{Caller: caller, Amount: amount, Value: v})
			})
		},
	}
	cmd.Flags().StringVar(&value, "value", "", "native value to attach; surplus is refunded")
	_ = cmd.MarkFlagRequired("value")
	return cmd
}

func newRepayAndWithdrawCmd(o *options) *cobra.Command {
	var value string
	cmd := &cobra.Command{
		Use:   "repay-and-withdraw <repay-market> <repay-amount|max> <withdraw-market> <withdraw-amount|max>",
		Short: "Repay one market and withdraw from another atomically",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := o.parseValue(value)
			if err != nil {
				return err
			}
			return o.runOp(cmd, func(ctx context.Context, c *client.Client, caller common.Address) (*api.OperationResponse, error) {
				repay, err := o.marketAmount(ctx, c, args[0], args[1])
				if err != nil {
					return nil, err
				}
				withdraw, err := o.marketTokenAmount(ctx, c, args[2], args[3])
				if err != nil {
					return nil, err
				}
				return c.RepayAndWithdraw(ctx, api.RepayAndWithdrawRequest{
					Caller:         caller,
					RepayMarket:    args[0],
					RepayAmount:    repay,
					WithdrawMarket: args[2],
					WithdrawAmount: withdraw,
					Value:          v,
				})
			})
		},
	}
	cmd.Flags().StringVar(&value, "value", "", "native value to attach when repaying the native market")
	return cmd
}
