package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"venusadapter/config"
	"venusadapter/native/adapter"
	"venusadapter/services/adapterd/client"
)

var version = "dev"

// options are the persistent flags shared by every command.
type options struct {
	url     string
	token   string
	caller  string
	timeout time.Duration
	raw     bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "adapterctl",
		Short: "Operate the Venus lending adapter",
		Long: `adapterctl submits supply, withdraw and repay operations to adapterd,
inspects sandbox accounts and markets, and reads live Venus markets over
JSON-RPC. Amounts are in whole units of the market's underlying unless
--raw is set; "max" settles the full balance or debt.`,
		Version:      version,
		SilenceUsage: true,
	}
	root.SetVersionTemplate(`{{printf "adapterctl version %s\n" .Version}}`)

	flags := root.PersistentFlags()
	flags.StringVar(&opts.url, "url", envOr("ADAPTERD_URL", "http://127.0.0.1:7090"), "adapterd base URL")
	flags.StringVar(&opts.token, "token", os.Getenv("ADAPTERD_TOKEN"), "bearer token")
	flags.StringVar(&opts.caller, "caller", os.Getenv("ADAPTERD_CALLER"), "caller address (defaults to the token subject)")
	flags.DurationVar(&opts.timeout, "timeout", 15*time.Second, "request timeout")
	flags.BoolVar(&opts.raw, "raw", false, "treat amounts as base units")

	root.AddCommand(
		newMarketsCmd(opts),
		newAccountCmd(opts),
		newReceiptsCmd(opts),
		newReceiptCmd(opts),
		newSupplyCmd(opts),
		newSupplyNativeCmd(opts),
		newWithdrawCmd(opts),
		newRepayCmd(opts),
		newRepayNativeCmd(opts),
		newRepayAndWithdrawCmd(opts),
		newSandboxCmd(opts),
		newTokenCmd(),
	)
	return root
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func (o *options) client() (*client.Client, error) {
	return client.New(client.Config{URL: o.url, Token: o.token, Timeout: o.timeout})
}

func (o *options) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), o.timeout)
}

// callerAddress returns the --caller flag, or the zero address to let the
// daemon take the token subject.
func (o *options) callerAddress() (common.Address, error) {
	if strings.TrimSpace(o.caller) == "" {
		return common.Address{}, nil
	}
	return parseAddress(o.caller)
}

func parseAddress(raw string) (common.Address, error) {
	raw = strings.TrimSpace(raw)
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("%q is not an address", raw)
	}
	return common.HexToAddress(raw), nil
}

// parseAmount reads "max", a base-unit integer under --raw, or a decimal in
// whole units scaled by decimals.
func (o *options) parseAmount(raw string, decimals uint8) (adapter.Amount, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "max", "full":
		return adapter.Full(), nil
	}
	if o.raw {
		return adapter.ParseAmount(raw)
	}
	v, err := config.ParseUnits(raw, decimals)
	if err != nil {
		return adapter.Amount{}, err
	}
	return adapter.Exact(v), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
