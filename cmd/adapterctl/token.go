package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"venusadapter/cmd/internal/passphrase"
	"venusadapter/services/adapterd/api"
	"venusadapter/services/adapterd/server"
)

type tokenOptions struct {
	subject   string
	scopes    []string
	ttl       time.Duration
	issuer    string
	secretEnv string
	source    func(envVar string) secretSource
}

type secretSource interface {
	Get() (string, error)
}

func newTokenCmd() *cobra.Command {
	opts := &tokenOptions{
		source: func(envVar string) secretSource {
			return passphrase.NewSource(envVar, "adapterd JWT secret")
		},
	}
	return newTokenCmdWith(opts)
}

func newTokenCmdWith(opts *tokenOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for adapterd",
		Long: `token signs an HS256 bearer token with the daemon's shared secret. The
secret is read from --secret-env or prompted for on the terminal.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			subject, err := parseAddress(opts.subject)
			if err != nil {
				return fmt.Errorf("--subject: %w", err)
			}
			secret, err := opts.source(opts.secretEnv).Get()
			if err != nil {
				return err
			}
			token, err := server.IssueToken(secret, opts.issuer, subject, opts.scopes, opts.ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&opts.subject, "subject", "", "caller address the token acts for")
	flags.StringSliceVar(&opts.scopes, "scope", []string{api.ScopeWrite}, "granted scopes ("+strings.Join([]string{api.ScopeWrite, api.ScopeAdmin}, ", ")+")")
	flags.DurationVar(&opts.ttl, "ttl", time.Hour, "token lifetime")
	flags.StringVar(&opts.issuer, "issuer", "adapterd", "issuer claim; must match the daemon")
	flags.StringVar(&opts.secretEnv, "secret-env", "ADAPTERD_JWT_SECRET", "environment variable holding the secret")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}
