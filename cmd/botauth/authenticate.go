package main

import (
	"fmt"
	"io"

	"github.com/MrEthical07/botauth"
	"github.com/spf13/cobra"
)

func newAuthenticateCmd(opts *rootOptions) *cobra.Command {
	var showTokens bool

	cmd := &cobra.Command{
		Use:   "authenticate",
		Short: "Run one authentication cycle",
		Long: `Run one authentication cycle and report which tokens were obtained.

Token values are only printed with --show-tokens.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			auth, logger, err := buildAuthenticator(opts)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			defer auth.Close()

			out := cmd.OutOrStdout()
			res, authErr := auth.Authenticate(cmd.Context())
			printTokens(out, auth, showTokens)
			if res != nil {
				fmt.Fprintf(out, "cycles: %d, gated waits: %d, assertions: %d\n", res.Cycles, res.GatedWaits, res.Assertions)
			}

			if opts.metrics {
				if err := writeMetrics(out, auth); err != nil {
					return fmt.Errorf("write metrics: %w", err)
				}
			}
			return authErr
		},
	}

	cmd.Flags().BoolVar(&showTokens, "show-tokens", false, "print token values instead of their presence")
	return cmd
}

func printTokens(w io.Writer, auth *botauth.Authenticator, show bool) {
	session, hasSession := auth.SessionToken()
	keyManager, hasKeyManager := auth.KeyManagerToken()
	fmt.Fprintf(w, "session token: %s\n", describeToken(session, hasSession, show))
	fmt.Fprintf(w, "key manager token: %s\n", describeToken(keyManager, hasKeyManager, show))
}

func describeToken(token string, ok, show bool) string {
	switch {
	case !ok:
		return "absent"
	case show:
		return token
	default:
		return "present"
	}
}
