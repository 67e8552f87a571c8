package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newAssertionCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "assertion",
		Short: "Print a freshly signed assertion",
		Long:  "Sign an RS512 assertion with the configured key and print it without exchanging it.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			auth, logger, err := buildAuthenticator(opts)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			defer auth.Close()

			signed, err := auth.CreateSignedAssertion(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, signed.Token)
			fmt.Fprintf(out, "sub: %s\njti: %s\nexp: %s\n", signed.Subject, signed.ID, signed.ExpiresAt.UTC().Format(time.RFC3339))
			if opts.metrics {
				return writeMetrics(out, auth)
			}
			return nil
		},
	}
}
