package main

import (
	"fmt"
	"io"

	"github.com/MrEthical07/botauth"
	promexport "github.com/MrEthical07/botauth/metrics/export/prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type rootOptions struct {
	configPath string
	debug      bool
	metrics    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "botauth",
		Short: "Obtain session and key-manager tokens for a bot",
		Long: `botauth signs an RS512 assertion with the bot's private key and exchanges it
for a session token and a key-manager token.

Configuration is read from a YAML or JSON file (--config) and BOTAUTH_*
environment variables, which take precedence.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "bot configuration file (YAML or JSON)")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")
	cmd.PersistentFlags().BoolVar(&opts.metrics, "metrics", false, "print metrics in Prometheus text format on exit")

	cmd.AddCommand(newAuthenticateCmd(opts))
	cmd.AddCommand(newAssertionCmd(opts))
	return cmd
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}

// buildAuthenticator loads configuration and wires an authenticator for one run.
func buildAuthenticator(opts *rootOptions) (*botauth.Authenticator, *zap.Logger, error) {
	cfg, err := botauth.LoadConfig(opts.configPath)
	if err != nil {
		return nil, nil, err
	}
	if opts.metrics {
		cfg.Metrics.Enabled = true
		cfg.Metrics.EnableLatencyHistograms = true
	}

	logger, err := newLogger(opts.debug)
	if err != nil {
		return nil, nil, fmt.Errorf("create logger: %w", err)
	}

	auth, err := botauth.New().
		WithConfig(cfg).
		WithLogger(logger).
		Build()
	if err != nil {
		_ = logger.Sync()
		return nil, nil, err
	}
	return auth, logger, nil
}

func writeMetrics(w io.Writer, auth *botauth.Authenticator) error {
	reg := prometheus.NewRegistry()
	if err := reg.Register(promexport.NewExporter(auth)); err != nil {
		return err
	}
	families, err := reg.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
