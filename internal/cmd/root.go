// Package cmd implements the apifetch command line interface.
package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/api-fetch-client/internal/config"
	"github.com/Sternrassler/api-fetch-client/internal/output"
	"github.com/Sternrassler/api-fetch-client/pkg/logging"
)

// Version information set by the main package.
var versionInfo struct {
	Version   string
	Commit    string
	BuildDate string
}

// SetVersionInfo is called by main package to set version information
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

// rootOptions holds the global flags and the state resolved from them.
type rootOptions struct {
	configFile  string
	logLevel    string
	pretty      bool
	format      string
	metricsAddr string

	cfg    *config.Config
	output output.Format
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "apifetch",
		Short: "Rate limited, concurrent HTTP API fetcher",
		Long: `apifetch fetches data from HTTP APIs with a shared rate limit, bounded
concurrency and retries with exponential backoff.

Configuration is read from apifetch.yaml, APIFETCH_* environment variables
and the flags below, in increasing order of precedence.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.load(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "config file (default ./apifetch.yaml or $XDG_CONFIG_HOME/apifetch/apifetch.yaml)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error, disabled")
	flags.BoolVar(&opts.pretty, "pretty", false, "human readable console logs")
	flags.StringVarP(&opts.format, "output", "o", "table", "output format: table, json, yaml")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve /health, /metrics and /stats on this address while running")

	root.AddCommand(
		newGetCommand(opts),
		newBatchCommand(opts),
		newPaginateCommand(opts),
		newStatsCommand(opts),
		newVersionCommand(),
	)
	return root
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

func (o *rootOptions) load(cmd *cobra.Command) error {
	format, err := output.ParseFormat(o.format)
	if err != nil {
		return err
	}
	o.output = format

	overrides := map[string]any{}
	if cmd.Flags().Changed("log-level") {
		overrides["logging.level"] = o.logLevel
	}
	if cmd.Flags().Changed("pretty") {
		overrides["logging.pretty"] = o.pretty
	}
	if cmd.Flags().Changed("metrics-addr") {
		overrides["server.metrics_addr"] = o.metricsAddr
	}

	cfg, err := config.Load(o.configFile, overrides)
	if err != nil {
		return err
	}
	o.cfg = cfg

	logCfg := cfg.Logging
	logCfg.Output = cmd.ErrOrStderr()
	logger := logging.Setup(logCfg)
	if cfg.Source != "" {
		logger.Debug().Str("path", cfg.Source).Msg("Using config file")
	}
	return nil
}

func (o *rootOptions) formatter() output.Formatter {
	return output.NewFormatter(o.output)
}

func (o *rootOptions) config() (*config.Config, error) {
	if o.cfg == nil {
		return nil, errors.New("config not loaded")
	}
	return o.cfg, nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		// The version needs no configuration.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "apifetch %s (commit %s, built %s)\n",
				versionInfo.Version, versionInfo.Commit, versionInfo.BuildDate)
			return err
		},
	}
}
