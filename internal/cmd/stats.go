package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Sternrassler/api-fetch-client/internal/output"
	"github.com/Sternrassler/api-fetch-client/pkg/stats"
)

func newStatsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show request statistics recorded in Redis",
		Long: `Show the totals and per-route counters that apifetch processes with
stats.enabled have recorded under stats.prefix in Redis.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.config()
			if err != nil {
				return err
			}

			rdb, err := connectRedis(cmd.Context(), cfg.Redis)
			if err != nil {
				return err
			}
			defer rdb.Close() // nolint:errcheck // best-effort cleanup

			rec := stats.NewRedisRecorder(rdb, stats.WithPrefix(cfg.Stats.Prefix))
			total, err := rec.Total(cmd.Context())
			if err != nil {
				return err
			}
			routes, err := rec.ByRoute(cmd.Context())
			if err != nil {
				return err
			}

			f := opts.formatter()
			return output.Write(cmd.OutOrStdout(), func() (string, error) {
				return f.FormatCounters(total, routes)
			})
		},
	}
}
