package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/api-fetch-client/internal/output"
	"github.com/Sternrassler/api-fetch-client/pkg/pagination"
)

func newPaginateCommand(opts *rootOptions) *cobra.Command {
	flags := &requestFlags{}
	pageOpts := pagination.DefaultOptions()

	cmd := &cobra.Command{
		Use:   "paginate <endpoint|path|url>",
		Short: "Fetch every page of a paginated endpoint",
		Long: `Request pages 1, 2, ... sequentially, sending the page number and page size
as query parameters. Fetching stops at the first page that returns fewer
than page-size items, fails, or after max-pages pages.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.config()
			if err != nil {
				return err
			}
			base, err := flags.request(cfg.ResolveTarget(args[0]))
			if err != nil {
				return err
			}

			sess, err := openSession(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer sess.Close() // nolint:errcheck // best-effort cleanup

			pages, err := sess.client.Paginate(cmd.Context(), base, pageOpts)
			if err != nil {
				return err
			}

			f := opts.formatter()
			if err := output.Write(cmd.OutOrStdout(), func() (string, error) {
				return f.FormatResponses(pages)
			}); err != nil {
				return err
			}

			items := pagination.CollectItems(pages)
			fmt.Fprintf(cmd.ErrOrStderr(), "%d items across %d pages\n", len(items), len(pages))
			sess.printStats(cmd.ErrOrStderr(), f)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVar(&pageOpts.PageSize, "page-size", pageOpts.PageSize, "items per page")
	cmd.Flags().IntVar(&pageOpts.MaxPages, "max-pages", 0, "stop after this many pages (0 = no limit)")
	cmd.Flags().StringVar(&pageOpts.PageParam, "page-param", pageOpts.PageParam, "query parameter carrying the page number")
	cmd.Flags().StringVar(&pageOpts.SizeParam, "size-param", pageOpts.SizeParam, "query parameter carrying the page size")
	return cmd
}
