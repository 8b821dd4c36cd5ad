package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/api-fetch-client/internal/config"
	"github.com/Sternrassler/api-fetch-client/internal/output"
	"github.com/Sternrassler/api-fetch-client/pkg/api"
)

func newBatchCommand(opts *rootOptions) *cobra.Command {
	flags := &requestFlags{}
	var (
		concurrency int
		quiet       bool
	)

	cmd := &cobra.Command{
		Use:   "batch <file>",
		Short: "Fetch many targets concurrently",
		Long: `Read targets from file (one endpoint name, path or URL per line; "-" reads
stdin) and fetch them concurrently. Results keep the order of the file.
Blank lines and lines starting with # are ignored.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.config()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("concurrency") {
				if concurrency < 1 {
					return errors.New("concurrency must be at least 1")
				}
				cfg.MaxConcurrent = concurrency
			}

			targets, err := readTargets(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			if len(targets) == 0 {
				return errors.New("no targets found in batch file")
			}
			reqs, err := batchRequests(cfg, flags, targets)
			if err != nil {
				return err
			}

			sess, err := openSession(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer sess.Close() // nolint:errcheck // best-effort cleanup

			stderr := cmd.ErrOrStderr()
			progress := func(done, total int) {
				if quiet {
					return
				}
				fmt.Fprintf(stderr, "\rprogress: %d/%d", done, total)
				if done == total {
					fmt.Fprintln(stderr)
				}
			}

			responses, err := sess.client.Batch(cmd.Context(), reqs, progress)
			if err != nil {
				return err
			}

			f := opts.formatter()
			if err := output.Write(cmd.OutOrStdout(), func() (string, error) {
				return f.FormatResponses(responses)
			}); err != nil {
				return err
			}
			sess.printStats(stderr, f)

			failed := 0
			for _, r := range responses {
				if !r.Success() {
					failed++
				}
			}
			if failed > 0 {
				sess.logger.Warn().Int("failed", failed).Int("total", len(responses)).Msg("Batch finished with failures")
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVarP(&concurrency, "concurrency", "c", 0, "max concurrent requests (default from config)")
	cmd.Flags().BoolVar(&quiet, "quiet", false, "do not print progress")
	return cmd
}

func batchRequests(cfg *config.Config, flags *requestFlags, targets []string) ([]*api.Request, error) {
	reqs := make([]*api.Request, 0, len(targets))
	for _, target := range targets {
		req, err := flags.request(cfg.ResolveTarget(target))
		if err != nil {
			return nil, err
		}
		req.Meta = req.Meta.WithLabel("target", target)
		reqs = append(reqs, req)
	}
	return reqs, nil
}

// readTargets reads one target per line from path, or from stdin for "-".
func readTargets(stdin io.Reader, path string) ([]string, error) {
	var r io.Reader = stdin
	if path != "-" {
		file, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer file.Close() // nolint:errcheck // best-effort cleanup on read-only file
		r = file
	}

	targets := make([]string, 0)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		targets = append(targets, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return targets, nil
}
