package cmd

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/api-fetch-client/internal/output"
	"github.com/Sternrassler/api-fetch-client/pkg/api"
)

type requestFlags struct {
	method  string
	headers []string
	query   []string
	data    string
	noCache bool
}

func (f *requestFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.method, "method", "X", "GET", "HTTP method: GET, POST, PUT, PATCH, DELETE")
	cmd.Flags().StringArrayVarP(&f.headers, "header", "H", nil, "request header as key=value (repeatable)")
	cmd.Flags().StringArrayVarP(&f.query, "query", "q", nil, "query parameter as key=value (repeatable)")
	cmd.Flags().StringVarP(&f.data, "data", "d", "", "request body; valid JSON is sent as JSON, anything else raw")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "bypass the response cache")
}

// request builds the request for target from the flags.
func (f *requestFlags) request(target string) (*api.Request, error) {
	method, err := api.ParseMethod(f.method)
	if err != nil {
		return nil, err
	}
	headers, err := parseKeyValues(f.headers)
	if err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}
	params, err := parseKeyValues(f.query)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}

	req := &api.Request{
		URL:     target,
		Method:  method,
		Headers: headers,
		NoCache: f.noCache,
	}
	if len(params) > 0 {
		req.Query = url.Values{}
		for k, v := range params {
			req.Query.Set(k, v)
		}
	}
	if f.data != "" {
		req.Body = parseBody(f.data)
	}
	return req, nil
}

func newGetCommand(opts *rootOptions) *cobra.Command {
	flags := &requestFlags{}

	cmd := &cobra.Command{
		Use:   "get <endpoint|path|url>",
		Short: "Perform a single request",
		Long: `Perform a single request against a named endpoint, a path relative to
base_url or an absolute URL. Error statuses are printed and make the
command exit non-zero.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.config()
			if err != nil {
				return err
			}
			req, err := flags.request(cfg.ResolveTarget(args[0]))
			if err != nil {
				return err
			}

			sess, err := openSession(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer sess.Close() // nolint:errcheck // best-effort cleanup

			resp, err := sess.client.Do(cmd.Context(), req)
			if err != nil {
				return err
			}

			f := opts.formatter()
			if err := output.Write(cmd.OutOrStdout(), func() (string, error) {
				return f.FormatResponses([]*api.Response{resp})
			}); err != nil {
				return err
			}
			sess.printStats(cmd.ErrOrStderr(), f)

			if !resp.Success() {
				return fmt.Errorf("request failed with status %d", resp.Status)
			}
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

// parseKeyValues splits "key=value" pairs.
func parseKeyValues(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("expected key=value, got %q", pair)
		}
		out[key] = value
	}
	return out, nil
}

// parseBody returns the decoded value for JSON input and the raw string
// otherwise.
func parseBody(data string) any {
	var v any
	if err := json.Unmarshal([]byte(data), &v); err == nil {
		return v
	}
	return data
}
