package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Sternrassler/api-fetch-client/internal/testutil"
)

// writeTestConfig points the CLI at the mock API with fast retries.
func writeTestConfig(t *testing.T, baseURL string) string {
	t.Helper()
	body := fmt.Sprintf(`
base_url: %s
max_concurrent: 2
rate_limit:
  requests_per_second: 1000
  burst_size: 100
retry:
  max_retries: 1
  base_delay: 1ms
  max_delay: 5ms
logging:
  level: disabled
`, baseURL)
	path := filepath.Join(t.TempDir(), "apifetch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := NewRootCommand()
	root.SetArgs(args)
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetIn(strings.NewReader(""))
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestGet(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetResponse("/orders", testutil.NewJSONResponse(`[{"id": 1}, {"id": 2}]`))
	cfg := writeTestConfig(t, mock.URL())

	stdout, stderr, err := run(t, "get", "orders", "--config", cfg, "-o", "json", "-H", "X-Trace=abc", "-q", "limit=5")
	require.NoError(t, err)

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &decoded))
	require.Len(t, decoded, 1)
	require.Equal(t, 200.0, decoded[0]["status"])
	require.Contains(t, stderr, "\"total_requests\": 1")

	require.Equal(t, "abc", mock.LastRequestHeader().Get("X-Trace"))
	require.Equal(t, []string{"/orders?limit=5"}, mock.RequestURIs())
}

func TestGet_ErrorStatus(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetResponse("/missing", testutil.MockResponse{StatusCode: 404, Body: `{"detail": "not found"}`})
	cfg := writeTestConfig(t, mock.URL())

	stdout, _, err := run(t, "get", "/missing", "--config", cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "404")
	require.Contains(t, stdout, "404")
	require.Equal(t, 1, mock.GetPathCount("/missing"))
}

func TestGet_PostJSON(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	cfg := writeTestConfig(t, mock.URL())

	_, _, err := run(t, "get", "/orders", "--config", cfg, "-X", "post", "-d", `{"sku": "A1"}`)
	require.NoError(t, err)
	require.Equal(t, "application/json", mock.LastRequestHeader().Get("Content-Type"))
}

func TestBatch(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetResponse("/b", testutil.NewServerErrorResponse())
	cfg := writeTestConfig(t, mock.URL())

	list := filepath.Join(t.TempDir(), "targets.txt")
	require.NoError(t, os.WriteFile(list, []byte("# comment\n/a\n\n/b\n/c\n"), 0o600))

	stdout, stderr, err := run(t, "batch", list, "--config", cfg, "-o", "json", "-c", "3")
	require.NoError(t, err)

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &decoded))
	require.Len(t, decoded, 3)
	for i, want := range []string{"/a", "/b", "/c"} {
		require.True(t, strings.HasSuffix(decoded[i]["url"].(string), want), "result %d url %v", i, decoded[i]["url"])
	}
	require.Equal(t, false, decoded[1]["success"])
	require.Contains(t, stderr, "progress: 3/3")
	require.Equal(t, 2, mock.GetPathCount("/b"))
}

func TestBatch_Empty(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	cfg := writeTestConfig(t, mock.URL())

	list := filepath.Join(t.TempDir(), "targets.txt")
	require.NoError(t, os.WriteFile(list, []byte("# nothing\n"), 0o600))

	_, _, err := run(t, "batch", list, "--config", cfg)
	require.Error(t, err)
}

func TestBatch_InvalidConcurrency(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	cfg := writeTestConfig(t, mock.URL())

	_, _, err := run(t, "batch", "-", "--config", cfg, "-c", "0")
	require.Error(t, err)
}

func TestPaginate(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetPaginated("/items", 250, true)
	cfg := writeTestConfig(t, mock.URL())

	stdout, stderr, err := run(t, "paginate", "/items", "--config", cfg, "--page-size", "100")
	require.NoError(t, err)
	require.Contains(t, stderr, "250 items across 3 pages")
	require.Contains(t, stdout, "/items")
	require.Equal(t, 3, mock.GetPathCount("/items"))
}

func TestPaginate_MaxPages(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetPaginated("/items", 1000, false)
	cfg := writeTestConfig(t, mock.URL())

	_, stderr, err := run(t, "paginate", "/items", "--config", cfg, "--page-size", "10", "--max-pages", "2", "-o", "yaml")
	require.NoError(t, err)
	require.Contains(t, stderr, "20 items across 2 pages")
}

func TestInvalidOutputFormat(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	cfg := writeTestConfig(t, mock.URL())

	_, _, err := run(t, "get", "/x", "--config", cfg, "-o", "csv")
	require.Error(t, err)
	require.Equal(t, 0, mock.GetRequestCount())
}

func TestVersion(t *testing.T) {
	SetVersionInfo("1.0.0", "abc123", "2026-01-01")
	stdout, _, err := run(t, "version")
	require.NoError(t, err)
	require.Contains(t, stdout, "apifetch 1.0.0 (commit abc123")
}

func TestParseKeyValues(t *testing.T) {
	got, err := parseKeyValues([]string{"a=1", "b=x=y", "c="})
	require.NoError(t, err)
	require.Equal(t, map[string]string{"a": "1", "b": "x=y", "c": ""}, got)

	_, err = parseKeyValues([]string{"novalue"})
	require.Error(t, err)

	_, err = parseKeyValues([]string{"=v"})
	require.Error(t, err)
}

func TestParseBody(t *testing.T) {
	require.Equal(t, map[string]any{"a": 1.0}, parseBody(`{"a": 1}`))
	require.Equal(t, "plain text", parseBody("plain text"))
}

func TestReadTargets(t *testing.T) {
	targets, err := readTargets(strings.NewReader("orders\n  # skip\n\n/x \n"), "-")
	require.NoError(t, err)
	require.Equal(t, []string{"orders", "/x"}, targets)

	_, err = readTargets(nil, filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
}
