package output

import (
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/Sternrassler/api-fetch-client/pkg/api"
	"github.com/Sternrassler/api-fetch-client/pkg/client"
	"github.com/Sternrassler/api-fetch-client/pkg/stats"
)

// TableFormatter renders results as an ASCII table.
type TableFormatter struct{}

// FormatResponses renders one row per response.
func (f *TableFormatter) FormatResponses(responses []*api.Response) (string, error) {
	if len(responses) == 0 {
		return "", nil
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"#", "Status", "URL", "Attempts", "Elapsed", "Notes"})

	ok := 0
	for i, r := range responses {
		if r == nil {
			continue
		}
		if r.Success() {
			ok++
		}
		t.AppendRow(table.Row{
			i + 1,
			statusLabel(r),
			r.URL,
			r.Attempts,
			r.Elapsed.Round(time.Millisecond).String(),
			notes(r),
		})
	}

	t.AppendFooter(table.Row{"", "", fmt.Sprintf("%d/%d successful", ok, len(responses)), "", "", ""})
	return t.Render(), nil
}

// FormatStats renders client statistics as a two column table.
func (f *TableFormatter) FormatStats(s client.Stats, p client.Pressure) (string, error) {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRows([]table.Row{
		{"Total requests", s.TotalRequests},
		{"Successful", s.Successful},
		{"Failed", s.Failed},
		{"Retried", s.Retried},
		{"Rate limited waits", s.RateLimitedWaits},
		{"Cache hits", s.CacheHits},
		{"Success rate", fmt.Sprintf("%.1f%%", s.SuccessRate())},
		{"Avg response time", s.AverageResponseTime().Round(time.Millisecond).String()},
		{"Limiter tokens", fmt.Sprintf("%.1f/%d", p.Limiter.Tokens, p.Limiter.Burst)},
		{"Next token in", p.Limiter.TimeUntilToken().Round(time.Millisecond).String()},
		{"Gate in use", fmt.Sprintf("%d/%d", p.Gate.InUse, p.Gate.Capacity)},
		{"Gate waiting", p.Gate.Waiting},
		{"Gate peak", p.Gate.Peak},
	})
	return t.Render(), nil
}

// FormatCounters renders recorder totals followed by one row per route.
func (f *TableFormatter) FormatCounters(total stats.Counters, routes map[string]stats.Counters) (string, error) {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Route", "Successful", "Failed", "Cached"})

	names := make([]string, 0, len(routes))
	for name := range routes {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		c := routes[name]
		t.AppendRow(table.Row{name, c.Successful, c.Failed, c.Cached})
	}

	t.AppendFooter(table.Row{
		fmt.Sprintf("total (%d attempts)", total.Attempts),
		total.Successful,
		total.Failed,
		total.Cached,
	})
	return t.Render(), nil
}

func statusLabel(r *api.Response) string {
	if r.Status == 0 {
		return "error"
	}
	label := strconv.Itoa(r.Status)
	if r.Cached {
		label += " (cached)"
	}
	return label
}

func notes(r *api.Response) string {
	if msg := r.ErrorMessage(); msg != "" {
		return msg
	}
	if items, ok := r.Items(); ok {
		return fmt.Sprintf("%d items", len(items))
	}
	if r.Meta.Page > 0 {
		return fmt.Sprintf("page %d", r.Meta.Page)
	}
	return ""
}
