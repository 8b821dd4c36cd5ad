// Package output renders fetch results and statistics for the CLI.
package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Sternrassler/api-fetch-client/pkg/api"
	"github.com/Sternrassler/api-fetch-client/pkg/client"
	"github.com/Sternrassler/api-fetch-client/pkg/gate"
	"github.com/Sternrassler/api-fetch-client/pkg/stats"
)

// Format represents an output format.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// Formatter renders responses and statistics.
type Formatter interface {
	FormatResponses(responses []*api.Response) (string, error)
	FormatStats(s client.Stats, p client.Pressure) (string, error)
	FormatCounters(total stats.Counters, routes map[string]stats.Counters) (string, error)
}

// ParseFormat validates and normalizes a format string.
func ParseFormat(value string) (Format, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "", string(FormatTable):
		return FormatTable, nil
	case string(FormatJSON):
		return FormatJSON, nil
	case string(FormatYAML), "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// NewFormatter returns a formatter for the requested format.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatYAML:
		return &YAMLFormatter{}
	default:
		return &TableFormatter{}
	}
}

// Write renders with render and writes the result followed by a newline.
func Write(w io.Writer, render func() (string, error)) error {
	text, err := render()
	if err != nil {
		return err
	}
	if text == "" {
		return nil
	}
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	_, err = io.WriteString(w, text)
	return err
}

// statsView adds the derived metrics and admission state to a stats snapshot.
type statsView struct {
	client.Stats        `yaml:",inline"`
	SuccessRate         float64       `json:"success_rate" yaml:"success_rate"`
	AverageResponseTime time.Duration `json:"average_response_time" yaml:"average_response_time"`
	Limiter             limiterView   `json:"limiter" yaml:"limiter"`
	Gate                gate.State    `json:"gate" yaml:"gate"`
}

type limiterView struct {
	Tokens            float64       `json:"tokens" yaml:"tokens"`
	Burst             int           `json:"burst" yaml:"burst"`
	RequestsPerSecond float64       `json:"requests_per_second" yaml:"requests_per_second"`
	Available         bool          `json:"available" yaml:"available"`
	NextToken         time.Duration `json:"next_token" yaml:"next_token"`
}

func newStatsView(s client.Stats, p client.Pressure) statsView {
	return statsView{
		Stats:               s,
		SuccessRate:         s.SuccessRate(),
		AverageResponseTime: s.AverageResponseTime(),
		Limiter: limiterView{
			Tokens:            p.Limiter.Tokens,
			Burst:             p.Limiter.Burst,
			RequestsPerSecond: p.Limiter.RequestsPerSecond,
			Available:         p.Limiter.Available(),
			NextToken:         p.Limiter.TimeUntilToken(),
		},
		Gate: p.Gate,
	}
}

// countersView is the serialized form of recorder counters.
type countersView struct {
	Total  stats.Counters            `json:"total" yaml:"total"`
	Routes map[string]stats.Counters `json:"routes,omitempty" yaml:"routes,omitempty"`
}
