package output

import (
	"github.com/Sternrassler/api-fetch-client/pkg/api"
	"github.com/Sternrassler/api-fetch-client/pkg/client"
	"github.com/Sternrassler/api-fetch-client/pkg/stats"
	"gopkg.in/yaml.v3"
)

// YAMLFormatter renders results as YAML documents.
type YAMLFormatter struct{}

// FormatResponses renders responses as a YAML sequence of maps.
func (f *YAMLFormatter) FormatResponses(responses []*api.Response) (string, error) {
	docs := make([]map[string]any, 0, len(responses))
	for _, r := range responses {
		if r == nil {
			continue
		}
		docs = append(docs, r.ToMap())
	}
	return marshalYAML(docs)
}

// FormatStats renders client statistics including derived metrics.
func (f *YAMLFormatter) FormatStats(s client.Stats, p client.Pressure) (string, error) {
	return marshalYAML(newStatsView(s, p))
}

// FormatCounters renders recorder counters.
func (f *YAMLFormatter) FormatCounters(total stats.Counters, routes map[string]stats.Counters) (string, error) {
	return marshalYAML(countersView{Total: total, Routes: routes})
}

func marshalYAML(v any) (string, error) {
	data, err := yaml.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
