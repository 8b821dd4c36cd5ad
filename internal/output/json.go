package output

import (
	"encoding/json"

	"github.com/Sternrassler/api-fetch-client/pkg/api"
	"github.com/Sternrassler/api-fetch-client/pkg/client"
	"github.com/Sternrassler/api-fetch-client/pkg/stats"
)

// JSONFormatter renders results as JSON.
type JSONFormatter struct {
	Indent bool
}

// FormatResponses renders responses as a JSON array.
func (f *JSONFormatter) FormatResponses(responses []*api.Response) (string, error) {
	if responses == nil {
		responses = []*api.Response{}
	}
	return f.marshal(responses)
}

// FormatStats renders client statistics including derived metrics.
func (f *JSONFormatter) FormatStats(s client.Stats, p client.Pressure) (string, error) {
	return f.marshal(newStatsView(s, p))
}

// FormatCounters renders recorder counters.
func (f *JSONFormatter) FormatCounters(total stats.Counters, routes map[string]stats.Counters) (string, error) {
	return f.marshal(countersView{Total: total, Routes: routes})
}

func (f *JSONFormatter) marshal(v any) (string, error) {
	var (
		data []byte
		err  error
	)

	if f.Indent {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return "", err
	}

	return string(data), nil
}
