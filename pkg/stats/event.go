// Package stats records per-request outcomes outside the process.
//
// The client keeps its own in-memory counters (see client.Stats). A
// Recorder additionally receives one Event per logical request so that
// several client processes can aggregate into a shared store such as Redis.
// Recording is best effort; the client logs recorder errors and carries on.
package stats

import (
	"context"
	"time"
)

// Event is the outcome of one logical request.
type Event struct {
	Method string
	Path   string

	Status   int
	Success  bool
	Cached   bool
	Attempts int
	Duration time.Duration

	At time.Time
}

// Field returns the counter field this event increments.
func (e Event) Field() string {
	switch {
	case e.Cached:
		return "cached"
	case e.Success:
		return "successful"
	default:
		return "failed"
	}
}

// Recorder persists request outcomes.
type Recorder interface {
	Record(ctx context.Context, ev Event) error
}

// Counters is an aggregate of recorded events.
type Counters struct {
	Successful int64 `json:"successful" yaml:"successful"`
	Failed     int64 `json:"failed" yaml:"failed"`
	Cached     int64 `json:"cached" yaml:"cached"`
	Attempts   int64 `json:"attempts" yaml:"attempts"`
}

func (c *Counters) add(ev Event) {
	switch ev.Field() {
	case "cached":
		c.Cached++
	case "successful":
		c.Successful++
	default:
		c.Failed++
	}
	c.Attempts += int64(ev.Attempts)
}
