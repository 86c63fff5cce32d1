// Package publish turns presence changes into outbound updates with a
// retry policy. A failed publish is reported, never fatal.
package publish

import (
	"context"
	"time"

	"github.com/sweeney/teams-presence-sensor/internal/logic"
)

// Reason classifies a failed publish.
type Reason string

const (
	ReasonNone       Reason = ""
	ReasonNetwork    Reason = "network"
	ReasonTimeout    Reason = "timeout"
	ReasonHTTPStatus Reason = "http_status"
)

// Result is the outcome of publishing one entity (or topic).
type Result struct {
	Sink       string // "homeassistant", "mqtt"
	Entity     string
	Value      string
	Attempts   int
	Skipped    bool // value already published; no call made
	Reason     Reason
	StatusCode int
	Err        error
}

// OK reports whether the entity holds Value after the publish.
func (r Result) OK() bool {
	return r.Err == nil
}

// Publisher mirrors a presence state to an external system.
type Publisher interface {
	// Publish sends s and reports one Result per entity. It must not
	// return until every attempt (including retries) has finished.
	Publish(ctx context.Context, s logic.StatusState) []Result
}

// Multi publishes to each Publisher in order.
type Multi []Publisher

// Publish calls every publisher sequentially and concatenates the results.
func (m Multi) Publish(ctx context.Context, s logic.StatusState) []Result {
	var results []Result
	for _, p := range m {
		if p == nil {
			continue
		}
		results = append(results, p.Publish(ctx, s)...)
	}
	return results
}

// Failed returns the results that did not succeed.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.OK() {
			out = append(out, r)
		}
	}
	return out
}

// Backoff is an exponential retry delay policy.
type Backoff struct {
	Initial    time.Duration
	Max        time.Duration // <= 0 means one hour
	Multiplier float64       // values < 1 mean 2
}

// DefaultBackoff waits 1s, 2s, 4s... capped at 30s.
var DefaultBackoff = Backoff{Initial: time.Second, Max: 30 * time.Second, Multiplier: 2}

// Delay returns the wait after the given failed attempt (1-based).
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 1 || b.Initial <= 0 {
		return 0
	}
	mult := b.Multiplier
	if mult < 1 {
		mult = 2
	}
	limit := b.Max
	if limit <= 0 {
		limit = time.Hour
	}

	d := float64(b.Initial)
	for i := 1; i < attempt && d < float64(limit); i++ {
		d *= mult
	}
	if d > float64(limit) {
		return limit
	}
	return time.Duration(d)
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the real Sleeper.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
