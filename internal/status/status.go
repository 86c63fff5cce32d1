// Package status provides a thread-safe snapshot of the presence monitor,
// written by the monitor loop and read by HTTP handlers.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/teams-presence-sensor/internal/logic"
	"github.com/sweeney/teams-presence-sensor/internal/publish"
	"github.com/sweeney/teams-presence-sensor/internal/tail"
)

// Config contains daemon configuration for display.
type Config struct {
	LogSource     string // file path or folder being tailed
	PollInterval  time.Duration
	Heartbeat     time.Duration
	HomeAssistant string
	StatusEntity  string
	Broker        string
	HTTPAddr      string
}

// TailInfo describes the tailer's position and health.
type TailInfo struct {
	Path   string
	Offset int64
	Resets int
	Error  string // last poll error, empty when healthy
}

// PublishInfo summarizes the most recent publish.
type PublishInfo struct {
	At        time.Time
	State     logic.StatusState
	Failed    int // entities that failed in the last publish
	LastError string
	Failures  int // failed entity publishes since startup
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	State         logic.StatusState
	Set           bool
	Counts        logic.ChangeCounts
	LastChange    time.Time
	Tail          TailInfo
	Publish       PublishInfo
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			State:     logic.Unknown,
			StartTime: startTime,
			Config:    cfg,
		},
		now: time.Now,
	}
}

// Update sets the presence state and change counters.
// Called from the monitor loop on every cycle.
func (t *Tracker) Update(state logic.StatusState, set bool, counts logic.ChangeCounts) {
	t.mu.Lock()
	if set && (!t.snap.Set || state != t.snap.State) {
		t.snap.LastChange = t.now()
	}
	t.snap.State = state
	t.snap.Set = set
	t.snap.Counts = counts
	t.mu.Unlock()
}

// SetTail records the tailer position and the last poll error (nil if healthy).
func (t *Tracker) SetTail(pos tail.Position, resets int, err error) {
	info := TailInfo{Path: pos.Path, Offset: pos.Offset, Resets: resets}
	if err != nil {
		info.Error = err.Error()
	}
	t.mu.Lock()
	t.snap.Tail = info
	t.mu.Unlock()
}

// RecordPublish stores the outcome of publishing state.
func (t *Tracker) RecordPublish(at time.Time, state logic.StatusState, results []publish.Result) {
	failed := publish.Failed(results)

	t.mu.Lock()
	p := t.snap.Publish
	p.At = at
	p.State = state
	p.Failed = len(failed)
	p.Failures += len(failed)
	if len(failed) > 0 {
		p.LastError = failed[len(failed)-1].Err.Error()
	}
	t.snap.Publish = p
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = t.now()
	return s
}
