package logic

import "time"

// Tracker holds the last accepted presence state and decides whether a new
// value is a change worth publishing.
type Tracker struct {
	current       StatusState
	set           bool
	startTime     time.Time
	counts        ChangeCounts
	lastHeartbeat time.Time
}

// NewTracker creates a tracker in the unset state.
// The startTime is used for calculating uptime in heartbeat events.
func NewTracker(startTime time.Time) *Tracker {
	return &Tracker{
		current:       Unknown,
		startTime:     startTime,
		lastHeartbeat: startTime,
	}
}

// Accept records s and reports whether it differs from the previously
// accepted state. The first call after construction always reports a change.
func (t *Tracker) Accept(s StatusState) bool {
	if t.set && s == t.current {
		return false
	}

	if t.set {
		if s.Status != t.current.Status {
			t.counts.StatusChanges++
		}
		if s.Activity != t.current.Activity {
			t.counts.ActivityChanges++
		}
	}
	t.counts.Changes++

	t.current = s
	t.set = true
	return true
}

// Apply folds a parsed update onto prev. A status line without activity
// resets the activity to None; an activity-only line keeps prev's status.
func Apply(prev StatusState, u Update) StatusState {
	next := prev
	if u.Status != "" {
		next.Status = u.Status
	}
	next.Activity = u.Activity
	if next.Activity == "" {
		next.Activity = ActivityNone
	}
	if next.Status == "" {
		next.Status = StatusUnknown
	}
	return next
}

// Current returns the last accepted state, or Unknown if nothing has been
// accepted yet.
func (t *Tracker) Current() StatusState {
	return t.current
}

// IsSet reports whether any state has been accepted.
func (t *Tracker) IsSet() bool {
	return t.set
}

// Counts returns a copy of the change counters.
func (t *Tracker) Counts() ChangeCounts {
	return t.counts
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if the interval has not elapsed or
// if interval is <= 0 (disabled).
func (t *Tracker) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}

	if now.Sub(t.lastHeartbeat) < interval {
		return nil
	}

	t.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(t.startTime),
		State:     t.current,
		Counts:    t.counts,
	}
}
