package logic

import (
	"testing"
	"time"
)

func TestNewTracker(t *testing.T) {
	startTime := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tr := NewTracker(startTime)
	if tr == nil {
		t.Fatal("NewTracker returned nil")
	}
	if tr.IsSet() {
		t.Error("new tracker should not be set")
	}
	if tr.Current() != Unknown {
		t.Errorf("expected Unknown, got %+v", tr.Current())
	}
	if !tr.lastHeartbeat.Equal(startTime) {
		t.Errorf("expected lastHeartbeat %v, got %v", startTime, tr.lastHeartbeat)
	}
}

func TestFirstAcceptAlwaysChanges(t *testing.T) {
	// Even a value equal to the Unknown sentinel counts as the first change.
	tr := NewTracker(time.Now())
	if !tr.Accept(Unknown) {
		t.Error("first Accept should report a change")
	}
	if !tr.IsSet() {
		t.Error("tracker should be set after first Accept")
	}
	if tr.Accept(Unknown) {
		t.Error("second identical Accept should not report a change")
	}
}

func TestAcceptSequence(t *testing.T) {
	busy := StatusState{StatusBusy, ActivityNone}
	call := StatusState{StatusBusy, ActivityInACall}
	away := StatusState{StatusAway, ActivityNone}

	seq := []struct {
		in   StatusState
		want bool
	}{
		{busy, true},
		{busy, false},
		{call, true},
		{call, false},
		{call, false},
		{away, true},
		{busy, true},
		{busy, false},
	}

	tr := NewTracker(time.Now())
	for i, step := range seq {
		if got := tr.Accept(step.in); got != step.want {
			t.Errorf("step %d: Accept(%+v) = %v, want %v", i, step.in, got, step.want)
		}
		if tr.Current() != step.in {
			t.Errorf("step %d: Current() = %+v, want %+v", i, tr.Current(), step.in)
		}
	}

	counts := tr.Counts()
	if counts.Changes != 4 {
		t.Errorf("Changes: got %d, want 4", counts.Changes)
	}
	// busy->call is activity only; call->away changes both; away->busy status only.
	if counts.StatusChanges != 2 {
		t.Errorf("StatusChanges: got %d, want 2", counts.StatusChanges)
	}
	if counts.ActivityChanges != 2 {
		t.Errorf("ActivityChanges: got %d, want 2", counts.ActivityChanges)
	}
}

func TestApply(t *testing.T) {
	tests := []struct {
		name string
		prev StatusState
		u    Update
		want StatusState
	}{
		{
			name: "status line resets activity",
			prev: StatusState{StatusBusy, ActivityInACall},
			u:    Update{Status: StatusAvailable},
			want: StatusState{StatusAvailable, ActivityNone},
		},
		{
			name: "activity only keeps status",
			prev: StatusState{StatusBusy, ActivityNone},
			u:    Update{Activity: ActivityInACall},
			want: StatusState{StatusBusy, ActivityInACall},
		},
		{
			name: "activity only from unknown",
			prev: Unknown,
			u:    Update{Activity: ActivityInACall},
			want: StatusState{StatusUnknown, ActivityInACall},
		},
		{
			name: "activity only from zero value",
			prev: StatusState{},
			u:    Update{Activity: ActivityNone},
			want: Unknown,
		},
		{
			name: "status with activity",
			prev: Unknown,
			u:    Update{Status: StatusBusy, Activity: ActivityInAMeeting},
			want: StatusState{StatusBusy, ActivityInAMeeting},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Apply(tt.prev, tt.u); got != tt.want {
				t.Errorf("Apply = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestHeartbeat(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tr := NewTracker(start)
	tr.Accept(StatusState{StatusBusy, ActivityNone})

	if hb := tr.CheckHeartbeat(start.Add(time.Minute), 0); hb != nil {
		t.Error("heartbeat should be disabled for interval 0")
	}
	if hb := tr.CheckHeartbeat(start.Add(10*time.Minute), 15*time.Minute); hb != nil {
		t.Error("heartbeat should not fire before interval")
	}

	hb := tr.CheckHeartbeat(start.Add(15*time.Minute), 15*time.Minute)
	if hb == nil {
		t.Fatal("expected heartbeat at interval")
	}
	if hb.Uptime != 15*time.Minute {
		t.Errorf("Uptime: got %v, want 15m", hb.Uptime)
	}
	if hb.State.Status != StatusBusy {
		t.Errorf("State: got %+v", hb.State)
	}
	if hb.Counts.Changes != 1 {
		t.Errorf("Counts.Changes: got %d, want 1", hb.Counts.Changes)
	}

	if hb := tr.CheckHeartbeat(start.Add(20*time.Minute), 15*time.Minute); hb != nil {
		t.Error("heartbeat should reset after firing")
	}
	if hb := tr.CheckHeartbeat(start.Add(30*time.Minute), 15*time.Minute); hb == nil {
		t.Error("expected second heartbeat")
	}
}
