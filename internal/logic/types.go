// Package logic contains pure business logic for Teams presence tracking.
// This package has NO external dependencies (no files, HTTP, MQTT, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// Status represents the coarse presence status of the Teams user.
type Status string

const (
	StatusAvailable    Status = "Available"
	StatusBusy         Status = "Busy"
	StatusDoNotDisturb Status = "DoNotDisturb"
	StatusBeRightBack  Status = "BeRightBack"
	StatusAway         Status = "Away"
	StatusOffline      Status = "Offline"
	StatusUnknown      Status = "Unknown"
)

// Activity represents finer-grained context layered on top of a Status.
type Activity string

const (
	ActivityNone       Activity = "None"
	ActivityInACall    Activity = "InACall"
	ActivityInAMeeting Activity = "InAMeeting"
	ActivityPresenting Activity = "Presenting"
)

// StatusState is the value mirrored to the home-automation sensors.
// It is comparable; equality is structural.
type StatusState struct {
	Status   Status
	Activity Activity
}

// Unknown is the state reported before any presence line has been seen.
var Unknown = StatusState{Status: StatusUnknown, Activity: ActivityNone}

// Update is the result of parsing a single log line.
type Update struct {
	// Status is empty when the line only carries activity information
	// (call start/end markers). The previous status is kept in that case.
	Status   Status
	Activity Activity
}

// ChangeCounts tracks the number of accepted changes since startup.
type ChangeCounts struct {
	Changes         int
	StatusChanges   int
	ActivityChanges int
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	State     StatusState
	Counts    ChangeCounts
}
