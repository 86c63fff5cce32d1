package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string      `json:"event,omitempty"`
	Reason        string      `json:"reason,omitempty"`
	Presence      string      `json:"presence"`
	Activity      string      `json:"activity"`
	Ready         bool        `json:"ready"`
	LastChange    string      `json:"last_change,omitempty"`
	UptimeSeconds int64       `json:"uptime_seconds"`
	StartTime     string      `json:"start_time"`
	Timestamp     string      `json:"timestamp"`
	Tail          TailJSON    `json:"tail"`
	Publish       PublishJSON `json:"publish"`
	MQTT          MQTTStatus  `json:"mqtt"`
	Counts        CountsJSON  `json:"change_counts"`
	Config        ConfigJSON  `json:"config"`
}

// TailJSON reports the tailer position.
type TailJSON struct {
	Path   string `json:"path"`
	Offset int64  `json:"offset"`
	Resets int    `json:"resets"`
	Error  string `json:"error,omitempty"`
}

// PublishJSON reports the most recent publish.
type PublishJSON struct {
	Last      string `json:"last,omitempty"`
	Failed    int    `json:"failed"`
	Failures  int    `json:"failures_total"`
	LastError string `json:"last_error,omitempty"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker,omitempty"`
}

// CountsJSON is the JSON representation of change counts.
type CountsJSON struct {
	Changes         int `json:"changes"`
	StatusChanges   int `json:"status_changes"`
	ActivityChanges int `json:"activity_changes"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	LogSource     string `json:"log_source"`
	PollMs        int64  `json:"poll_ms"`
	HeartbeatMs   int64  `json:"heartbeat_ms"`
	HomeAssistant string `json:"home_assistant"`
	StatusEntity  string `json:"status_entity"`
	Broker        string `json:"broker,omitempty"`
	HTTPAddr      string `json:"http_addr,omitempty"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func buildInner(snap Snapshot) StatusInner {
	presence := string(snap.State.Status)
	if presence == "" {
		presence = "Unknown"
	}
	activity := string(snap.State.Activity)
	if activity == "" {
		activity = "None"
	}

	return StatusInner{
		Presence:      presence,
		Activity:      activity,
		Ready:         snap.Set,
		LastChange:    formatTime(snap.LastChange),
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     formatTime(snap.StartTime),
		Timestamp:     formatTime(snap.Now),
		Tail: TailJSON{
			Path:   snap.Tail.Path,
			Offset: snap.Tail.Offset,
			Resets: snap.Tail.Resets,
			Error:  snap.Tail.Error,
		},
		Publish: PublishJSON{
			Last:      formatTime(snap.Publish.At),
			Failed:    snap.Publish.Failed,
			Failures:  snap.Publish.Failures,
			LastError: snap.Publish.LastError,
		},
		MQTT: MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Changes:         snap.Counts.Changes,
			StatusChanges:   snap.Counts.StatusChanges,
			ActivityChanges: snap.Counts.ActivityChanges,
		},
		Config: ConfigJSON{
			LogSource:     snap.Config.LogSource,
			PollMs:        snap.Config.PollInterval.Milliseconds(),
			HeartbeatMs:   snap.Config.Heartbeat.Milliseconds(),
			HomeAssistant: snap.Config.HomeAssistant,
			StatusEntity:  snap.Config.StatusEntity,
			Broker:        snap.Config.Broker,
			HTTPAddr:      snap.Config.HTTPAddr,
		},
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
