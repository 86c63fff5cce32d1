// Package mqtt mirrors presence state to an MQTT broker, with an abstraction for testing.
package mqtt

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/sweeney/teams-presence-sensor/internal/logic"
	"github.com/sweeney/teams-presence-sensor/internal/publish"
)

// DefaultTopicPrefix is used when no prefix is configured.
const DefaultTopicPrefix = "presence/teams"

// Topics holds the derived topic names for one prefix.
type Topics struct {
	State  string // retained presence state
	System string // lifecycle events
}

// TopicsFor derives the state and system topics from prefix.
func TopicsFor(prefix string) Topics {
	prefix = strings.TrimRight(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{
		State:  prefix + "/state",
		System: prefix + "/system",
	}
}

// Publisher mirrors presence state and lifecycle events to MQTT.
type Publisher interface {
	publish.Publisher

	// PublishSystem sends a system lifecycle event to the broker.
	// Returns error if publishing fails (should not crash the process).
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // pre-formatted JSON payload; returned as-is by FormatSystemPayload
	Retained   bool
}

// Payload is the retained presence message.
type Payload struct {
	Presence PresencePayload `json:"presence"`
}

// PresencePayload contains the mirrored state.
type PresencePayload struct {
	Timestamp string `json:"timestamp"`
	Status    string `json:"status"`
	Activity  string `json:"activity"`
}

// FormatPayload creates the JSON payload for a presence state.
func FormatPayload(s logic.StatusState, at time.Time) ([]byte, error) {
	payload := Payload{
		Presence: PresencePayload{
			Timestamp: at.UTC().Format(time.RFC3339),
			Status:    string(s.Status),
			Activity:  string(s.Activity),
		},
	}
	return json.Marshal(payload)
}

// SystemPayload is used for simple events (LWT, RECONNECTED) that don't
// carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
