package mqtt

import (
	"context"
	"time"

	"github.com/sweeney/teams-presence-sensor/internal/logic"
	"github.com/sweeney/teams-presence-sensor/internal/publish"
)

// FakePublisher records published messages for test assertions.
type FakePublisher struct {
	// States contains all presence states that were published.
	States []logic.StatusState

	// Payloads contains the JSON payloads that were published.
	Payloads [][]byte

	// SystemEvents contains all system events that were published.
	SystemEvents []SystemEvent

	// SystemPayloads contains the JSON payloads for system events.
	SystemPayloads [][]byte

	// PublishError, if set, is reported in the Result of Publish.
	PublishError error

	// PublishSystemError, if set, will be returned by PublishSystem.
	PublishSystemError error

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool

	// Now stamps state payloads; defaults to time.Now.
	Now func() time.Time
}

// Ensure FakePublisher implements Publisher at compile time.
var _ Publisher = (*FakePublisher)(nil)

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// Publish records the presence state.
func (f *FakePublisher) Publish(_ context.Context, s logic.StatusState) []publish.Result {
	res := publish.Result{Sink: sinkMQTT, Entity: TopicsFor("").State, Value: string(s.Status), Attempts: 1}
	if f.PublishError != nil {
		res.Err = f.PublishError
		res.Reason = publish.ReasonNetwork
		return []publish.Result{res}
	}

	now := time.Now
	if f.Now != nil {
		now = f.Now
	}
	payload, err := FormatPayload(s, now())
	if err != nil {
		res.Err = err
		return []publish.Result{res}
	}

	f.States = append(f.States, s)
	f.Payloads = append(f.Payloads, payload)
	return []publish.Result{res}
}

// PublishSystem records the system event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}

	f.SystemEvents = append(f.SystemEvents, event)

	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemPayloads = append(f.SystemPayloads, payload)

	return nil
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}

// IsConnected reports whether the fake publisher is "connected".
func (f *FakePublisher) IsConnected() bool {
	return f.Connected
}

// Reset clears recorded messages.
func (f *FakePublisher) Reset() {
	f.States = nil
	f.Payloads = nil
	f.SystemEvents = nil
	f.SystemPayloads = nil
	f.Closed = false
	f.PublishError = nil
	f.PublishSystemError = nil
	f.Connected = false
}
