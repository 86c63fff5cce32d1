package publish

import (
	"context"
	"errors"

	"github.com/sweeney/teams-presence-sensor/internal/logic"
)

// FakePublisher records published states for test assertions.
type FakePublisher struct {
	// States contains every state passed to Publish, in order.
	States []logic.StatusState

	// PublishError, if set, is reported as a failed Result for every call.
	PublishError error
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// Publish records s and returns a single Result.
func (f *FakePublisher) Publish(_ context.Context, s logic.StatusState) []Result {
	f.States = append(f.States, s)
	res := Result{Sink: "fake", Entity: "fake.presence", Value: string(s.Status), Attempts: 1}
	if f.PublishError != nil {
		res.Err = f.PublishError
		res.Reason = ReasonNetwork
	}
	return []Result{res}
}

// Reset clears recorded states.
func (f *FakePublisher) Reset() {
	f.States = nil
	f.PublishError = nil
}

// ErrFake is a convenience error for scripted failures.
var ErrFake = errors.New("fake publish failure")
