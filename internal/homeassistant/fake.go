package homeassistant

import "context"

// Call is one recorded SetState invocation.
type Call struct {
	EntityID   string
	State      string
	Attributes map[string]any
}

// FakeClient records SetState calls and keeps the resulting entity states,
// standing in for a Home Assistant instance in tests.
type FakeClient struct {
	// Calls contains every SetState call, including failed ones.
	Calls []Call

	// States holds the last successfully set state per entity.
	States map[string]string

	// Errors, if non-empty, are returned by successive SetState calls.
	// A nil entry means success. Once exhausted, calls succeed.
	Errors []error

	// Err, if set, is returned by every call after Errors is exhausted.
	Err error
}

// NewFakeClient creates an empty FakeClient.
func NewFakeClient() *FakeClient {
	return &FakeClient{States: make(map[string]string)}
}

// SetState records the call and applies it unless an error is scripted.
func (f *FakeClient) SetState(_ context.Context, entityID, state string, attributes map[string]any) error {
	f.Calls = append(f.Calls, Call{EntityID: entityID, State: state, Attributes: attributes})

	if len(f.Errors) > 0 {
		err := f.Errors[0]
		f.Errors = f.Errors[1:]
		if err != nil {
			return err
		}
	} else if f.Err != nil {
		return f.Err
	}

	if f.States == nil {
		f.States = make(map[string]string)
	}
	f.States[entityID] = state
	return nil
}

// CallsFor returns the calls made for one entity.
func (f *FakeClient) CallsFor(entityID string) []Call {
	var out []Call
	for _, c := range f.Calls {
		if c.EntityID == entityID {
			out = append(out, c)
		}
	}
	return out
}

// Reset clears recorded calls, states and scripted errors.
func (f *FakeClient) Reset() {
	f.Calls = nil
	f.States = make(map[string]string)
	f.Errors = nil
	f.Err = nil
}
