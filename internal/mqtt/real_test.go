package mqtt

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/sweeney/teams-presence-sensor/internal/logic"
)

// doneToken is an already-completed paho token.
type doneToken struct{ err error }

func (t doneToken) Wait() bool {
	return true
}

func (t doneToken) WaitTimeout(time.Duration) bool {
	return true
}

func (t doneToken) Error() error {
	return t.err
}

func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type sent struct {
	topic    string
	retained bool
	payload  []byte
}

// fakeClient is a paho.Client whose connection state follows a script:
// each IsConnectionOpen call consumes one entry, the last one sticks.
type fakeClient struct {
	mu   sync.Mutex
	open []bool
	sent []sent
}

var _ paho.Client = (*fakeClient)(nil)

func (c *fakeClient) IsConnected() bool { return c.IsConnectionOpen() }

func (c *fakeClient) IsConnectionOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.open) == 0 {
		return false
	}
	v := c.open[0]
	if len(c.open) > 1 {
		c.open = c.open[1:]
	}
	return v
}

func (c *fakeClient) setOpen(v bool) {
	c.mu.Lock()
	c.open = []bool{v}
	c.mu.Unlock()
}

func (c *fakeClient) Connect() paho.Token {
	return doneToken{}
}

func (c *fakeClient) Disconnect(uint) {}

func (c *fakeClient) AddRoute(string, paho.MessageHandler) {}

func (c *fakeClient) Publish(topic string, _ byte, retained bool, payload interface{}) paho.Token {
	b, _ := payload.([]byte)
	c.mu.Lock()
	c.sent = append(c.sent, sent{topic: topic, retained: retained, payload: b})
	c.mu.Unlock()
	return doneToken{}
}

func (c *fakeClient) Subscribe(string, byte, paho.MessageHandler) paho.Token {
	return doneToken{}
}

func (c *fakeClient) SubscribeMultiple(map[string]byte, paho.MessageHandler) paho.Token {
	return doneToken{}
}

func (c *fakeClient) Unsubscribe(...string) paho.Token { return doneToken{} }

func (c *fakeClient) OptionsReader() paho.ClientOptionsReader {
	return paho.ClientOptionsReader{}
}

func (c *fakeClient) topics() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.sent))
	for i, s := range c.sent {
		out[i] = s.topic
	}
	return out
}

func newTestRealPublisher(client *fakeClient) *RealPublisher {
	return &RealPublisher{
		client: client,
		topics: TopicsFor(""),
		log:    zap.NewNop(),
		now:    func() time.Time { return time.Date(2026, 2, 7, 10, 0, 0, 0, time.UTC) },
		buffer: newRingBuffer(10),
	}
}

var busy = logic.StatusState{Status: logic.StatusBusy, Activity: logic.ActivityNone}

func TestRealPublishConnected(t *testing.T) {
	client := &fakeClient{open: []bool{true}}
	p := newTestRealPublisher(client)

	res := p.Publish(context.Background(), busy)
	if len(res) != 1 || res[0].Err != nil || res[0].Attempts != 1 {
		t.Fatalf("results = %+v", res)
	}
	if got := client.topics(); len(got) != 1 || got[0] != "presence/teams/state" {
		t.Errorf("sent topics = %v", got)
	}
	if !client.sent[0].retained {
		t.Error("state message should be retained")
	}
}

func TestRealPublishDisconnectedQueuesUntilConnect(t *testing.T) {
	client := &fakeClient{open: []bool{false}}
	p := newTestRealPublisher(client)

	res := p.Publish(context.Background(), busy)
	if !errors.Is(res[0].Err, ErrQueued) {
		t.Fatalf("err = %v, want ErrQueued", res[0].Err)
	}
	if len(client.topics()) != 0 || p.buffer.len() != 1 {
		t.Fatalf("sent %v, buffered %d", client.topics(), p.buffer.len())
	}

	client.setOpen(true)
	p.onConnect(client)

	// First connection: no RECONNECTED event, just the replay.
	if got := client.topics(); len(got) != 1 || got[0] != "presence/teams/state" {
		t.Errorf("sent topics = %v", got)
	}
	if p.buffer.len() != 0 {
		t.Errorf("buffered = %d after connect", p.buffer.len())
	}
}

func TestRealPublishConnectingDuringEnqueueIsNotStranded(t *testing.T) {
	// Closed when Publish checks, open by the time the message is buffered:
	// onConnect may already have drained the buffer.
	client := &fakeClient{open: []bool{false, true}}
	p := newTestRealPublisher(client)
	p.connected = true

	res := p.Publish(context.Background(), busy)
	if res[0].Err != nil {
		t.Fatalf("err = %v, want delivered", res[0].Err)
	}
	if got := client.topics(); len(got) != 1 || got[0] != "presence/teams/state" {
		t.Errorf("sent topics = %v", got)
	}
	if p.buffer.len() != 0 {
		t.Errorf("message left in buffer")
	}
}

func TestRealPublishSystemConnectingDuringEnqueue(t *testing.T) {
	client := &fakeClient{open: []bool{false, true}}
	p := newTestRealPublisher(client)

	if err := p.PublishSystem(SystemEvent{Timestamp: p.now(), Event: "STARTUP", Retained: true}); err != nil {
		t.Fatalf("PublishSystem = %v", err)
	}
	if got := client.topics(); len(got) != 1 || got[0] != "presence/teams/system" {
		t.Errorf("sent topics = %v", got)
	}
}

func TestRealReconnectAnnouncesThenReplays(t *testing.T) {
	client := &fakeClient{open: []bool{false}}
	p := newTestRealPublisher(client)
	p.connected = true

	p.Publish(context.Background(), busy)
	p.Publish(context.Background(), logic.StatusState{Status: logic.StatusAway, Activity: logic.ActivityNone})

	client.setOpen(true)
	p.onConnect(client)

	got := client.topics()
	want := []string{"presence/teams/system", "presence/teams/state"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("sent topics = %v, want %v (state coalesced)", got, want)
	}
}
