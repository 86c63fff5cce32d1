package mqtt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/sweeney/teams-presence-sensor/internal/logic"
	"github.com/sweeney/teams-presence-sensor/internal/publish"
)

const (
	sinkMQTT          = "mqtt"
	defaultClientID   = "teams-presence-sensor"
	defaultBufferSize = 100
	publishTimeout    = 5 * time.Second
)

// ErrQueued is reported when a message was buffered for replay because the
// broker connection is down.
var ErrQueued = errors.New("mqtt: not connected, message queued")

// Options configures a RealPublisher.
type Options struct {
	Broker      string
	ClientID    string
	TopicPrefix string
	BufferSize  int
	Logger      *zap.Logger
}

// RealPublisher publishes to an actual MQTT broker.
type RealPublisher struct {
	client paho.Client
	topics Topics
	log    *zap.Logger
	now    func() time.Time

	mu        sync.Mutex
	buffer    *ringBuffer
	connected bool // at least one successful connection

	flushMu sync.Mutex // keeps replayed messages in buffer order
}

// Ensure RealPublisher implements Publisher at compile time.
var _ Publisher = (*RealPublisher)(nil)

// NewRealPublisher creates a publisher connected to the given broker.
// The broker holds a retained OFFLINE last-will on the system topic.
func NewRealPublisher(o Options) (*RealPublisher, error) {
	if o.ClientID == "" {
		o.ClientID = defaultClientID
	}
	if o.BufferSize <= 0 {
		o.BufferSize = defaultBufferSize
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}

	p := &RealPublisher{
		topics: TopicsFor(o.TopicPrefix),
		log:    o.Logger.Named("mqtt"),
		now:    time.Now,
		buffer: newRingBuffer(o.BufferSize),
	}

	will, err := FormatSystemPayload(SystemEvent{Timestamp: p.now(), Event: "OFFLINE"})
	if err != nil {
		return nil, fmt.Errorf("format will payload: %w", err)
	}

	opts := paho.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetWill(p.topics.System, string(will), 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			p.log.Warn("connection lost", zap.Error(err))
		})

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		// paho keeps retrying; messages are buffered until onConnect.
		p.log.Warn("broker not reachable yet, retrying in background", zap.String("broker", o.Broker))
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return p, nil
}

// onConnect replays buffered messages. Runs on paho's goroutine.
func (p *RealPublisher) onConnect(c paho.Client) {
	p.mu.Lock()
	reconnect := p.connected
	p.connected = true
	p.mu.Unlock()

	if reconnect {
		p.log.Info("reconnected")
		if payload, err := FormatSystemPayload(SystemEvent{Timestamp: p.now(), Event: "RECONNECTED"}); err == nil {
			c.Publish(p.topics.System, 1, false, payload)
		}
	}
	if n := p.flush(); n > 0 {
		p.log.Info("replayed buffered messages", zap.Int("count", n))
	}
}

// flush drains the buffer and hands every message to the client.
func (p *RealPublisher) flush() int {
	p.flushMu.Lock()
	defer p.flushMu.Unlock()

	p.mu.Lock()
	pending := p.buffer.drainAll()
	p.mu.Unlock()

	for _, m := range pending {
		p.client.Publish(m.topic, m.qos, m.retained, m.payload)
	}
	return len(pending)
}

// queue buffers m while the connection is down. If the connection opened
// in the meantime, onConnect may already have drained the buffer, so the
// buffer is flushed here instead. It reports whether m is still waiting.
func (p *RealPublisher) queue(m bufferedMsg, state bool) bool {
	p.enqueue(m, state)
	if !p.client.IsConnectionOpen() {
		return true
	}
	p.flush()
	return false
}

// Publish sends the presence state as a retained message.
func (p *RealPublisher) Publish(ctx context.Context, s logic.StatusState) []publish.Result {
	res := publish.Result{Sink: sinkMQTT, Entity: p.topics.State, Value: string(s.Status)}

	payload, err := FormatPayload(s, p.now())
	if err != nil {
		res.Err = fmt.Errorf("format payload: %w", err)
		res.Reason = publish.ReasonNetwork
		return []publish.Result{res}
	}

	msg := bufferedMsg{topic: p.topics.State, payload: payload, qos: 1, retained: true}
	if !p.client.IsConnectionOpen() {
		if p.queue(msg, true) {
			res.Err = ErrQueued
			res.Reason = publish.ReasonNetwork
		} else {
			res.Attempts = 1
		}
		return []publish.Result{res}
	}

	res.Attempts = 1
	if err := p.send(ctx, msg); err != nil {
		res.Err = err
		res.Reason = publish.ReasonNetwork
		if errors.Is(err, context.DeadlineExceeded) {
			res.Reason = publish.ReasonTimeout
		}
		p.enqueue(msg, true)
	}
	return []publish.Result{res}
}

// PublishSystem sends a system lifecycle event to the broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	// QoS 1 (at-least-once); shutdown events must not be lost silently.
	msg := bufferedMsg{topic: p.topics.System, payload: payload, qos: 1, retained: event.Retained}
	if !p.client.IsConnectionOpen() {
		if p.queue(msg, false) {
			return ErrQueued
		}
		return nil
	}
	if err := p.send(context.Background(), msg); err != nil {
		return fmt.Errorf("publish system: %w", err)
	}
	return nil
}

func (p *RealPublisher) send(ctx context.Context, m bufferedMsg) error {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	token := p.client.Publish(m.topic, m.qos, m.retained, m.payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("publish timeout: %w", ctx.Err())
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

func (p *RealPublisher) enqueue(m bufferedMsg, state bool) {
	p.mu.Lock()
	var first bool
	if state {
		first = p.buffer.pushState(m)
	} else {
		first = p.buffer.push(m)
	}
	p.mu.Unlock()
	if first {
		p.log.Warn("buffer full, dropping oldest", zap.Int("capacity", len(p.buffer.buf)))
	}
}

// IsConnected reports whether the broker connection is currently open.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
