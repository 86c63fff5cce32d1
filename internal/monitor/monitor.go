// Package monitor drives the poll, parse, track and publish cycle.
//
// A Monitor owns the logic.Tracker. Everything runs on the goroutine that
// calls Run; a cycle always finishes before a shutdown signal is observed.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/teams-presence-sensor/internal/logic"
	"github.com/sweeney/teams-presence-sensor/internal/mqtt"
	"github.com/sweeney/teams-presence-sensor/internal/publish"
	"github.com/sweeney/teams-presence-sensor/internal/status"
	"github.com/sweeney/teams-presence-sensor/internal/tail"
)

// ErrLogInaccessible is returned by Run when the log stays unreadable due to
// permissions for more consecutive cycles than the configured limit.
var ErrLogInaccessible = errors.New("log file inaccessible")

// SystemPublisher receives lifecycle events (STARTUP, HEARTBEAT, SHUTDOWN).
type SystemPublisher interface {
	PublishSystem(event mqtt.SystemEvent) error
}

// Options wires a Monitor. Source and Publisher are required.
type Options struct {
	Source    tail.Source
	Publisher publish.Publisher

	// Optional collaborators; nil disables each.
	System     SystemPublisher
	Connection mqtt.ConnectionStatus
	Status     *status.Tracker
	Checkpoint *tail.Checkpoint

	Heartbeat        time.Duration // 0 disables
	UnavailableLimit int           // 0 disables the fatal check
	Now              func() time.Time
	Logger           *zap.Logger
}

// Monitor runs detection and publication cycles.
type Monitor struct {
	opts    Options
	log     *zap.Logger
	tracker *logic.Tracker

	denied    int // consecutive permission-denied polls
	pollErr   string
	lastSaved tail.Position
}

// resetter and backlogger are implemented by *tail.Tailer.
type resetter interface {
	Resets() int
}

type backlogger interface {
	Behind() bool
}

// New creates a Monitor. The tracker starts unset, so the first parsed
// presence line is always published.
func New(o Options) *Monitor {
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return &Monitor{
		opts:      o,
		log:       o.Logger,
		tracker:   logic.NewTracker(o.Now()),
		lastSaved: o.Source.Position(),
	}
}

// State returns the last accepted presence state and whether one exists.
func (m *Monitor) State() (logic.StatusState, bool) {
	return m.tracker.Current(), m.tracker.IsSet()
}

// Run publishes STARTUP and runs a first cycle immediately, then one cycle
// per tick until a signal arrives or the log becomes permanently
// inaccessible. A signal is only seen between cycles.
func (m *Monitor) Run(tick <-chan time.Time, sig <-chan os.Signal) error {
	m.publishSystem("STARTUP", "", true)
	if err := m.Cycle(context.Background()); err != nil {
		return m.fatal(err)
	}

	for {
		select {
		case s := <-sig:
			name := signalName(s)
			m.log.Info("shutting down", zap.String("signal", name))
			m.saveCheckpoint()
			m.publishSystem("SHUTDOWN", name, true)
			return nil

		case <-tick:
			if err := m.Cycle(context.Background()); err != nil {
				return m.fatal(err)
			}
		}
	}
}

func (m *Monitor) fatal(err error) error {
	m.saveCheckpoint()
	m.publishSystem("SHUTDOWN", "FATAL", true)
	return err
}

// Cycle polls the source, folds every parsed update onto the current state,
// and publishes if the result differs from the last accepted state. When the
// source is behind (a backlog larger than one read), it keeps polling so only
// the state at the end of the backlog is published.
// It returns an error only for fatal conditions.
func (m *Monitor) Cycle(ctx context.Context) error {
	now := m.opts.Now()

	candidate := m.tracker.Current()
	lines, matched := 0, 0
	var err error
	for {
		var batch []string
		batch, err = m.opts.Source.Poll()
		lines += len(batch)
		for _, line := range batch {
			u, ok := logic.ParseLine(line)
			if !ok {
				continue
			}
			matched++
			candidate = logic.Apply(candidate, u)
		}
		if err != nil || len(batch) == 0 || !m.behind() {
			break
		}
	}

	if err != nil {
		if fatal := m.pollFailed(err); fatal != nil {
			return fatal
		}
	} else {
		m.pollRecovered()
	}
	if lines > 0 {
		m.log.Debug("polled", zap.Int("lines", lines), zap.Int("matched", matched))
	}

	if matched > 0 && m.tracker.Accept(candidate) {
		m.log.Info("presence changed",
			zap.String("status", string(candidate.Status)),
			zap.String("activity", string(candidate.Activity)))

		results := m.opts.Publisher.Publish(ctx, candidate)
		if failed := publish.Failed(results); len(failed) > 0 {
			m.log.Warn("publish incomplete",
				zap.Int("failed", len(failed)),
				zap.Int("entities", len(results)))
		}
		if m.opts.Status != nil {
			m.opts.Status.RecordPublish(now, candidate, results)
		}
	}

	if err == nil {
		m.saveCheckpoint()
	}
	m.refreshStatus(err)
	m.heartbeat(now)
	return nil
}

// pollFailed logs a poll error once per distinct message and counts
// permission failures toward the fatal limit.
func (m *Monitor) pollFailed(err error) error {
	if msg := err.Error(); msg != m.pollErr {
		m.pollErr = msg
		if errors.Is(err, tail.ErrUnavailable) {
			m.log.Info("log unavailable, keeping last state", zap.Error(err))
		} else {
			m.log.Warn("poll failed", zap.Error(err))
		}
	}

	if !errors.Is(err, fs.ErrPermission) {
		m.denied = 0
		return nil
	}
	m.denied++
	if m.opts.UnavailableLimit > 0 && m.denied >= m.opts.UnavailableLimit {
		m.log.Error("log file inaccessible, giving up",
			zap.Int("cycles", m.denied), zap.Error(err))
		return fmt.Errorf("%w after %d cycles: %w", ErrLogInaccessible, m.denied, err)
	}
	return nil
}

func (m *Monitor) behind() bool {
	b, ok := m.opts.Source.(backlogger)
	return ok && b.Behind()
}

func (m *Monitor) pollRecovered() {
	if m.pollErr != "" {
		m.log.Info("log available again")
	}
	m.pollErr = ""
	m.denied = 0
}

func (m *Monitor) saveCheckpoint() {
	if m.opts.Checkpoint == nil {
		return
	}
	pos := m.opts.Source.Position()
	if pos == m.lastSaved {
		return
	}
	if err := m.opts.Checkpoint.Save(pos); err != nil {
		m.log.Warn("checkpoint save failed", zap.String("file", m.opts.Checkpoint.Path()), zap.Error(err))
		return
	}
	m.lastSaved = pos
}

func (m *Monitor) refreshStatus(pollErr error) {
	if m.opts.Status == nil {
		return
	}
	m.opts.Status.Update(m.tracker.Current(), m.tracker.IsSet(), m.tracker.Counts())

	resets := 0
	if r, ok := m.opts.Source.(resetter); ok {
		resets = r.Resets()
	}
	m.opts.Status.SetTail(m.opts.Source.Position(), resets, pollErr)

	if m.opts.Connection != nil {
		m.opts.Status.SetMQTTConnected(m.opts.Connection.IsConnected())
	}
}

func (m *Monitor) heartbeat(now time.Time) {
	hb := m.tracker.CheckHeartbeat(now, m.opts.Heartbeat)
	if hb == nil {
		return
	}
	m.log.Info("heartbeat",
		zap.Duration("uptime", hb.Uptime),
		zap.String("status", string(hb.State.Status)),
		zap.Int("changes", hb.Counts.Changes))
	m.publishSystem("HEARTBEAT", "", false)
}

func (m *Monitor) publishSystem(event, reason string, retained bool) {
	if m.opts.System == nil {
		return
	}
	ev := mqtt.SystemEvent{
		Timestamp: m.opts.Now(),
		Event:     event,
		Reason:    reason,
		Retained:  retained,
	}
	if m.opts.Status != nil {
		if m.opts.Connection != nil {
			m.opts.Status.SetMQTTConnected(m.opts.Connection.IsConnected())
		}
		ev.RawPayload = status.FormatStatusEvent(m.opts.Status.Snapshot(), event, reason)
	}
	if err := m.opts.System.PublishSystem(ev); err != nil {
		m.log.Warn("system event publish failed", zap.String("event", event), zap.Error(err))
		return
	}
	m.log.Debug("published system event", zap.String("event", event))
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}
