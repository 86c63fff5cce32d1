package publish

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/sweeney/teams-presence-sensor/internal/homeassistant"
	"github.com/sweeney/teams-presence-sensor/internal/logic"
)

const sinkHomeAssistant = "homeassistant"

// Entities names the Home Assistant sensors that mirror presence.
// An empty ActivityID disables the activity sensor.
type Entities struct {
	StatusID     string
	StatusName   string
	ActivityID   string
	ActivityName string
}

// HomeAssistantOptions configures a HomeAssistant publisher.
type HomeAssistantOptions struct {
	Entities Entities

	// Language maps a lowercase status or activity value to the text shown
	// in Home Assistant. Unmapped values are sent as-is.
	Language map[string]string

	// Icons maps a lowercase value to an mdi icon. The displayed (translated)
	// value is looked up first, then the raw one.
	Icons map[string]string

	// Attempts is the total number of tries per entity, including the first.
	Attempts int
	Backoff  Backoff
	Sleep    Sleeper
	Logger   *zap.Logger
}

// HomeAssistant publishes presence as two sensor states via the REST API.
// It remembers the last value each entity was successfully set to and skips
// entities whose value has not changed.
type HomeAssistant struct {
	client homeassistant.StateSetter
	opts   HomeAssistantOptions
	last   map[string]string
}

// Ensure HomeAssistant implements Publisher at compile time.
var _ Publisher = (*HomeAssistant)(nil)

// NewHomeAssistant creates a publisher that writes through client.
func NewHomeAssistant(client homeassistant.StateSetter, opts HomeAssistantOptions) *HomeAssistant {
	if opts.Attempts < 1 {
		opts.Attempts = 1
	}
	if opts.Sleep == nil {
		opts.Sleep = SleepContext
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &HomeAssistant{
		client: client,
		opts:   opts,
		last:   make(map[string]string),
	}
}

// Publish sets the status sensor and, if configured, the activity sensor.
func (h *HomeAssistant) Publish(ctx context.Context, s logic.StatusState) []Result {
	results := []Result{
		h.publishEntity(ctx, h.opts.Entities.StatusID, h.opts.Entities.StatusName,
			string(s.Status), h.icon(string(s.Status), "mdi:account")),
	}

	if h.opts.Entities.ActivityID != "" {
		fallback := "mdi:phone"
		if s.Activity == logic.ActivityNone || s.Activity == "" {
			fallback = "mdi:phone-off"
		}
		results = append(results, h.publishEntity(ctx, h.opts.Entities.ActivityID, h.opts.Entities.ActivityName,
			string(s.Activity), h.icon(string(s.Activity), fallback)))
	}
	return results
}

func (h *HomeAssistant) publishEntity(ctx context.Context, entityID, name, raw, icon string) Result {
	value := h.display(raw)
	res := Result{Sink: sinkHomeAssistant, Entity: entityID, Value: value}

	if prev, ok := h.last[entityID]; ok && prev == value {
		res.Skipped = true
		return res
	}

	attrs := map[string]any{"icon": icon}
	if name != "" {
		attrs["friendly_name"] = name
	}

	log := h.opts.Logger.With(zap.String("entity", entityID), zap.String("state", value))

	for attempt := 1; attempt <= h.opts.Attempts; attempt++ {
		res.Attempts = attempt
		err := h.client.SetState(ctx, entityID, value, attrs)
		if err == nil {
			res.Err = nil
			res.Reason = ReasonNone
			res.StatusCode = 0
			h.last[entityID] = value
			log.Info("updated entity", zap.Int("attempts", attempt))
			return res
		}

		reason, code, retryable := classify(err)
		res.Err = err
		res.Reason = reason
		res.StatusCode = code
		log.Info("entity update attempt failed",
			zap.Int("attempt", attempt),
			zap.String("reason", string(reason)),
			zap.Error(err))

		if !retryable || attempt == h.opts.Attempts {
			break
		}
		if err := h.opts.Sleep(ctx, h.opts.Backoff.Delay(attempt)); err != nil {
			break
		}
	}

	// The entity may or may not hold the new value; force a resend next time.
	delete(h.last, entityID)
	log.Error("entity update failed",
		zap.Int("attempts", res.Attempts),
		zap.String("reason", string(res.Reason)),
		zap.Error(res.Err))
	return res
}

func (h *HomeAssistant) display(raw string) string {
	if v, ok := h.opts.Language[strings.ToLower(raw)]; ok && v != "" {
		return v
	}
	return raw
}

func (h *HomeAssistant) icon(raw, fallback string) string {
	for _, key := range []string{h.display(raw), raw} {
		if v, ok := h.opts.Icons[strings.ToLower(key)]; ok && v != "" {
			return v
		}
	}
	return fallback
}

// classify maps an error to a Reason and decides whether retrying can help.
// Transport errors, timeouts, 5xx and 429 are retried; other statuses are not.
func classify(err error) (Reason, int, bool) {
	var se *homeassistant.StatusError
	if errors.As(err, &se) {
		retry := se.Code >= 500 || se.Code == http.StatusTooManyRequests
		return ReasonHTTPStatus, se.Code, retry
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonTimeout, 0, true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return ReasonTimeout, 0, true
	}
	if errors.Is(err, context.Canceled) {
		return ReasonNetwork, 0, false
	}
	return ReasonNetwork, 0, true
}
