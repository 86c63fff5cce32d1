package config

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"go.uber.org/multierr"
)

// Validate checks configuration correctness and reports every problem found.
// It performs declarative validation only and does not mutate cfg.
func Validate(cfg Config) error {
	var err error
	add := func(format string, args ...any) {
		err = multierr.Append(err, fmt.Errorf(format, args...))
	}

	// [log]
	if cfg.Log.Path == "" && cfg.Log.Folder == "" {
		add("log: one of path or folder is required")
	}
	if cfg.Log.Pattern != "" {
		if _, perr := regexp.Compile(cfg.Log.Pattern); perr != nil {
			add("log.pattern: %v", perr)
		}
	}
	if cfg.Log.PollInterval <= 0 {
		add("log.poll_interval must be positive, got %v", cfg.Log.PollInterval)
	}
	if cfg.Log.UnavailableLimit < 0 {
		add("log.unavailable_limit must be >= 0, got %d", cfg.Log.UnavailableLimit)
	}

	// [home_assistant]
	if cfg.HomeAssistant.URL == "" {
		add("home_assistant.url is required")
	} else {
		raw := cfg.HomeAssistant.URL
		if !strings.Contains(raw, "://") {
			raw = "http://" + raw
		}
		if u, perr := url.Parse(raw); perr != nil {
			add("home_assistant.url: %v", perr)
		} else if u.Scheme != "http" && u.Scheme != "https" {
			add("home_assistant.url: unsupported scheme %q", u.Scheme)
		} else if u.Host == "" {
			add("home_assistant.url: missing host")
		}
	}
	if cfg.HomeAssistant.Token == "" {
		add("home_assistant.token is required")
	}
	if cfg.HomeAssistant.Timeout <= 0 {
		add("home_assistant.timeout must be positive, got %v", cfg.HomeAssistant.Timeout)
	}
	if cfg.HomeAssistant.RetryAttempts < 1 {
		add("home_assistant.retry_attempts must be >= 1, got %d", cfg.HomeAssistant.RetryAttempts)
	}
	if cfg.HomeAssistant.RetryBackoff < 0 {
		add("home_assistant.retry_backoff must be >= 0, got %v", cfg.HomeAssistant.RetryBackoff)
	}
	if cfg.HomeAssistant.RetryBackoffMax < cfg.HomeAssistant.RetryBackoff {
		add("home_assistant.retry_backoff_max (%v) is less than retry_backoff (%v)",
			cfg.HomeAssistant.RetryBackoffMax, cfg.HomeAssistant.RetryBackoff)
	}

	// [entities]
	if !validEntityID(cfg.Entities.Status) {
		add("entities.status: %q is not an entity id (domain.object_id)", cfg.Entities.Status)
	}
	if cfg.Entities.Activity != "" && !validEntityID(cfg.Entities.Activity) {
		add("entities.activity: %q is not an entity id (domain.object_id)", cfg.Entities.Activity)
	}
	if cfg.Entities.Activity != "" && cfg.Entities.Activity == cfg.Entities.Status {
		add("entities: status and activity must differ")
	}

	// [mqtt]
	if cfg.MQTT.Heartbeat < 0 {
		add("mqtt.heartbeat must be >= 0, got %v", cfg.MQTT.Heartbeat)
	}
	if cfg.MQTT.BufferSize < 0 {
		add("mqtt.buffer_size must be >= 0, got %d", cfg.MQTT.BufferSize)
	}
	if strings.ContainsAny(cfg.MQTT.TopicPrefix, "+#") {
		add("mqtt.topic_prefix must not contain wildcards")
	}

	// [debug]
	if cfg.Debug.MaxSizeMB < 0 || cfg.Debug.BackupCount < 0 || cfg.Debug.MaxAgeDays < 0 {
		add("debug: max_size_mb, backup_count and max_age_days must be >= 0")
	}
	if cfg.Debug.RotateInterval < 0 {
		add("debug.rotate_interval_hours must be >= 0, got %v", cfg.Debug.RotateInterval)
	}

	return err
}

var entityID = regexp.MustCompile(`^[a-z0-9_]+\.[a-z0-9_]+$`)

func validEntityID(id string) bool {
	return entityID.MatchString(id)
}
