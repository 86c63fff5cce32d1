package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config is the monitor configuration. It is loaded once and treated as
// read-only afterwards.
type Config struct {
	Log           LogConfig
	HomeAssistant HomeAssistantConfig
	Entities      EntitiesConfig
	Language      map[string]string // lowercase value -> display text
	Icons         map[string]string // lowercase value -> mdi icon
	MQTT          MQTTConfig
	HTTP          HTTPConfig
	Debug         DebugConfig
}

// LogConfig selects the Teams log to tail.
type LogConfig struct {
	Path             string // fixed file; takes precedence over Folder
	Folder           string // directory holding rotated Teams logs
	Pattern          string // filename regexp used with Folder
	PollInterval     time.Duration
	StateFile        string // checkpoint file; empty disables resume
	UnavailableLimit int    // consecutive permission-denied polls before exit; 0 disables
}

// HomeAssistantConfig is the REST endpoint and retry policy.
type HomeAssistantConfig struct {
	URL             string
	Token           string
	Timeout         time.Duration
	RetryAttempts   int
	RetryBackoff    time.Duration
	RetryBackoffMax time.Duration
}

// EntitiesConfig names the Home Assistant sensors.
type EntitiesConfig struct {
	Status       string
	StatusName   string
	Activity     string // empty disables the activity sensor
	ActivityName string
}

// MQTTConfig enables the optional broker mirror when Broker is set.
type MQTTConfig struct {
	Broker      string
	ClientID    string
	TopicPrefix string
	Heartbeat   time.Duration
	BufferSize  int
}

// HTTPConfig enables the status page when Addr is set.
type HTTPConfig struct {
	Addr string
}

// DebugConfig controls the rotated diagnostic log file.
type DebugConfig struct {
	Enabled     bool
	LogFile     string
	MaxSizeMB   int
	BackupCount int
	MaxAgeDays  int

	// RotateInterval rotates the file on a timer in addition to the size
	// limit; 0 disables.
	RotateInterval time.Duration
}

const (
	DefaultConfigPath = "presence-sensor.toml"

	defaultPollInterval     = time.Second
	defaultUnavailableLimit = 60
	defaultTimeout          = 10 * time.Second
	defaultRetryAttempts    = 3
	defaultRetryBackoff     = time.Second
	defaultRetryBackoffMax  = 30 * time.Second
	defaultStatusEntity     = "sensor.teams_status"
	defaultStatusName       = "Microsoft Teams status"
	defaultActivityEntity   = "sensor.teams_activity"
	defaultActivityName     = "Microsoft Teams activity"
	defaultHeartbeat        = 15 * time.Minute
	defaultDebugLogFile     = "presence-sensor.log"
	defaultMaxSizeMB        = 10
	defaultBackupCount      = 3
)

type rawConfig struct {
	Log struct {
		Path             string `toml:"path"`
		Folder           string `toml:"folder"`
		Pattern          string `toml:"pattern"`
		PollInterval     string `toml:"poll_interval"`
		StateFile        string `toml:"state_file"`
		UnavailableLimit *int   `toml:"unavailable_limit"`
	} `toml:"log"`
	HomeAssistant struct {
		URL             string `toml:"url"`
		Token           string `toml:"token"`
		Timeout         string `toml:"timeout"`
		RetryAttempts   int    `toml:"retry_attempts"`
		RetryBackoff    string `toml:"retry_backoff"`
		RetryBackoffMax string `toml:"retry_backoff_max"`
	} `toml:"home_assistant"`
	Entities struct {
		Status       string  `toml:"status"`
		StatusName   string  `toml:"status_name"`
		Activity     *string `toml:"activity"`
		ActivityName string  `toml:"activity_name"`
	} `toml:"entities"`
	Language map[string]string `toml:"language"`
	Icons    map[string]string `toml:"icons"`
	MQTT     struct {
		Broker      string `toml:"broker"`
		ClientID    string `toml:"client_id"`
		TopicPrefix string `toml:"topic_prefix"`
		Heartbeat   string `toml:"heartbeat"`
		BufferSize  int    `toml:"buffer_size"`
	} `toml:"mqtt"`
	HTTP struct {
		Addr string `toml:"addr"`
	} `toml:"http"`
	Debug struct {
		Enabled             bool   `toml:"enabled"`
		LogFile             string `toml:"log_file"`
		MaxSizeMB           int    `toml:"max_size_mb"`
		BackupCount         int    `toml:"backup_count"`
		MaxAgeDays          int    `toml:"max_age_days"`
		RotateIntervalHours int    `toml:"rotate_interval_hours"`
	} `toml:"debug"`
}

// Load reads and parses the TOML config at path, applying defaults.
// A missing or unparsable file is an error.
func Load(path string) (Config, error) {
	if strings.TrimSpace(path) == "" {
		path = DefaultConfigPath
	}
	resolved, err := expandPath(path)
	if err != nil {
		return Config{}, err
	}

	file, err := os.Open(resolved)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse builds a Config from TOML bytes, applying defaults and expansion.
func Parse(data []byte) (Config, error) {
	var raw rawConfig
	if err := toml.Unmarshal(data, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	var cfg Config
	var err error

	// [log]
	cfg.Log.Path = mustExpand(raw.Log.Path)
	cfg.Log.Folder = mustExpand(raw.Log.Folder)
	cfg.Log.Pattern = strings.TrimSpace(raw.Log.Pattern)
	cfg.Log.StateFile = mustExpand(raw.Log.StateFile)
	if cfg.Log.PollInterval, err = parseDuration("log.poll_interval", raw.Log.PollInterval, defaultPollInterval); err != nil {
		return Config{}, err
	}
	cfg.Log.UnavailableLimit = defaultUnavailableLimit
	if raw.Log.UnavailableLimit != nil {
		cfg.Log.UnavailableLimit = *raw.Log.UnavailableLimit
	}

	// [home_assistant]
	cfg.HomeAssistant.URL = strings.TrimSpace(expandEnv(raw.HomeAssistant.URL))
	cfg.HomeAssistant.Token = strings.TrimSpace(expandEnv(raw.HomeAssistant.Token))
	if cfg.HomeAssistant.Timeout, err = parseDuration("home_assistant.timeout", raw.HomeAssistant.Timeout, defaultTimeout); err != nil {
		return Config{}, err
	}
	cfg.HomeAssistant.RetryAttempts = raw.HomeAssistant.RetryAttempts
	if cfg.HomeAssistant.RetryAttempts == 0 {
		cfg.HomeAssistant.RetryAttempts = defaultRetryAttempts
	}
	if cfg.HomeAssistant.RetryBackoff, err = parseDuration("home_assistant.retry_backoff", raw.HomeAssistant.RetryBackoff, defaultRetryBackoff); err != nil {
		return Config{}, err
	}
	if cfg.HomeAssistant.RetryBackoffMax, err = parseDuration("home_assistant.retry_backoff_max", raw.HomeAssistant.RetryBackoffMax, defaultRetryBackoffMax); err != nil {
		return Config{}, err
	}

	// [entities]
	cfg.Entities.Status = orDefault(raw.Entities.Status, defaultStatusEntity)
	cfg.Entities.StatusName = orDefault(raw.Entities.StatusName, defaultStatusName)
	cfg.Entities.Activity = defaultActivityEntity
	if raw.Entities.Activity != nil {
		cfg.Entities.Activity = strings.TrimSpace(*raw.Entities.Activity)
	}
	cfg.Entities.ActivityName = orDefault(raw.Entities.ActivityName, defaultActivityName)

	cfg.Language = lowerKeys(raw.Language)
	cfg.Icons = lowerKeys(raw.Icons)

	// [mqtt]
	cfg.MQTT.Broker = strings.TrimSpace(expandEnv(raw.MQTT.Broker))
	cfg.MQTT.ClientID = strings.TrimSpace(raw.MQTT.ClientID)
	cfg.MQTT.TopicPrefix = strings.TrimSpace(raw.MQTT.TopicPrefix)
	cfg.MQTT.BufferSize = raw.MQTT.BufferSize
	if cfg.MQTT.Heartbeat, err = parseDuration("mqtt.heartbeat", raw.MQTT.Heartbeat, defaultHeartbeat); err != nil {
		return Config{}, err
	}

	// [http]
	cfg.HTTP.Addr = strings.TrimSpace(raw.HTTP.Addr)

	// [debug]
	cfg.Debug.Enabled = raw.Debug.Enabled
	cfg.Debug.LogFile = mustExpand(orDefault(raw.Debug.LogFile, defaultDebugLogFile))
	cfg.Debug.MaxSizeMB = raw.Debug.MaxSizeMB
	if cfg.Debug.MaxSizeMB == 0 {
		cfg.Debug.MaxSizeMB = defaultMaxSizeMB
	}
	cfg.Debug.BackupCount = raw.Debug.BackupCount
	if cfg.Debug.BackupCount == 0 {
		cfg.Debug.BackupCount = defaultBackupCount
	}
	cfg.Debug.MaxAgeDays = raw.Debug.MaxAgeDays
	cfg.Debug.RotateInterval = time.Duration(raw.Debug.RotateIntervalHours) * time.Hour

	return cfg, nil
}

// LogSource describes the tailed file or folder for display.
func (c Config) LogSource() string {
	if c.Log.Path != "" {
		return c.Log.Path
	}
	return c.Log.Folder
}

func orDefault(v, def string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return def
	}
	return v
}

func parseDuration(key, raw string, def time.Duration) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse config: %s: %w", key, err)
	}
	return d, nil
}

func lowerKeys(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	return out
}

var windowsVar = regexp.MustCompile(`%([A-Za-z_][A-Za-z0-9_()]*)%`)

// expandEnv expands $VAR, ${VAR} and Windows-style %VAR% references.
// Unset %VAR% references are left untouched.
func expandEnv(s string) string {
	s = windowsVar.ReplaceAllStringFunc(s, func(m string) string {
		if v, ok := os.LookupEnv(m[1 : len(m)-1]); ok {
			return v
		}
		return m
	})
	return os.ExpandEnv(s)
}

func mustExpand(path string) string {
	if strings.TrimSpace(path) == "" {
		return ""
	}
	expanded, err := expandPath(path)
	if err != nil {
		return strings.TrimSpace(path)
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(expandEnv(path))
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
