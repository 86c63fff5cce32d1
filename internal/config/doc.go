// Package config loads the presence monitor's TOML configuration.
//
// # Overview
//
// The configuration is read once at startup and never reloaded. A missing
// or unparsable file is fatal; the caller exits non-zero.
//
// # Sections
//
//	[log]
//	path = "~/AppData/Roaming/Microsoft/Teams/logs.txt"   # fixed file, or
//	folder = "%LOCALAPPDATA%/Packages/MSTeams_8wekyb3d8bbwe/LocalCache/Microsoft/MSTeams/Logs"
//	pattern = '^MSTeams_.*\.log$'                           # optional, folder mode
//	poll_interval = "1s"
//	state_file = "~/.presence-sensor/position.json"         # optional resume checkpoint
//	unavailable_limit = 60                                  # 0 never gives up
//
//	[home_assistant]
//	url = "http://homeassistant.local:8123"
//	token = "${HA_TOKEN}"
//	timeout = "10s"
//	retry_attempts = 3
//	retry_backoff = "1s"
//	retry_backoff_max = "30s"
//
//	[entities]
//	status = "sensor.teams_status"
//	status_name = "Microsoft Teams status"
//	activity = "sensor.teams_activity"   # "" disables
//	activity_name = "Microsoft Teams activity"
//
//	[language]    # value -> display text, keys are case-insensitive
//	busy = "Busy"
//
//	[icons]       # value -> mdi icon
//	busy = "mdi:account-cancel"
//
//	[mqtt]        # optional mirror
//	broker = "tcp://localhost:1883"
//	topic_prefix = "presence/teams"
//	heartbeat = "15m"
//
//	[http]        # optional status page
//	addr = ":8080"
//
//	[debug]
//	enabled = false
//	log_file = "presence-sensor.log"
//	max_size_mb = 10
//	backup_count = 3
//	max_age_days = 0
//	rotate_interval_hours = 0   # also rotate every N hours
//
// # Expansion
//
// Paths accept a leading ~ and environment references in $VAR, ${VAR} or
// %VAR% form. The URL, token and broker accept the same environment
// references. Durations use time.ParseDuration syntax.
package config
