package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"regexp"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/sweeney/teams-presence-sensor/internal/config"
	"github.com/sweeney/teams-presence-sensor/internal/homeassistant"
	"github.com/sweeney/teams-presence-sensor/internal/logging"
	"github.com/sweeney/teams-presence-sensor/internal/monitor"
	"github.com/sweeney/teams-presence-sensor/internal/mqtt"
	"github.com/sweeney/teams-presence-sensor/internal/publish"
	"github.com/sweeney/teams-presence-sensor/internal/status"
	"github.com/sweeney/teams-presence-sensor/internal/tail"
	"github.com/sweeney/teams-presence-sensor/internal/web"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	configPath string
	printState bool
	debug      bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := pflag.NewFlagSet("presence-sensor", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.configPath, "config", config.DefaultConfigPath, "path to the TOML config file")
	fs.BoolVar(&o.printState, "print-state", false, "print the presence state implied by the log and exit")
	fs.BoolVar(&o.debug, "debug", false, "enable debug logging and the diagnostic log file")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if fs.NArg() > 0 {
		return o, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return o, nil
}

// run returns the process exit code: 0 on clean shutdown or --help,
// 1 on any startup or fatal runtime failure.
func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "presence-sensor: %v\n", err)
		return 1
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "presence-sensor: %v\n", err)
		return 1
	}
	if opts.debug {
		cfg.Debug.Enabled = true
	}
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(stderr, "presence-sensor: invalid config %s: %v\n", opts.configPath, err)
		return 1
	}

	logger, cleanup := logging.New(logging.Options{
		Debug:          cfg.Debug.Enabled,
		File:           cfg.Debug.LogFile,
		MaxSizeMB:      cfg.Debug.MaxSizeMB,
		BackupCount:    cfg.Debug.BackupCount,
		MaxAgeDays:     cfg.Debug.MaxAgeDays,
		RotateInterval: cfg.Debug.RotateInterval,
		Console:        stderr,
	})
	defer cleanup()

	locate, err := newLocator(cfg.Log)
	if err != nil {
		logger.Error("invalid log source", zap.Error(err))
		return 1
	}

	if opts.printState {
		if err := printState(stdout, tail.New(locate, tail.Position{})); err != nil {
			logger.Error("print state failed", zap.Error(err))
			return 1
		}
		return 0
	}

	if err := serve(cfg, locate, logger); err != nil {
		logger.Error("fatal", zap.Error(err))
		return 1
	}
	return 0
}

// newLocator selects a fixed file or the newest matching file in a folder.
func newLocator(c config.LogConfig) (tail.Locator, error) {
	if c.Path != "" {
		return tail.FixedPath(c.Path), nil
	}
	var pattern *regexp.Regexp
	if c.Pattern != "" {
		re, err := regexp.Compile(c.Pattern)
		if err != nil {
			return nil, fmt.Errorf("log.pattern: %w", err)
		}
		pattern = re
	}
	return tail.LatestIn(c.Folder, pattern), nil
}

func printState(w io.Writer, src tail.Source) error {
	state, ok, err := monitor.Scan(src)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(w, "status: Unknown (no presence line found)")
		return nil
	}
	fmt.Fprintf(w, "status: %s, activity: %s\n", state.Status, state.Activity)
	return nil
}

func serve(cfg config.Config, locate tail.Locator, logger *zap.Logger) error {
	startTime := time.Now()

	var checkpoint *tail.Checkpoint
	var pos tail.Position
	if cfg.Log.StateFile != "" {
		checkpoint = tail.NewCheckpoint(cfg.Log.StateFile)
		loaded, err := checkpoint.Load()
		if err != nil {
			logger.Warn("ignoring checkpoint", zap.String("file", checkpoint.Path()), zap.Error(err))
		} else {
			pos = loaded
		}
	}
	tailer := tail.New(locate, pos)

	client, err := homeassistant.NewClient(cfg.HomeAssistant.URL, cfg.HomeAssistant.Token, cfg.HomeAssistant.Timeout)
	if err != nil {
		return fmt.Errorf("home assistant client: %w", err)
	}
	ha := publish.NewHomeAssistant(client, publish.HomeAssistantOptions{
		Entities: publish.Entities{
			StatusID:     cfg.Entities.Status,
			StatusName:   cfg.Entities.StatusName,
			ActivityID:   cfg.Entities.Activity,
			ActivityName: cfg.Entities.ActivityName,
		},
		Language: cfg.Language,
		Icons:    cfg.Icons,
		Attempts: cfg.HomeAssistant.RetryAttempts,
		Backoff: publish.Backoff{
			Initial:    cfg.HomeAssistant.RetryBackoff,
			Max:        cfg.HomeAssistant.RetryBackoffMax,
			Multiplier: 2,
		},
		Logger: logger.Named("publish"),
	})

	mopts := monitor.Options{
		Source:           tailer,
		Publisher:        ha,
		Checkpoint:       checkpoint,
		UnavailableLimit: cfg.Log.UnavailableLimit,
		Logger:           logger.Named("monitor"),
	}

	if cfg.MQTT.Broker != "" {
		broker, err := mqtt.NewRealPublisher(mqtt.Options{
			Broker:      cfg.MQTT.Broker,
			ClientID:    cfg.MQTT.ClientID,
			TopicPrefix: cfg.MQTT.TopicPrefix,
			BufferSize:  cfg.MQTT.BufferSize,
			Logger:      logger,
		})
		if err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
		defer broker.Close()
		mopts.Publisher = publish.Multi{ha, broker}
		mopts.System = broker
		mopts.Connection = broker
		mopts.Heartbeat = cfg.MQTT.Heartbeat
	}

	tracker := status.NewTracker(startTime, statusConfig(cfg))
	mopts.Status = tracker

	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil {
				logger.Warn("status page stopped", zap.String("addr", cfg.HTTP.Addr), zap.Error(err))
			}
		}()
		logger.Info("status page listening", zap.String("addr", cfg.HTTP.Addr))
	}

	logger.Info("watching Teams log",
		zap.String("source", cfg.LogSource()),
		zap.Duration("poll", cfg.Log.PollInterval),
		zap.String("home_assistant", cfg.HomeAssistant.URL),
		zap.String("status_entity", cfg.Entities.Status),
		zap.String("activity_entity", cfg.Entities.Activity))

	ticker := time.NewTicker(cfg.Log.PollInterval)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	return monitor.New(mopts).Run(ticker.C, sigCh)
}

func statusConfig(cfg config.Config) status.Config {
	sc := status.Config{
		LogSource:     cfg.LogSource(),
		PollInterval:  cfg.Log.PollInterval,
		HomeAssistant: cfg.HomeAssistant.URL,
		StatusEntity:  cfg.Entities.Status,
		Broker:        cfg.MQTT.Broker,
		HTTPAddr:      cfg.HTTP.Addr,
	}
	if cfg.MQTT.Broker != "" {
		sc.Heartbeat = cfg.MQTT.Heartbeat
	}
	return sc
}
