// Package logging builds the process logger: human-readable console output
// on stderr, plus a rotated JSON diagnostic file when debug is enabled.
package logging

import (
	"io"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures New.
type Options struct {
	Debug bool

	// File rotation, used only when Debug is set.
	File        string
	MaxSizeMB   int
	BackupCount int
	MaxAgeDays  int

	// RotateInterval additionally rotates the file on a timer; 0 disables.
	RotateInterval time.Duration

	// Console defaults to os.Stderr.
	Console io.Writer
}

// New returns a logger and a cleanup func that flushes and closes the
// diagnostic file. The console core logs at info, or debug when Debug is set.
func New(o Options) (*zap.Logger, func()) {
	console := o.Console
	if console == nil {
		console = os.Stderr
	}

	level := zapcore.InfoLevel
	if o.Debug {
		level = zapcore.DebugLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(zapcore.AddSync(console)), level),
	}

	var rotator *lumberjack.Logger
	if o.Debug && o.File != "" {
		rotator = &lumberjack.Logger{
			Filename:   o.File,
			MaxSize:    o.MaxSizeMB,
			MaxBackups: o.BackupCount,
			MaxAge:     o.MaxAgeDays,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(rotator), zapcore.DebugLevel))
	}

	logger := zap.New(zapcore.NewTee(cores...))

	stopRotation := func() {}
	if rotator != nil && o.RotateInterval > 0 {
		ticker := time.NewTicker(o.RotateInterval)
		stop := make(chan struct{})
		done := make(chan struct{})
		go func() {
			defer close(done)
			rotateOn(ticker.C, stop, rotator, logger)
		}()
		stopRotation = func() {
			ticker.Stop()
			close(stop)
			<-done
		}
	}

	cleanup := func() {
		stopRotation()
		_ = logger.Sync()
		if rotator != nil {
			_ = rotator.Close()
		}
	}
	return logger, cleanup
}

type rotater interface {
	Rotate() error
}

// rotateOn rotates r on every tick until stop is closed.
func rotateOn(tick <-chan time.Time, stop <-chan struct{}, r rotater, logger *zap.Logger) {
	for {
		select {
		case <-stop:
			return
		case <-tick:
			if err := r.Rotate(); err != nil {
				logger.Warn("diagnostic log rotation failed", zap.Error(err))
			}
		}
	}
}
