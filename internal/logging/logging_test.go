package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"gopkg.in/natefinch/lumberjack.v2"
)

func TestNewConsoleOnly(t *testing.T) {
	var buf bytes.Buffer
	logger, cleanup := New(Options{Console: &buf, File: filepath.Join(t.TempDir(), "unused.log")})

	logger.Debug("hidden")
	logger.Info("state changed", zap.String("status", "Busy"))
	cleanup()

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("debug line written without Debug")
	}
	if !strings.Contains(out, "state changed") || !strings.Contains(out, "Busy") {
		t.Errorf("console output = %q", out)
	}
}

func TestNewDebugWritesRotatedJSONFile(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "presence.log")
	logger, cleanup := New(Options{Debug: true, File: path, MaxSizeMB: 1, BackupCount: 1, Console: &buf})

	logger.Debug("polled", zap.Int("lines", 3))
	cleanup()

	if !strings.Contains(buf.String(), "polled") {
		t.Error("debug line missing from console")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := strings.TrimSpace(string(data))
	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("file line is not JSON: %q: %v", line, err)
	}
	if entry["msg"] != "polled" || entry["lines"] != float64(3) {
		t.Errorf("entry = %v", entry)
	}
}

func TestNewDebugWithoutFile(t *testing.T) {
	var buf bytes.Buffer
	logger, cleanup := New(Options{Debug: true, Console: &buf})
	logger.Debug("only console")
	cleanup()

	if !strings.Contains(buf.String(), "only console") {
		t.Error("debug line missing from console")
	}
}

type countingRotater struct{ n int }

func (r *countingRotater) Rotate() error {
	r.n++
	return nil
}

func TestRotateOnTick(t *testing.T) {
	tick := make(chan time.Time)
	stop := make(chan struct{})
	done := make(chan struct{})
	r := &countingRotater{}
	go func() {
		defer close(done)
		rotateOn(tick, stop, r, zap.NewNop())
	}()

	tick <- time.Now()
	tick <- time.Now()
	close(stop)
	<-done

	if r.n != 2 {
		t.Errorf("rotations = %d, want 2", r.n)
	}
}

func TestRotateOnRotatesFile(t *testing.T) {
	dir := t.TempDir()
	rotator := &lumberjack.Logger{Filename: filepath.Join(dir, "presence.log"), MaxBackups: 3}
	defer rotator.Close()

	if _, err := rotator.Write([]byte("first\n")); err != nil {
		t.Fatal(err)
	}

	tick := make(chan time.Time)
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		rotateOn(tick, stop, rotator, zap.NewNop())
	}()
	tick <- time.Now()
	close(stop)
	<-done

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("files after rotation = %v, want current + one backup", names)
	}
}

func TestNewWithRotateIntervalCleansUp(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "presence.log")
	logger, cleanup := New(Options{Debug: true, File: path, RotateInterval: time.Hour, Console: &buf})
	logger.Info("started")
	cleanup()

	if _, err := os.Stat(path); err != nil {
		t.Errorf("log file: %v", err)
	}
}
