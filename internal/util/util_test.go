package util

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"pairlab/internal/config"
)

func TestBackoffDo(t *testing.T) {
	attempts := 0
	targetAttempts := 3

	err := Backoff{MaxAttempts: 5}.Do(context.Background(), "test", func(context.Context) error {
		attempts++
		if attempts < targetAttempts {
			return errors.New("transient error")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("Do returned unexpected error: %v", err)
	}
	if attempts != targetAttempts {
		t.Errorf("Do called fn %d times, want %d", attempts, targetAttempts)
	}
}

func TestBackoffAllFail(t *testing.T) {
	attempts := 0
	maxAttempts := 3

	err := Backoff{MaxAttempts: maxAttempts}.Do(context.Background(), "test", func(context.Context) error {
		attempts++
		return errors.New("persistent error")
	})

	if err == nil {
		t.Fatal("Do should return error when all attempts fail")
	}
	if attempts != maxAttempts {
		t.Errorf("Do called fn %d times, want %d", attempts, maxAttempts)
	}
}

func TestBackoffPermanent(t *testing.T) {
	sentinel := errors.New("bad request")
	attempts := 0

	err := Backoff{MaxAttempts: 5}.Do(context.Background(), "test", func(context.Context) error {
		attempts++
		return Permanent(sentinel)
	})

	if !errors.Is(err, sentinel) {
		t.Fatalf("Do error = %v, want %v", err, sentinel)
	}
	if attempts != 1 {
		t.Errorf("Do called fn %d times after a permanent error, want 1", attempts)
	}
	if Permanent(nil) != nil {
		t.Error("Permanent(nil) should be nil")
	}
}

func TestBackoffCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Backoff{MaxAttempts: 3, BaseDelay: time.Hour}.Do(ctx, "test", func(context.Context) error {
		return errors.New("transient error")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Do error = %v, want context.Canceled", err)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"bogus": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, config.Logging{Level: "info", Format: "text"}).Info("hello", "k", 1)
	if !strings.Contains(buf.String(), "msg=hello") {
		t.Errorf("text handler output = %q", buf.String())
	}

	buf.Reset()
	newLogger(&buf, config.Logging{Level: "warn"}).Info("dropped")
	if buf.Len() != 0 {
		t.Errorf("info record passed a warn-level logger: %q", buf.String())
	}

	newLogger(&buf, config.Logging{Level: "debug"}).Debug("kept")
	if !strings.Contains(buf.String(), `"msg":"kept"`) {
		t.Errorf("json handler output = %q", buf.String())
	}
}

func TestNewLoggerFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pairlab.log")
	NewLogger(config.Logging{Level: "info", File: path, MaxSizeMB: 1}).Info("to file")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "to file") {
		t.Errorf("log file = %q", data)
	}
}
