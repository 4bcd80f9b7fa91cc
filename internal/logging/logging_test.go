package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestSetupWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sync.log")
	if err := Setup(Config{Level: "info", File: path}); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	Component("test").Info("hello", "key", "value")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file failed: %v", err)
	}
	line := string(data)
	if !strings.Contains(line, "hello") || !strings.Contains(line, "component=test") {
		t.Errorf("log line %q missing expected fields", line)
	}
}

func TestSetupBadLogFile(t *testing.T) {
	err := Setup(Config{File: filepath.Join(t.TempDir(), "missing", "sync.log")})
	if err == nil {
		t.Error("expected error for unwritable log file path")
	}
}
