package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Level != LevelWarn {
		t.Errorf("Expected default level %s, got %s", LevelWarn, cfg.Level)
	}
	if cfg.Format != FormatText {
		t.Errorf("Expected default format %s, got %s", FormatText, cfg.Format)
	}
	if cfg.Output != "stderr" {
		t.Errorf("Expected default output 'stderr', got '%s'", cfg.Output)
	}
	if cfg.AddSource {
		t.Error("Expected AddSource to be false by default")
	}
}

func TestNewLogger(t *testing.T) {
	t.Run("stdout text logger", func(t *testing.T) {
		logger, err := New(Config{Level: LevelInfo, Format: FormatText, Output: "stdout"})
		if err != nil {
			t.Fatalf("Failed to create logger: %v", err)
		}
		if logger.config.Level != LevelInfo {
			t.Errorf("Expected level %s, got %s", LevelInfo, logger.config.Level)
		}
	})

	t.Run("file logger", func(t *testing.T) {
		logFile := filepath.Join(t.TempDir(), "logs", "rangescan.log")

		logger, err := New(Config{Level: LevelDebug, Format: FormatText, Output: logFile})
		if err != nil {
			t.Fatalf("Failed to create file logger: %v", err)
		}
		logger.Info("hello")

		if _, err := os.Stat(logFile); os.IsNotExist(err) {
			t.Error("Log file should have been created")
		}
	})

	t.Run("invalid directory for file logger", func(t *testing.T) {
		_, err := New(Config{Level: LevelInfo, Format: FormatText, Output: "/proc/invalid/test.log"})
		if err == nil {
			t.Error("Expected error for invalid log file path")
		}
	})
}

func TestLevelFiltering(t *testing.T) {
	tests := []struct {
		name      string
		level     LogLevel
		wantDebug bool
		wantInfo  bool
	}{
		{"debug", LevelDebug, true, true},
		{"info", LevelInfo, false, true},
		{"warn", LevelWarn, false, false},
		{"unknown defaults to info", LogLevel("loud"), false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewWithWriter(Config{Level: tt.level, Format: FormatText}, &buf)

			logger.Debug("debug message")
			logger.Info("info message")

			out := buf.String()
			if got := strings.Contains(out, "debug message"); got != tt.wantDebug {
				t.Errorf("debug logged = %v, want %v", got, tt.wantDebug)
			}
			if got := strings.Contains(out, "info message"); got != tt.wantInfo {
				t.Errorf("info logged = %v, want %v", got, tt.wantInfo)
			}
		})
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(Config{Level: LevelInfo, Format: FormatJSON}, &buf)

	logger.WithComponent("collector").InfoScan("open port", "10.0.0.5:22", "rtt_ms", 3)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Expected JSON output, got %q: %v", buf.String(), err)
	}
	if entry["component"] != "collector" {
		t.Errorf("Expected component collector, got %v", entry["component"])
	}
	if entry["target"] != "10.0.0.5:22" {
		t.Errorf("Expected target field, got %v", entry["target"])
	}
}

func TestLoggerWithMethods(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(Config{Level: LevelDebug, Format: FormatText}, &buf)

	t.Run("WithContext carries scan id", func(t *testing.T) {
		buf.Reset()
		ctx := ContextWithScanID(context.Background(), "scan-123")
		logger.WithContext(ctx).Info("started")
		if !strings.Contains(buf.String(), "scan_id=scan-123") {
			t.Errorf("Expected scan_id in output, got %q", buf.String())
		}
	})

	t.Run("WithContext without scan id", func(t *testing.T) {
		ctxLogger := logger.WithContext(context.Background())
		if ctxLogger == logger {
			t.Error("WithContext should return a new logger instance")
		}
	})

	t.Run("WithError", func(t *testing.T) {
		buf.Reset()
		logger.WithError(fmt.Errorf("boom")).Warn("failed")
		if !strings.Contains(buf.String(), "error=boom") {
			t.Errorf("Expected error field, got %q", buf.String())
		}
	})

	t.Run("DebugProbe", func(t *testing.T) {
		buf.Reset()
		logger.DebugProbe("probe closed", "10.0.0.1:80", "reason", "refused")
		out := buf.String()
		if !strings.Contains(out, "component=probe") || !strings.Contains(out, "target=10.0.0.1:80") {
			t.Errorf("Unexpected probe log %q", out)
		}
	})

	t.Run("ErrorScan", func(t *testing.T) {
		buf.Reset()
		logger.ErrorScan("intake closed", "10.0.0.1:80", fmt.Errorf("closed"))
		if !strings.Contains(buf.String(), "level=ERROR") {
			t.Errorf("Expected error level, got %q", buf.String())
		}
	})
}

func TestDefaultLogger(t *testing.T) {
	original := Default()
	defer SetDefault(original)

	var buf bytes.Buffer
	SetDefault(NewWithWriter(Config{Level: LevelDebug, Format: FormatText}, &buf))

	Debug("d")
	Info("i")
	Warn("w")
	Error("e")
	InfoScan("scan", "t")
	DebugProbe("probe", "t")

	for _, want := range []string{"msg=d", "msg=i", "msg=w", "msg=e", "msg=scan", "msg=probe"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("Expected %q in output", want)
		}
	}
}
