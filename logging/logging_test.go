package logging

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/leeforge/sncicd-plugin-activate/request"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Director != "" {
		t.Errorf("expected empty Director, got '%s'", cfg.Director)
	}
	if cfg.Level != "info" {
		t.Errorf("expected Level 'info', got '%s'", cfg.Level)
	}
	if cfg.Format != "console" {
		t.Errorf("expected Format 'console', got '%s'", cfg.Format)
	}
	if cfg.Quiet {
		t.Error("expected Quiet to be false")
	}
}

func TestConfigTransportLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"DEBUG", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"unknown", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			cfg := Config{Level: tt.level}
			if got := cfg.TransportLevel(); got != tt.expected {
				t.Errorf("TransportLevel() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestConfigZapEncodeLevel(t *testing.T) {
	for _, name := range []string{
		"LowercaseLevelEncoder",
		"LowercaseColorLevelEncoder",
		"CapitalLevelEncoder",
		"CapitalColorLevelEncoder",
		"unknown",
	} {
		t.Run(name, func(t *testing.T) {
			cfg := Config{EncodeLevel: name}
			if cfg.ZapEncodeLevel() == nil {
				t.Error("ZapEncodeLevel() returned nil")
			}
		})
	}
}

func TestConfigApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.applyDefaults()

	if cfg.Format != "console" {
		t.Errorf("expected Format 'console', got '%s'", cfg.Format)
	}
	if cfg.MaxSize != 100 {
		t.Errorf("expected MaxSize 100, got %d", cfg.MaxSize)
	}
	if cfg.TimeFormat == "" {
		t.Error("expected TimeFormat to be set")
	}
}

func TestNewLoggerWritesToTerminal(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Format = "json"

	logger := NewLogger(cfg, WithTerminal(&buf))
	logger.Info("activating plugin", zap.String("plugin_id", "com.snc.x"))
	logger.Debug("hidden")

	output := buf.String()
	if !strings.Contains(output, `"message":"activating plugin"`) {
		t.Errorf("expected message field, got: %s", output)
	}
	if !strings.Contains(output, `"plugin_id":"com.snc.x"`) {
		t.Errorf("expected plugin_id field, got: %s", output)
	}
	if strings.Contains(output, "hidden") {
		t.Errorf("debug entry should be filtered at info level, got: %s", output)
	}
}

func TestNewLoggerQuiet(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Quiet = true

	logger := NewLogger(cfg, WithTerminal(&buf))
	logger.Error("nothing")

	if buf.Len() != 0 {
		t.Errorf("quiet logger wrote to terminal: %s", buf.String())
	}
}

func TestNewLoggerWritesLevelFiles(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Director = dir
	cfg.Quiet = true

	logger := NewLogger(cfg)
	logger.Info("info line")
	logger.Warn("warn line")
	_ = logger.Sync()
	defer CloseAllWriters()

	date := time.Now().Format("2006-01-02")
	info, err := os.ReadFile(filepath.Join(dir, date, "info.log"))
	if err != nil {
		t.Fatalf("read info.log: %v", err)
	}
	if !strings.Contains(string(info), "info line") || strings.Contains(string(info), "warn line") {
		t.Errorf("info.log should hold only info entries, got: %s", info)
	}

	warn, err := os.ReadFile(filepath.Join(dir, date, "warn.log"))
	if err != nil {
		t.Fatalf("read warn.log: %v", err)
	}
	if !strings.Contains(string(warn), "warn line") {
		t.Errorf("warn.log should hold the warn entry, got: %s", warn)
	}
}

func TestLoggerChildren(t *testing.T) {
	logger := NewLogger(DefaultConfig(), WithTerminal(&bytes.Buffer{}))

	if logger.With(zap.String("component", "test")) == logger {
		t.Error("With should return a new logger instance")
	}
	if logger.Named("engine") == nil {
		t.Error("Named returned nil")
	}
	if logger.WithError(os.ErrNotExist) == nil {
		t.Error("WithError returned nil")
	}
	if logger.Zap() == nil {
		t.Error("Zap() returned nil")
	}
}

func TestWithContextAddsCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Format = "json"
	logger := NewLogger(cfg, WithTerminal(&buf))

	ctx := request.WithCorrelationID(context.Background(), "corr-123")
	WithContext(logger, ctx).Info("polling")

	if !strings.Contains(buf.String(), `"correlation_id":"corr-123"`) {
		t.Errorf("expected correlation_id field, got: %s", buf.String())
	}
}

func TestWithContextWithoutCorrelationID(t *testing.T) {
	logger := NewNop()

	if WithContext(logger, context.Background()) != logger {
		t.Error("WithContext without correlation id should return the original logger")
	}
	//nolint:staticcheck
	if WithContext(logger, nil) != logger {
		t.Error("WithContext(nil) should return the original logger")
	}
}

func TestContextLoggerStorage(t *testing.T) {
	logger := NewNop()
	ctx := ToContext(context.Background(), logger)

	if FromContext(ctx).Zap() != logger.Zap() {
		t.Error("FromContext should return the stored logger")
	}
	if FromContext(context.Background()) == nil {
		t.Error("FromContext should fall back to the global logger")
	}
}

func TestGlobalLogger(t *testing.T) {
	if Global() == nil {
		t.Fatal("Global() returned nil")
	}

	var buf bytes.Buffer
	l := Init(DefaultConfig(), WithTerminal(&buf))
	defer SetGlobal(nil)

	if Global().Zap() != l.Zap() {
		t.Error("Init should replace the global logger")
	}

	FromContext(context.Background()).Info("global info")
	if !strings.Contains(buf.String(), "global info") {
		t.Errorf("FromContext without a stored logger should use the global logger, got: %s", buf.String())
	}
	if err := Sync(); err != nil {
		t.Logf("Sync: %v", err)
	}
}

func TestLevelWriterWriteAndClose(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Director = t.TempDir()

	writer := newLevelWriter(cfg, "info")
	writer.now = func() time.Time { return time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC) }

	n, err := writer.Write([]byte("test log line\n"))
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if n == 0 {
		t.Error("Write should return bytes written")
	}
	if err := writer.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(cfg.Director, "2024-03-01", "info.log")); err != nil {
		t.Errorf("expected dated log file: %v", err)
	}
}

func TestCloseAllWriters(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Director = t.TempDir()
	_, _ = newLevelWriterWithRegistry(cfg, "error").Write([]byte("x\n"))

	if err := CloseAllWriters(); err != nil {
		t.Errorf("CloseAllWriters returned error: %v", err)
	}
}

func TestCusTimeEncoder(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Prefix = "[SNCICD] "
	cfg.TimeFormat = "2006-01-02"
	cfg.Format = "console"

	core := zapcore.NewCore(GetEncoder(cfg), zapcore.AddSync(&buf), zapcore.InfoLevel)
	zap.New(core).Info("x")

	if !strings.HasPrefix(buf.String(), "[SNCICD] ") {
		t.Errorf("expected prefixed timestamp, got: %s", buf.String())
	}
}
