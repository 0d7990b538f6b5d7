package debug

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLogger(t *testing.T) {
	t.Run("BasicLogging", func(t *testing.T) {
		var buf bytes.Buffer
		logger := New(&buf, "TEST", FlagLevel|FlagPrefix)

		logger.Info("Hello %s", "World")

		output := buf.String()
		if !strings.Contains(output, "[INFO]") {
			t.Error("Missing log level")
		}
		if !strings.Contains(output, "[TEST]") {
			t.Error("Missing prefix")
		}
		if !strings.Contains(output, "Hello World") {
			t.Error("Missing message")
		}
		if !strings.HasSuffix(output, "\n") {
			t.Error("Missing trailing newline")
		}
	})

	t.Run("LogLevels", func(t *testing.T) {
		var buf bytes.Buffer
		logger := New(&buf, "", FlagLevel)
		logger.SetLevel(LogLevelWarn)

		logger.Debug("debug message")
		logger.Info("info message")
		logger.Warn("warn message")
		logger.Error("error message")

		output := buf.String()
		if strings.Contains(output, "debug message") {
			t.Error("Debug message should not be logged")
		}
		if strings.Contains(output, "info message") {
			t.Error("Info message should not be logged")
		}
		if !strings.Contains(output, "warn message") {
			t.Error("Warn message should be logged")
		}
		if !strings.Contains(output, "error message") {
			t.Error("Error message should be logged")
		}
	})

	t.Run("Off", func(t *testing.T) {
		var buf bytes.Buffer
		logger := New(&buf, "", DefaultFlags)
		logger.SetLevel(LogLevelOff)

		logger.Error("should not appear")

		if buf.Len() > 0 {
			t.Error("Logger at LogLevelOff should not write")
		}
		if logger.Enabled(LogLevelError) {
			t.Error("Enabled should be false at LogLevelOff")
		}
	})

	t.Run("FileInfo", func(t *testing.T) {
		var buf bytes.Buffer
		logger := New(&buf, "", FlagShortFile|FlagLevel)

		logger.Info("test")

		output := buf.String()
		if !strings.Contains(output, "logger_test.go:") {
			t.Errorf("Missing caller file info in output: %s", output)
		}
	})

	t.Run("ConditionalLogging", func(t *testing.T) {
		var buf bytes.Buffer
		SetOutput(&buf)
		SetLevel(LogLevelDebug)
		defer func() {
			SetOutput(os.Stderr)
			SetLevel(LogLevelInfo)
		}()

		DebugIf(true, "should appear")
		DebugIf(false, "should not appear")

		output := buf.String()
		if !strings.Contains(output, "should appear") {
			t.Error("Conditional true message missing")
		}
		if strings.Contains(output, "should not appear") {
			t.Error("Conditional false message should not appear")
		}
	})

	t.Run("FileLogger", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "logs", "synth.log")
		logger, closer, err := NewFileLogger(path, "file", FlagLevel)
		if err != nil {
			t.Fatalf("NewFileLogger: %v", err)
		}
		logger.Warn("written to disk")
		closer.Close()

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(data), "[WARN] written to disk") {
			t.Errorf("unexpected file contents: %q", data)
		}
	})
}

func TestLogLevel(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected string
	}{
		{LogLevelDebug, "DEBUG"},
		{LogLevelInfo, "INFO"},
		{LogLevelWarn, "WARN"},
		{LogLevelError, "ERROR"},
		{LogLevelOff, "OFF"},
		{LogLevel(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		if got := tt.level.String(); got != tt.expected {
			t.Errorf("LogLevel(%d).String() = %s, want %s", tt.level, got, tt.expected)
		}
	}
}

func TestParseLevel(t *testing.T) {
	for _, level := range []LogLevel{LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError, LogLevelOff} {
		got, err := ParseLevel(strings.ToLower(level.String()))
		if err != nil || got != level {
			t.Errorf("ParseLevel(%q) = %v, %v", level.String(), got, err)
		}
	}
	if _, err := ParseLevel("verbose"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestSetDefault(t *testing.T) {
	var buf bytes.Buffer
	prev := SetDefault(New(&buf, "SYNTH", FlagLevel))
	defer SetDefault(prev)

	SetLevel(LogLevelDebug)
	DebugIf(false, "hidden")
	DebugIf(true, "shown %d", 1)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("DebugIf(false) logged: %q", out)
	}
	if !strings.Contains(out, "shown 1") {
		t.Errorf("DebugIf(true) missing: %q", out)
	}
}
