package logx

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
)

// setupTestLogger redirects output into a buffer for the duration of the test.
func setupTestLogger(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(nil) })
	return &buf
}

func TestNewLogger(t *testing.T) {
	logger := NewLogger("gateway")

	if logger.Component() != "gateway" {
		t.Errorf("Expected component 'gateway', got '%s'", logger.Component())
	}
}

func TestLogFormat(t *testing.T) {
	buf := setupTestLogger(t)

	logger := NewLogger("workflow")
	logger.Info("Test message with %s", "formatting")

	output := buf.String()

	if !strings.Contains(output, "[workflow]") {
		t.Errorf("Expected component in output, got: %s", output)
	}
	if !strings.Contains(output, "INFO") {
		t.Errorf("Expected log level in output, got: %s", output)
	}
	if !strings.Contains(output, "Test message with formatting") {
		t.Errorf("Expected formatted message in output, got: %s", output)
	}
	if !strings.Contains(output, "T") || !strings.Contains(output, "Z") {
		t.Errorf("Expected ISO timestamp in output, got: %s", output)
	}
}

func TestLogLevels(t *testing.T) {
	buf := setupTestLogger(t)
	SetDebugConfig(true, nil)
	defer SetDebugConfig(false, nil)

	logger := NewLogger("levels")

	tests := []struct {
		logFunc  func(string, ...any)
		expected string
	}{
		{logger.Debug, "DEBUG"},
		{logger.Info, "INFO"},
		{logger.Warn, "WARN"},
		{logger.Error, "ERROR"},
	}

	for _, tt := range tests {
		buf.Reset()
		tt.logFunc("hello")
		if !strings.Contains(buf.String(), tt.expected) {
			t.Errorf("Expected %s in output, got: %s", tt.expected, buf.String())
		}
	}
}

func TestDebugDisabledByDefault(t *testing.T) {
	buf := setupTestLogger(t)
	SetDebugConfig(false, nil)

	NewLogger("quiet").Debug("should not appear")
	Debug(context.Background(), "quiet", "nor this")

	if buf.Len() != 0 {
		t.Errorf("Expected no output with debug disabled, got: %s", buf.String())
	}
}

func TestDebugDomainFiltering(t *testing.T) {
	buf := setupTestLogger(t)
	SetDebugConfig(true, []string{"gateway"})
	defer SetDebugConfig(false, nil)

	ctx := context.WithValue(context.Background(), ComponentKey{}, "webui")
	Debug(ctx, "gateway", "score raw=%q", "82")
	Debug(ctx, "workflow", "filtered out")

	output := buf.String()
	if !strings.Contains(output, "[gateway] score raw=\"82\"") {
		t.Errorf("Expected gateway debug line, got: %s", output)
	}
	if !strings.Contains(output, "[webui]") {
		t.Errorf("Expected component from context, got: %s", output)
	}
	if strings.Contains(output, "filtered out") {
		t.Errorf("Expected workflow domain to be filtered, got: %s", output)
	}
}

func TestLogBufferFiltering(t *testing.T) {
	setupTestLogger(t)
	start := time.Now().UTC().Add(-time.Second)

	NewLogger("buffer-test").Info("buffered line")

	entries := GetRecentLogEntries("buffer-test", start)
	if len(entries) == 0 {
		t.Fatal("Expected at least one buffered entry")
	}
	last := entries[len(entries)-1]
	if last.Message != "buffered line" || last.Level != string(LevelInfo) {
		t.Errorf("Unexpected entry: %+v", last)
	}

	if got := GetRecentLogEntries("buffer-test", time.Now().Add(time.Hour)); len(got) != 0 {
		t.Errorf("Expected no entries in the future, got %d", len(got))
	}
}

func TestLogBufferTrimsToMaxSize(t *testing.T) {
	buf := &InMemoryLogBuffer{maxSize: 3}
	for i := 0; i < 5; i++ {
		buf.AddLogEntry(&LogEntry{Message: string(rune('a' + i))})
	}
	entries := buf.GetLogEntries("", time.Time{})
	if len(entries) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(entries))
	}
	if entries[0].Message != "c" {
		t.Errorf("Expected oldest retained entry 'c', got %q", entries[0].Message)
	}
}

func TestSystemLogger(t *testing.T) {
	buf := setupTestLogger(t)

	Infof("Web UI available at http://%s:%d", "localhost", 8080)
	Warnf("-projectdir not set; using %s", ".")

	output := buf.String()
	if !strings.Contains(output, "[system] INFO: Web UI available at http://localhost:8080") {
		t.Errorf("Expected system info line, got: %s", output)
	}
	if !strings.Contains(output, "[system] WARN: -projectdir not set; using .") {
		t.Errorf("Expected system warn line, got: %s", output)
	}
}
