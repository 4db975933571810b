package logging

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

// setupTestLogger configures a logger with a custom writer for tests
func setupTestLogger(output *bytes.Buffer, level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	SetLoggerForTest(zerolog.New(output).With().Timestamp().Logger().Level(lvl))
}

func TestInfoLogging(t *testing.T) {
	var buf bytes.Buffer
	setupTestLogger(&buf, "info")

	Info("invitation generated", "template", "image", "bytes", 42, "cached", true)

	out := buf.String()
	if !strings.Contains(out, "invitation generated") {
		t.Error("Expected log message not found in output")
	}
	if !strings.Contains(out, `"bytes":42`) || !strings.Contains(out, `"cached":true`) {
		t.Error("Expected key-value pairs not found in output")
	}
}

func TestWarnLogging(t *testing.T) {
	var buf bytes.Buffer
	setupTestLogger(&buf, "warn")

	Info("hidden")
	Warn("placement branches coincide", "template", "pdf")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info message must be filtered at warn level")
	}
	if !strings.Contains(out, "placement branches coincide") || !strings.Contains(out, `"template":"pdf"`) {
		t.Error("Warn log output missing expected content")
	}
}

func TestErrorLoggingFormatsErrors(t *testing.T) {
	var buf bytes.Buffer
	setupTestLogger(&buf, "error")

	Error("generation failed", "error", errTest("fetch refused"), "dangling")

	out := buf.String()
	if !strings.Contains(out, `"error":"fetch refused"`) {
		t.Errorf("expected error value rendered as string, got %s", out)
	}
	if !strings.Contains(out, `"dangling":true`) {
		t.Errorf("expected dangling key to be kept, got %s", out)
	}
}

func TestSetLogLevel(t *testing.T) {
	var buf bytes.Buffer
	setupTestLogger(&buf, "warn")

	SetLogLevel("info")
	Info("should be visible")

	if !strings.Contains(buf.String(), "should be visible") {
		t.Error("Expected info log after SetLogLevel not found")
	}
}

func TestInitLoggerAndSetLogLevelFallback(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "invitegen.log")
	InitLogger(logFile, 1, 1, 1, false, "invalid")
	SetLogLevel("invalid")
	Info("hello", "k", "v")
	Warn("warn")
	Error("error")
}

type errTest string

func (e errTest) Error() string { return string(e) }
