package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewWithWriterLevels(t *testing.T) {
	var buf bytes.Buffer
	logg, err := NewWithWriter(&buf, "warn", "text")
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	logg.Info("hidden")
	logg.Warn("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info must be suppressed at warn level: %q", out)
	}
	if !strings.Contains(out, "visible") {
		t.Fatalf("warn must be emitted: %q", out)
	}
}

func TestNewWithWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	logg, err := NewWithWriter(&buf, "info", "json")
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	logg.Info("hello", "key", "value")
	if !strings.Contains(buf.String(), `"key":"value"`) {
		t.Fatalf("expected JSON output, got %q", buf.String())
	}
}

func TestNewRejectsUnknownSettings(t *testing.T) {
	if _, err := New("loud", "text"); err == nil {
		t.Fatal("unknown level must error")
	}
	if _, err := New("info", "xml"); err == nil {
		t.Fatal("unknown format must error")
	}
}
