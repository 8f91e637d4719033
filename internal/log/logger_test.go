package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

func TestSetup(t *testing.T) {
	// Reset logger for testing
	logger = nil
	once = *new(sync.Once)

	Setup("DEBUG", "json")
	if logger == nil {
		t.Fatal("Logger should not be nil")
	}
}

func TestNewLoggerLevelAndFormat(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, "warn", "text")

	l.Info("dropped")
	l.Warn("kept", "printer", "ZEBRA1")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Errorf("info record should be filtered at WARN level: %s", out)
	}
	if !strings.Contains(out, "msg=kept") || !strings.Contains(out, "printer=ZEBRA1") {
		t.Errorf("expected text record, got %s", out)
	}
}

func TestNewLoggerExtraWriter(t *testing.T) {
	var primary, file bytes.Buffer
	l := newLogger(&primary, "info", "json", &file)
	l.Info("both")

	if primary.Len() == 0 || file.Len() == 0 {
		t.Fatalf("expected record on both writers, primary=%q file=%q", primary.String(), file.String())
	}
	if primary.String() != file.String() {
		t.Errorf("writers diverged: %q vs %q", primary.String(), file.String())
	}
}

func TestContextHelpers(t *testing.T) {
	var buf bytes.Buffer
	h := slog.NewJSONHandler(&buf, nil)
	logger = slog.New(h)

	WithComponent("test-comp").Info("hello")

	var out map[string]any
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("Failed to decode JSON: %v", err)
	}

	if out["component"] != "test-comp" {
		t.Errorf("Expected component 'test-comp', got %v", out["component"])
	}
	if out["msg"] != "hello" {
		t.Errorf("Expected msg 'hello', got %v", out["msg"])
	}
}

func TestWithPrinter(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil)).With("component", "sender.raw")

	WithPrinter(base, "ZEBRA1").Info("printer msg")

	var out map[string]any
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("Failed to decode JSON: %v", err)
	}
	if out["printer"] != "ZEBRA1" {
		t.Errorf("Expected printer 'ZEBRA1', got %v", out["printer"])
	}
	if out["component"] != "sender.raw" {
		t.Errorf("Expected base component kept, got %v", out["component"])
	}
}

func TestWithPeer(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil)).With("component", "peer")

	WithPeer(base, "10.0.0.5:5246").Info("peer msg")

	var out map[string]any
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("Failed to decode JSON: %v", err)
	}
	if out["peer"] != "10.0.0.5:5246" {
		t.Errorf("Expected peer '10.0.0.5:5246', got %v", out["peer"])
	}
	if out["component"] != "peer" {
		t.Errorf("Expected base component kept, got %v", out["component"])
	}
}
