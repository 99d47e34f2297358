package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New("debug", "json", &buf)
	logger.Debug().Str("model", "heart.onnx").Msg("loaded")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON line, got %q: %v", buf.String(), err)
	}
	if entry["model"] != "heart.onnx" || entry["level"] != "debug" {
		t.Errorf("unexpected entry: %v", entry)
	}
	if _, ok := entry["time"]; !ok {
		t.Error("expected a timestamp")
	}
}

func TestNewLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := New("warn", "json", &buf)
	logger.Info().Msg("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered at warn, got %q", buf.String())
	}

	buf.Reset()
	fallback := New("nonsense", "json", &buf)
	fallback.Info().Msg("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Fatal("unknown level should fall back to info")
	}
}

func TestNewConsole(t *testing.T) {
	var buf bytes.Buffer
	logger := New("info", "console", &buf)
	logger.Info().Msg("ready")
	if strings.HasPrefix(strings.TrimSpace(buf.String()), "{") {
		t.Fatalf("console writer should not emit JSON: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "ready") {
		t.Fatalf("missing message: %q", buf.String())
	}
}
