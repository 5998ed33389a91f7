package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/samvad-hq/samvad-graph/internal/config"
)

func TestZapLoggerWritesJSONObject(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(&config.Config{AppName: "graphctl", Env: "test", LogLevel: "debug"}, &buf)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	log.InfoObj("object fetched", "graph_call", map[string]any{"object_id": "42"})

	var line map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("log line is not JSON: %v (%s)", err, buf.String())
	}
	if line["msg"] != "object fetched" {
		t.Fatalf("unexpected msg: %v", line["msg"])
	}
	if line["app"] != "graphctl" {
		t.Fatalf("expected app field, got %v", line["app"])
	}
	call, ok := line["graph_call"].(map[string]any)
	if !ok || call["object_id"] != "42" {
		t.Fatalf("expected graph_call object, got %v", line["graph_call"])
	}
	if _, ok := line["ts"]; !ok {
		t.Fatalf("expected ts key")
	}
}

func TestZapLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(&config.Config{LogLevel: "warn"}, &buf)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	log.InfoObj("hidden", "k", 1)
	log.DebugObj("hidden", "k", 1)
	log.WarnObj("shown", "k", 1)

	if strings.Contains(buf.String(), "hidden") {
		t.Fatalf("info/debug should be filtered at warn level: %s", buf.String())
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Fatalf("warn line missing: %s", buf.String())
	}
}

func TestEnsureNil(t *testing.T) {
	if _, ok := Ensure(nil).(NopLogger); !ok {
		t.Fatalf("expected NopLogger for nil")
	}
}
