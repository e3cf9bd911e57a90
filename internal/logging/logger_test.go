package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestConsoleFormatIncludesComponentAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "info", Format: "console", Output: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger = NewComponentLogger(logger, "worker")
	logger.Info("job claimed", String(FieldJobID, "abc"), Int("attempt", 2))

	line := buf.String()
	if !strings.Contains(line, "INFO worker: job claimed") {
		t.Fatalf("line = %q", line)
	}
	if !strings.Contains(line, "job_id=abc") || !strings.Contains(line, "attempt=2") {
		t.Fatalf("attrs missing from %q", line)
	}
}

func TestJSONFormatUsesStableKeys(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "info", Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Warn("slow stage", String(FieldStage, "transcribe"))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if record["msg"] != "slow stage" {
		t.Errorf("msg = %v", record["msg"])
	}
	if record["level"] != "warn" {
		t.Errorf("level = %v", record["level"])
	}
	if _, ok := record["ts"]; !ok {
		t.Error("ts key missing")
	}
	if record["stage"] != "transcribe" {
		t.Errorf("stage = %v", record["stage"])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "warn", Format: "console", Output: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Info("hidden")
	logger.Warn("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info record emitted at warn level: %q", out)
	}
	if !strings.Contains(out, "visible") {
		t.Fatalf("warn record suppressed: %q", out)
	}
}

func TestUnsupportedFormatRejected(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestErrorAttr(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Format: "console", Output: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Error("stage failed", Error(errors.New("boom")))
	if !strings.Contains(buf.String(), "error=boom") {
		t.Fatalf("line = %q", buf.String())
	}
}
