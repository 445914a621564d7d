package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestLoggerInit(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("failed to sync logger: %v", err)
		}
	}()

	if Get() == nil {
		t.Fatal("logger is nil after initialization")
	}
}

func TestLoggerWritesFieldsAndSource(t *testing.T) {
	var buf bytes.Buffer
	if err := InitWithWriter(&buf); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	ctx := context.Background()
	Get().Info(ctx, "tick processed", String("state", "attentive"), Int("streak", 2))

	out := buf.String()
	if !strings.Contains(out, "tick processed") {
		t.Fatalf("message missing from output: %q", out)
	}
	if !strings.Contains(out, "state=attentive") || !strings.Contains(out, "streak=2") {
		t.Fatalf("fields missing from output: %q", out)
	}
	if !strings.Contains(out, "logger_test.go") {
		t.Fatalf("caller source should point at the test file: %q", out)
	}
}

func TestLoggerNamedAndWith(t *testing.T) {
	var buf bytes.Buffer
	if err := InitWithWriter(&buf); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	l := Named("pipeline").With(String("run_id", "r-1"))
	l.Warn(context.Background(), "frame missed", Error(errors.New("timeout")))

	out := buf.String()
	for _, want := range []string{"component=pipeline", "run_id=r-1", "error=timeout", "level=WARN"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in %q", want, out)
		}
	}
}

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	if err := InitWithWriter(&buf); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer SetLevel(0)

	if err := SetLevelString("warn"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	Get().Info(context.Background(), "hidden")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered at warn level, got %q", buf.String())
	}

	if err := SetLevelString("verbose"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestLoggerJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := InitWithWriter(&buf); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	if err := SetFormat(FormatJSON); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer func() { _ = SetFormat(FormatText) }()

	Get().Info(context.Background(), "json line", Bool("face_present", true))

	var rec map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec); err != nil {
		t.Fatalf("output is not json: %v (%q)", err, buf.String())
	}
	if rec["msg"] != "json line" || rec["face_present"] != true {
		t.Fatalf("unexpected record: %v", rec)
	}

	if err := SetFormat("xml"); err == nil {
		t.Fatal("expected error for unknown format")
	}
}
