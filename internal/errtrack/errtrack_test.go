package errtrack

import (
	"context"
	"errors"
	"testing"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestCaptureLogsEventID(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := New(zap.New(core))

	id := r.Capture(context.Background(), errors.New("boom"), zap.String("record_id", "1"))
	if _, err := ulid.ParseStrict(id); err != nil {
		t.Fatalf("expected ulid event id, got %q: %v", id, err)
	}

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected one log entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["event_id"] != id || fields["record_id"] != "1" {
		t.Fatalf("unexpected fields %v", fields)
	}
}

func TestCaptureIDsAreOrdered(t *testing.T) {
	r := New(zap.NewNop())
	first := r.Capture(context.Background(), errors.New("a"))
	second := r.Capture(context.Background(), errors.New("b"))
	if !(first < second) {
		t.Fatalf("expected monotonic ids, got %s then %s", first, second)
	}
}

func TestCaptureNil(t *testing.T) {
	if id := New(zap.NewNop()).Capture(context.Background(), nil); id != "" {
		t.Fatalf("expected empty id for nil error, got %q", id)
	}
	if id := (Nop{}).Capture(context.Background(), nil); id != "" {
		t.Fatalf("expected empty id for nil error, got %q", id)
	}
}
