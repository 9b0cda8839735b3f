package errorsink

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/tubechat/tubechat/internal/domain/entities"
)

type fakeErrorRepo struct {
	mu     sync.Mutex
	events []entities.ErrorEvent
}

func (f *fakeErrorRepo) CreateBatch(_ context.Context, events []entities.ErrorEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, events...)
	return nil
}

func (f *fakeErrorRepo) CountSince(_ context.Context, since time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, e := range f.events {
		if !e.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (f *fakeErrorRepo) CountByTypeSince(_ context.Context, since time.Time) (map[string]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[string]int64{}
	for _, e := range f.events {
		if !e.CreatedAt.Before(since) {
			out[e.Type]++
		}
	}
	return out, nil
}

func TestRedactSensitiveKeys(t *testing.T) {
	in := map[string]interface{}{
		"video_id": "abc",
		"apiKey":   "sk-something",
		"Token":    "bearer xyz",
		"nested": map[string]interface{}{
			"password": "hunter2",
			"note":     "fine",
		},
	}

	out := Redact(in)
	if out["video_id"] != "abc" {
		t.Fatalf("plain keys must pass through")
	}
	if out["apiKey"] != "[REDACTED]" {
		t.Fatalf("apiKey must be redacted, got %v", out["apiKey"])
	}
	if out["Token"] != "[REDACTED]" {
		t.Fatalf("redaction must be case-insensitive, got %v", out["Token"])
	}
	nested := out["nested"].(map[string]interface{})
	if nested["password"] != "[REDACTED]" || nested["note"] != "fine" {
		t.Fatalf("nested maps must be redacted recursively: %v", nested)
	}
	// The input must not be mutated.
	if in["apiKey"] != "sk-something" {
		t.Fatalf("redaction must copy, not mutate")
	}
}

func TestRedactNil(t *testing.T) {
	if out := Redact(nil); out != nil {
		t.Fatalf("nil context stays nil")
	}
}

func TestCaptureAndFlush(t *testing.T) {
	repo := &fakeErrorRepo{}
	sink := New(repo, zap.NewNop())

	sink.Capture(errors.New("boom"), "pipeline", map[string]interface{}{"secret": "x", "id": "1"})
	sink.Capture(errors.New("bang"), "chat", nil)
	sink.Flush(context.Background())

	repo.mu.Lock()
	defer repo.mu.Unlock()
	if len(repo.events) != 2 {
		t.Fatalf("expected 2 flushed events, got %d", len(repo.events))
	}
	first := repo.events[0]
	if first.Message != "boom" || first.Type != "pipeline" {
		t.Fatalf("unexpected event %+v", first)
	}
	if first.Stack == "" {
		t.Fatalf("captured events must carry a stack")
	}
	ctxMap := first.Context.Data()
	if ctxMap["secret"] != "[REDACTED]" {
		t.Fatalf("context must be redacted before persistence: %v", ctxMap)
	}
}

func TestCaptureNilErrorIgnored(t *testing.T) {
	repo := &fakeErrorRepo{}
	sink := New(repo, zap.NewNop())

	sink.Capture(nil, "noop", nil)
	sink.Flush(context.Background())

	repo.mu.Lock()
	defer repo.mu.Unlock()
	if len(repo.events) != 0 {
		t.Fatalf("nil errors must be ignored")
	}
}
