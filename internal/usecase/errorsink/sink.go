package errorsink

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/tubechat/tubechat/internal/domain/entities"
	"github.com/tubechat/tubechat/internal/domain/repositories"
)

const (
	bufferLimit   = 50
	flushInterval = 30 * time.Second
)

// sensitiveKeys are redacted from captured context objects before the
// event leaves the process.
var sensitiveKeys = map[string]struct{}{
	"password":      {},
	"token":         {},
	"apikey":        {},
	"secret":        {},
	"authorization": {},
}

// Sink buffers captured errors and flushes them to the store in batches.
// Capture never blocks callers on store I/O.
type Sink struct {
	repo   repositories.ErrorEventRepository
	logger *zap.Logger

	mu     sync.Mutex
	buffer []entities.ErrorEvent

	stop chan struct{}
	done chan struct{}
}

// New creates an error sink and starts its flush loop
func New(repo repositories.ErrorEventRepository, logger *zap.Logger) *Sink {
	s := &Sink{
		repo:   repo,
		logger: logger,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go s.flushLoop()
	return s
}

// Capture buffers an error with its (redacted) context object
func (s *Sink) Capture(err error, errType string, context map[string]interface{}) {
	if err == nil {
		return
	}

	event := entities.ErrorEvent{
		Message:   err.Error(),
		Type:      errType,
		Stack:     string(debug.Stack()),
		Context:   datatypes.NewJSONType(Redact(context)),
		CreatedAt: time.Now(),
	}

	s.mu.Lock()
	s.buffer = append(s.buffer, event)
	full := len(s.buffer) >= bufferLimit
	s.mu.Unlock()

	if full {
		go s.flushWithTimeout()
	}
}

// Flush writes the buffered events to the store
func (s *Sink) Flush(ctx context.Context) {
	s.mu.Lock()
	if len(s.buffer) == 0 {
		s.mu.Unlock()
		return
	}
	batch := s.buffer
	s.buffer = nil
	s.mu.Unlock()

	if err := s.repo.CreateBatch(ctx, batch); err != nil {
		s.logger.Error("errorsink.flush.failed",
			zap.Int("events", len(batch)),
			zap.Error(err),
		)
	}
}

// Stop flushes remaining events and halts the flush loop
func (s *Sink) Stop(ctx context.Context) {
	close(s.stop)
	<-s.done
	s.Flush(ctx)
}

func (s *Sink) flushLoop() {
	defer close(s.done)
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.flushWithTimeout()
		}
	}
}

func (s *Sink) flushWithTimeout() {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	s.Flush(ctx)
}

// Redact returns a copy of the context map with known sensitive keys
// replaced. Nested maps are redacted recursively.
func Redact(in map[string]interface{}) map[string]interface{} {
	if in == nil {
		return nil
	}
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		if _, sensitive := sensitiveKeys[lower(k)]; sensitive {
			out[k] = "[REDACTED]"
			continue
		}
		if nested, ok := v.(map[string]interface{}); ok {
			out[k] = Redact(nested)
			continue
		}
		out[k] = v
	}
	return out
}

func lower(s string) string {
	b := []byte(s)
	for i := range b {
		if b[i] >= 'A' && b[i] <= 'Z' {
			b[i] += 'a' - 'A'
		}
	}
	return string(b)
}
