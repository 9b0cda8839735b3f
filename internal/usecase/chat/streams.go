package chat

import (
	"sync"
)

// StreamState tracks one live chat stream
type StreamState string

const (
	StreamActive    StreamState = "active"
	StreamCompleted StreamState = "completed"
	StreamCancelled StreamState = "cancelled"
	StreamErrored   StreamState = "errored"
)

// Registry tracks active streams so the orchestrator can observe client
// disconnects between model deltas. The transport layer cancels the entry
// when the connection drops.
type Registry struct {
	mu      sync.Mutex
	streams map[string]StreamState
}

// NewRegistry creates an empty stream registry
func NewRegistry() *Registry {
	return &Registry{streams: make(map[string]StreamState)}
}

// Register marks a stream as active
func (r *Registry) Register(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.streams[id] = StreamActive
}

// Cancel flips an active stream to cancelled. No further content frames
// are emitted for a cancelled stream id.
func (r *Registry) Cancel(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.streams[id] == StreamActive {
		r.streams[id] = StreamCancelled
	}
}

// Finish drops the entry once the stream reaches a terminal state
func (r *Registry) Finish(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.streams, id)
}

// IsActive reports whether the stream may keep emitting frames
func (r *Registry) IsActive(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.streams[id] == StreamActive
}

// ActiveCount returns the number of live streams
func (r *Registry) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, state := range r.streams {
		if state == StreamActive {
			n++
		}
	}
	return n
}
