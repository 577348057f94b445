package engine

import "sync"

// ErrorHistory is a bounded, mutex-guarded ring buffer of classified errors
// kept for diagnostics. It is the only mutable state in the engine and is
// owned by whoever constructs it, never hidden behind a package global.
type ErrorHistory struct {
	mu      sync.Mutex
	max     int
	entries []EngineError
}

// NewErrorHistory creates a history buffer holding at most max entries. A
// non-positive max falls back to 50.
func NewErrorHistory(max int) *ErrorHistory {
	if max <= 0 {
		max = 50
	}
	return &ErrorHistory{
		max:     max,
		entries: make([]EngineError, 0, max),
	}
}

// Append records an error, trimming the oldest entries past the bound.
func (h *ErrorHistory) Append(e EngineError) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = append(h.entries, e)
	if overflow := len(h.entries) - h.max; overflow > 0 {
		h.entries = append(h.entries[:0], h.entries[overflow:]...)
	}
}

// Snapshot returns a copy of the buffered errors, newest last.
func (h *ErrorHistory) Snapshot() []EngineError {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]EngineError, len(h.entries))
	copy(out, h.entries)
	return out
}

// Len returns the number of buffered errors.
func (h *ErrorHistory) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}
