package ratelimit

import (
	"context"
	"sync"
	"time"
)

type memoryWindow struct {
	start time.Time
	count int64
}

// MemoryStore implements CounterStore in process memory. It mirrors the
// Postgres semantics for dev mode and tests; it does not survive restarts
// and must not back more than one server instance.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]*memoryWindow
	now     func() time.Time
}

// NewMemoryStore constructs an in-memory counter store.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		windows: make(map[string]*memoryWindow),
		now:     now,
	}
}

// Incr bumps the counter for key, restarting the window if it has expired.
func (s *MemoryStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	if err := ctx.Err(); err != nil {
		return 0, time.Time{}, err
	}
	now := s.now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[key]
	if !ok || now.Sub(w.start) >= window {
		w = &memoryWindow{start: now}
		s.windows[key] = w
	}
	w.count++
	return w.count, w.start, nil
}

var _ CounterStore = (*MemoryStore)(nil)
