package store

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrNotFound is returned when no snapshot is stored or it has expired.
	ErrNotFound = errors.New("no snapshot available")
)

// Timestamped is implemented by values the store can age out.
type Timestamped interface {
	StoredAt() time.Time
}

// MemoryStore is a concurrency-safe in-memory slot holding the most recent
// value, e.g. the last successfully rendered dashboard snapshot.
type MemoryStore[T Timestamped] struct {
	mu sync.RWMutex

	latest *T

	// maxAge is the optional max age of the stored value (0 = unlimited)
	maxAge time.Duration
	now    func() time.Time
}

// NewMemoryStore creates a new MemoryStore. If maxAge is <= 0 values never expire.
func NewMemoryStore[T Timestamped](maxAge time.Duration) *MemoryStore[T] {
	return &MemoryStore[T]{
		maxAge: maxAge,
		now:    time.Now,
	}
}

// WithNow overrides the clock used for expiry.
func (s *MemoryStore[T]) WithNow(now func() time.Time) *MemoryStore[T] {
	s.now = now
	return s
}

// Save replaces the stored value.
func (s *MemoryStore[T]) Save(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.latest = &v
}

// GetLatest returns the stored value, or ErrNotFound if there is none or it is
// older than maxAge.
func (s *MemoryStore[T]) GetLatest() (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var zero T
	if s.latest == nil {
		return zero, ErrNotFound
	}

	v := *s.latest
	if s.maxAge > 0 {
		cutoff := s.now().Add(-s.maxAge)
		if v.StoredAt().Before(cutoff) {
			return zero, ErrNotFound
		}
	}
	return v, nil
}
