// Package results keeps generated images in memory behind opaque, expiring handles.
package results

import (
	"context"
	"crypto/rand"
	"errors"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	defaultTTL        = 30 * time.Minute
	defaultMaxEntries = 512
)

// ErrNotFound is returned for unknown, revoked, or expired handles.
var ErrNotFound = errors.New("results: not found")

// Entry is a stored image.
type Entry struct {
	ID          string
	Data        []byte
	ContentType string
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

// Store is a bounded in-memory image store. It is safe for concurrent use.
type Store struct {
	ttl        time.Duration
	maxEntries int
	clock      func() time.Time

	mu      sync.Mutex
	entries map[string]Entry
	entropy *ulid.MonotonicEntropy
}

// Option customises a Store.
type Option func(*Store)

// WithTTL sets how long a handle stays valid.
func WithTTL(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.ttl = d
		}
	}
}

// WithMaxEntries bounds the number of live handles; the oldest is evicted first.
func WithMaxEntries(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxEntries = n
		}
	}
}

// WithClock overrides the time source.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewStore constructs an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		ttl:        defaultTTL,
		maxEntries: defaultMaxEntries,
		clock:      time.Now,
		entries:    make(map[string]Entry),
		entropy:    ulid.Monotonic(rand.Reader, 0),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Put stores data and returns its new handle.
func (s *Store) Put(data []byte, contentType string) Entry {
	now := s.clock()
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked(now)
	for len(s.entries) >= s.maxEntries {
		s.evictOldestLocked()
	}
	e := Entry{
		ID:          ulid.MustNew(ulid.Timestamp(now), s.entropy).String(),
		Data:        data,
		ContentType: contentType,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.ttl),
	}
	s.entries[e.ID] = e
	return e
}

// Get returns the entry for id if it is still live.
func (s *Store) Get(id string) (Entry, error) {
	now := s.clock()
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return Entry{}, ErrNotFound
	}
	if !now.Before(e.ExpiresAt) {
		delete(s.entries, id)
		return Entry{}, ErrNotFound
	}
	return e, nil
}

// Revoke releases the handles. Unknown ids are ignored.
func (s *Store) Revoke(ids ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.entries, id)
	}
}

// Len returns the number of stored entries, including expired ones not yet swept.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Sweep drops expired entries and returns how many were removed.
func (s *Store) Sweep() int {
	now := s.clock()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked(now)
}

// Run sweeps every interval until ctx is done.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Sweep()
		}
	}
}

func (s *Store) sweepLocked(now time.Time) int {
	n := 0
	for id, e := range s.entries {
		if !now.Before(e.ExpiresAt) {
			delete(s.entries, id)
			n++
		}
	}
	return n
}

func (s *Store) evictOldestLocked() {
	var oldest string
	var oldestAt time.Time
	for id, e := range s.entries {
		if oldest == "" || e.CreatedAt.Before(oldestAt) || (e.CreatedAt.Equal(oldestAt) && id < oldest) {
			oldest, oldestAt = id, e.CreatedAt
		}
	}
	if oldest != "" {
		delete(s.entries, oldest)
	}
}
