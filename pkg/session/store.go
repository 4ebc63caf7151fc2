package session

import (
	"fmt"
	"sync"
	"time"
)

// Store provides per-session mutual exclusion. Update runs fn with the
// session's entry lock held: everything the pipeline does for one message,
// from classification bookkeeping to the report-sent transition, happens
// inside a single Update call, so two requests for the same session can
// never interleave.
type Store interface {
	// Update loads (or lazily creates) the session and runs fn on it under
	// the session's lock. Mutations made by fn are persisted when fn
	// returns nil.
	Update(sessionID string, fn func(*Session) error) error

	// Get returns a snapshot of the session, or nil when absent.
	Get(sessionID string) (*Session, error)

	Close()
}

// InMemoryStore is the default single-node store with TTL-based cleanup.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*entry

	maxAge          time.Duration
	cleanupInterval time.Duration

	stopCleanup chan struct{}
	cleanupOnce sync.Once
}

type entry struct {
	mu      sync.Mutex
	session *Session
}

// StoreOption configures an InMemoryStore.
type StoreOption func(*InMemoryStore)

// WithMaxAge sets the session TTL.
func WithMaxAge(d time.Duration) StoreOption {
	return func(s *InMemoryStore) { s.maxAge = d }
}

// WithCleanupInterval sets how often expired sessions are reaped.
func WithCleanupInterval(d time.Duration) StoreOption {
	return func(s *InMemoryStore) { s.cleanupInterval = d }
}

// NewInMemoryStore creates a store with a background reaper.
func NewInMemoryStore(opts ...StoreOption) *InMemoryStore {
	s := &InMemoryStore{
		entries:         make(map[string]*entry),
		maxAge:          24 * time.Hour,
		cleanupInterval: 5 * time.Minute,
		stopCleanup:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	go s.cleanupLoop()

	return s
}

// Update implements Store. Sessions are created lazily on first touch.
func (s *InMemoryStore) Update(sessionID string, fn func(*Session) error) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}

	e := s.getOrCreate(sessionID)

	e.mu.Lock()
	defer e.mu.Unlock()

	return fn(e.session)
}

func (s *InMemoryStore) getOrCreate(sessionID string) *entry {
	s.mu.RLock()
	e, ok := s.entries[sessionID]
	s.mu.RUnlock()
	if ok {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok = s.entries[sessionID]; ok {
		return e
	}
	e = &entry{session: New(sessionID)}
	s.entries[sessionID] = e
	return e
}

// Get returns a deep-copied snapshot of the session state, or nil when not
// found or expired. The snapshot is safe to read and marshal while other
// requests keep mutating the live session.
func (s *InMemoryStore) Get(sessionID string) (*Session, error) {
	s.mu.RLock()
	e, ok := s.entries[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if time.Since(e.session.LastActivity) > s.maxAge {
		return nil, nil
	}
	return e.session.Clone(), nil
}

// Close stops the reaper.
func (s *InMemoryStore) Close() {
	s.cleanupOnce.Do(func() {
		close(s.stopCleanup)
	})
}

func (s *InMemoryStore) cleanupLoop() {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCleanup:
			return
		}
	}
}

func (s *InMemoryStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	// LastActivity is guarded by the entry mutex, not the store mutex, so
	// each entry is locked before inspection. An entry mid-Update is left
	// for the next sweep rather than deleted under a live mutation.
	now := time.Now()
	for id, e := range s.entries {
		if !e.mu.TryLock() {
			continue
		}
		expired := now.Sub(e.session.LastActivity) > s.maxAge
		e.mu.Unlock()
		if expired {
			delete(s.entries, id)
		}
	}
}

// Len reports the number of live sessions.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

var _ Store = (*InMemoryStore)(nil)
