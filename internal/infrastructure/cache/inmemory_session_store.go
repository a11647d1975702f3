package cache

import (
	"context"
	"sync"
	"time"

	"github.com/coagronet/console/internal/domain/session"
	"github.com/coagronet/console/internal/infrastructure/auth"
)

type sessionEntry struct {
	values    session.Values
	expiresAt time.Time
}

// InMemorySessionStore keeps sessions in process memory. It is meant for
// single-instance deployments, development and tests.
type InMemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]sessionEntry
	ttl      time.Duration
	now      func() time.Time

	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemorySessionStore creates a store. A positive ttl expires sessions
// that were not written for that long; a background goroutine sweeps them.
func NewInMemorySessionStore(ttl time.Duration) *InMemorySessionStore {
	return newInMemorySessionStore(ttl, time.Now)
}

func newInMemorySessionStore(ttl time.Duration, now func() time.Time) *InMemorySessionStore {
	s := &InMemorySessionStore{
		sessions: make(map[string]sessionEntry),
		ttl:      ttl,
		now:      now,
		stopChan: make(chan struct{}),
	}
	if ttl > 0 {
		s.wg.Add(1)
		go s.cleanupLoop(cleanupInterval(ttl))
	}
	return s
}

func cleanupInterval(ttl time.Duration) time.Duration {
	if ttl < 2*time.Minute {
		return ttl
	}
	return time.Minute
}

func (s *InMemorySessionStore) live(e sessionEntry, now time.Time) bool {
	return e.expiresAt.IsZero() || now.Before(e.expiresAt)
}

// Load returns a copy of the stored values.
func (s *InMemorySessionStore) Load(_ context.Context, sid string) (session.Values, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.sessions[auth.HashSessionID(sid)]
	if !ok || !s.live(e, s.now()) {
		return session.Values{}, nil
	}
	return e.values.Clone(), nil
}

// Apply builds the new values aside and swaps them in under the lock.
func (s *InMemorySessionStore) Apply(_ context.Context, sid string, u session.Update) error {
	if err := u.Validate(); err != nil {
		return err
	}
	if u.Empty() {
		return nil
	}

	key := auth.HashSessionID(sid)
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	current := s.sessions[key]
	if !s.live(current, now) {
		current = sessionEntry{}
	}
	next := sessionEntry{values: u.ApplyTo(current.values)}
	if s.ttl > 0 {
		next.expiresAt = now.Add(s.ttl)
	}
	s.sessions[key] = next
	return nil
}

// Clear removes the session.
func (s *InMemorySessionStore) Clear(_ context.Context, sid string) error {
	s.mu.Lock()
	delete(s.sessions, auth.HashSessionID(sid))
	s.mu.Unlock()
	return nil
}

// Len returns the number of live sessions.
func (s *InMemorySessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := s.now()
	n := 0
	for _, e := range s.sessions {
		if s.live(e, now) {
			n++
		}
	}
	return n
}

func (s *InMemorySessionStore) cleanupLoop(interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopChan:
			return
		}
	}
}

func (s *InMemorySessionStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for k, e := range s.sessions {
		if !s.live(e, now) {
			delete(s.sessions, k)
		}
	}
}

// Close stops the cleanup goroutine.
func (s *InMemorySessionStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
	})
	s.wg.Wait()
	return nil
}

var _ session.Store = (*InMemorySessionStore)(nil)
