// Package store keeps verification sessions between requests. Sessions are
// transient: they expire after a TTL and nothing is persisted beyond it.
package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"altid/internal/verification/models"
	id "altid/pkg/domain"
	"altid/pkg/platform/sentinel"
)

// DefaultTTL bounds how long an idle session is kept.
const DefaultTTL = 30 * time.Minute

type memoryEntry struct {
	session   *models.Session
	expiresAt time.Time
}

// InMemoryStore is the single-process session store.
type InMemoryStore struct {
	mu       sync.Mutex
	sessions map[id.SessionID]memoryEntry
	ttl      time.Duration
	now      func() time.Time
}

// NewInMemory creates a store. A non-positive ttl uses DefaultTTL.
func NewInMemory(ttl time.Duration) *InMemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &InMemoryStore{
		sessions: make(map[id.SessionID]memoryEntry),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (s *InMemoryStore) Create(_ context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.live(session.ID); ok {
		return fmt.Errorf("session %s: %w", session.ID, sentinel.ErrConflict)
	}
	s.sessions[session.ID] = memoryEntry{session: session.Clone(), expiresAt: s.now().Add(s.ttl)}
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, sessionID id.SessionID) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.live(sessionID)
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return entry.session.Clone(), nil
}

// Update runs fn on a copy of the session under the store lock and saves the
// copy only if fn succeeds. fn's error is returned unchanged.
func (s *InMemoryStore) Update(_ context.Context, sessionID id.SessionID, fn func(*models.Session) error) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.live(sessionID)
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	working := entry.session.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}
	s.sessions[sessionID] = memoryEntry{session: working, expiresAt: s.now().Add(s.ttl)}
	return working.Clone(), nil
}

// Len reports the number of live sessions.
func (s *InMemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for sid := range s.sessions {
		if _, ok := s.live(sid); ok {
			n++
		}
	}
	return n
}

// live returns an unexpired entry, evicting it if expired. Caller holds mu.
func (s *InMemoryStore) live(sessionID id.SessionID) (memoryEntry, bool) {
	entry, ok := s.sessions[sessionID]
	if !ok {
		return memoryEntry{}, false
	}
	if !s.now().Before(entry.expiresAt) {
		delete(s.sessions, sessionID)
		return memoryEntry{}, false
	}
	return entry, true
}
