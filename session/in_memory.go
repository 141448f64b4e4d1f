package session

import (
	"errors"
	"sort"
	"sync"

	"github.com/hupe1980/reactmesh/core"
)

// ErrNotFound is returned for unknown session IDs.
var ErrNotFound = errors.New("session not found")

// Store persists transcripts keyed by session ID.
type Store interface {
	// Get returns a copy of the transcript, or ErrNotFound.
	Get(sessionID string) ([]core.Message, error)
	// Save replaces the transcript.
	Save(sessionID string, msgs []core.Message) error
	// Delete removes the session.
	Delete(sessionID string) error
	// IDs lists the known sessions in sorted order.
	IDs() ([]string, error)
}

// InMemoryStore is a volatile Store keeping transcripts in a process local
// map. It is safe for concurrent access. Transcripts are cloned on the way
// in and out to prevent external mutation of internal state.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]core.Message
}

var _ Store = (*InMemoryStore)(nil)

// NewInMemoryStore constructs an empty in-memory session store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string][]core.Message)}
}

// Get implements Store.
func (s *InMemoryStore) Get(sessionID string) ([]core.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return core.CloneMessages(msgs), nil
}

// Save implements Store.
func (s *InMemoryStore) Save(sessionID string, msgs []core.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = core.CloneMessages(msgs)
	return nil
}

// Delete implements Store. Deleting an unknown session is not an error.
func (s *InMemoryStore) Delete(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

// IDs implements Store.
func (s *InMemoryStore) IDs() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
