package store

import (
	"sync"

	"github.com/voiceagent/voiceagent/internal/domain"
)

// history is one session's conversation with its own lock, so operations on
// different sessions never contend.
type history struct {
	mu    sync.Mutex
	turns []domain.Turn
}

// MemoryStore is an in-memory Store. Histories live until explicitly
// cleared or the process exits; there is no eviction.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*history
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*history),
	}
}

// session returns the history for sessionID, creating it if absent.
func (s *MemoryStore) session(sessionID string) *history {
	s.mu.RLock()
	h, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if ok {
		return h
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.sessions[sessionID]; ok {
		return h
	}
	h = &history{}
	s.sessions[sessionID] = h
	return h
}

// GetOrCreate ensures a history exists for the session.
func (s *MemoryStore) GetOrCreate(sessionID string) {
	s.session(sessionID)
}

// Append adds a single turn to the session's history.
func (s *MemoryStore) Append(sessionID string, turn domain.Turn) {
	h := s.session(sessionID)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = append(h.turns, turn)
}

// AppendExchange adds a user/agent pair under one lock acquisition.
func (s *MemoryStore) AppendExchange(sessionID string, user, agent domain.Turn) {
	h := s.session(sessionID)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = append(h.turns, user, agent)
}

// Read returns a copy of the session's history, oldest turn first.
func (s *MemoryStore) Read(sessionID string) []domain.Turn {
	s.mu.RLock()
	h, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]domain.Turn, len(h.turns))
	copy(out, h.turns)
	return out
}

// Clear removes the session's history. Removal of the map entry is atomic:
// concurrent readers see either the full pre-clear history or nothing.
func (s *MemoryStore) Clear(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, existed := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	return existed
}

// Sessions returns the identifiers of all live sessions.
func (s *MemoryStore) Sessions() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	return ids
}
