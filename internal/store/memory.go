package store

import (
	"context"
	"sync"

	"github.com/CMSchuyler/Artagent-2.0-3/internal/domain"
)

// MemoryStore keeps sessions in process-wide maps. State is lost on restart.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
	debates  map[string]*domain.DebateSession
}

// NewMemory creates an empty in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*domain.Session),
		debates:  make(map[string]*domain.DebateSession),
	}
}

// Session returns the chat session for the id, creating it on first use.
func (m *MemoryStore) Session(_ context.Context, sessionID string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		s = &domain.Session{
			UserID:             newUserID(),
			AgentConversations: make(map[string]*domain.AgentConversation),
		}
		m.sessions[sessionID] = s
	}
	return s.Clone(), nil
}

// LookupSession returns the chat session if it exists.
func (m *MemoryStore) LookupSession(_ context.Context, sessionID string) (*domain.Session, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, false, nil
	}
	return s.Clone(), true, nil
}

// SaveSession writes back a chat session.
func (m *MemoryStore) SaveSession(_ context.Context, sessionID string, s *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sessionID] = s.Clone()
	return nil
}

// DebateSession returns the debate session for the id, creating it on first use.
func (m *MemoryStore) DebateSession(_ context.Context, sessionID string) (*domain.DebateSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.debates[sessionID]
	if !ok {
		s = &domain.DebateSession{
			UserID:         newUserID(),
			AgentLastChats: make(map[string]string),
		}
		m.debates[sessionID] = s
	}
	return s.Clone(), nil
}

// LookupDebateSession returns the debate session if it exists.
func (m *MemoryStore) LookupDebateSession(_ context.Context, sessionID string) (*domain.DebateSession, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.debates[sessionID]
	if !ok {
		return nil, false, nil
	}
	return s.Clone(), true, nil
}

// SaveDebateSession writes back a debate session.
func (m *MemoryStore) SaveDebateSession(_ context.Context, sessionID string, s *domain.DebateSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.debates[sessionID] = s.Clone()
	return nil
}

// ResetDebateSession clears remote conversation state for an existing session.
func (m *MemoryStore) ResetDebateSession(_ context.Context, sessionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.debates[sessionID]
	if !ok {
		return false, nil
	}
	s.Reset()
	return true, nil
}

// Close is a no-op for the memory store.
func (m *MemoryStore) Close() error { return nil }
