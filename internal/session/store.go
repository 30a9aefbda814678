package session

import (
	"context"
	"sync"
	"time"

	"github.com/doj0985/databricks-aibi-external-embedding/internal/model"
)

// Store persists active sessions. The cookie only carries a signed session
// ID, so whatever backs the store is the single source of truth for who is
// logged in.
type Store interface {
	Put(ctx context.Context, session model.Session) error
	Get(ctx context.Context, id string) (model.Session, error)
	Delete(ctx context.Context, id string) error
}

// MemoryStore keeps sessions in process memory. Sessions vanish on restart,
// which is the intended demo behavior.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]model.Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: map[string]model.Session{}}
}

func (s *MemoryStore) Put(_ context.Context, session model.Session) error {
	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (model.Session, error) {
	s.mu.RLock()
	session, exists := s.sessions[id]
	s.mu.RUnlock()

	if !exists {
		return model.Session{}, model.ErrSessionNotFound
	}

	if session.Expired(time.Now().UTC()) {
		s.mu.Lock()
		delete(s.sessions, id)
		s.mu.Unlock()
		return model.Session{}, model.ErrSessionExpired
	}

	return session, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	return nil
}
