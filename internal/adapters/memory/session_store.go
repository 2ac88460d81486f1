// Package memory — хранилище сессий диалога в памяти процесса.
// Перезапуск процесса молча сбрасывает незавершенные диалоги, это
// допустимо: до финального подтверждения в базе ничего нет.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/kubanez-create/Calibration/internal/domain"
)

type entry struct {
	session  domain.Session
	deadline time.Time
}

// SessionStore хранит сессии с TTL: брошенный на полпути диалог
// истекает так же, как истекал таймаут ожидания ответа в старом боте.
type SessionStore struct {
	mu      sync.RWMutex
	entries map[int64]entry
	ttl     time.Duration
	now     func() time.Time
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		entries: make(map[int64]entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *SessionStore) Get(_ context.Context, ownerID int64) (domain.Session, bool, error) {
	s.mu.RLock()
	e, ok := s.entries[ownerID]
	s.mu.RUnlock()
	if !ok {
		return domain.Session{}, false, nil
	}
	if s.now().After(e.deadline) {
		s.mu.Lock()
		delete(s.entries, ownerID)
		s.mu.Unlock()
		return domain.Session{}, false, nil
	}
	return e.session, true, nil
}

func (s *SessionStore) Put(_ context.Context, ownerID int64, sess domain.Session) error {
	s.mu.Lock()
	s.entries[ownerID] = entry{session: sess, deadline: s.now().Add(s.ttl)}
	s.mu.Unlock()
	return nil
}

func (s *SessionStore) Delete(_ context.Context, ownerID int64) error {
	s.mu.Lock()
	delete(s.entries, ownerID)
	s.mu.Unlock()
	return nil
}
