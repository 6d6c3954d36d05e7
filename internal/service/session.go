package service

import (
	"context"
	"sync"
	"time"

	"github.com/twopeaks/controlroom/internal/model"
)

// SessionStore loads and saves support chat sessions.
type SessionStore interface {
	// Load returns the session, or a new empty one for an unknown id.
	Load(ctx context.Context, id string) (*model.Session, error)
	Save(ctx context.Context, session *model.Session) error
}

// LeaseStore hands out advisory edit leases on review items.
type LeaseStore interface {
	Claim(ctx context.Context, key, holder string, ttl time.Duration) (current string, ok bool, err error)
	Release(ctx context.Context, key, holder string) error
	Holder(ctx context.Context, key string) (string, error)
}

type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]model.Session
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]model.Session)}
}

func (s *MemorySessionStore) Load(_ context.Context, id string) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return &model.Session{ID: id}, nil
	}
	sess.History = append([]model.ChatTurn(nil), sess.History...)
	return &sess, nil
}

func (s *MemorySessionStore) Save(_ context.Context, session *model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *session
	cp.History = append([]model.ChatTurn(nil), session.History...)
	s.sessions[session.ID] = cp
	return nil
}

type lease struct {
	holder  string
	expires time.Time
}

type MemoryLeaseStore struct {
	mu     sync.Mutex
	leases map[string]lease
	now    func() time.Time
}

func NewMemoryLeaseStore() *MemoryLeaseStore {
	return &MemoryLeaseStore{leases: make(map[string]lease), now: time.Now}
}

func (s *MemoryLeaseStore) Claim(_ context.Context, key, holder string, ttl time.Duration) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if l, ok := s.leases[key]; ok && now.Before(l.expires) && l.holder != holder {
		return l.holder, false, nil
	}
	s.leases[key] = lease{holder: holder, expires: now.Add(ttl)}
	return holder, true, nil
}

func (s *MemoryLeaseStore) Release(_ context.Context, key, holder string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.leases[key]; ok && l.holder == holder {
		delete(s.leases, key)
	}
	return nil
}

func (s *MemoryLeaseStore) Holder(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.leases[key]
	if !ok || !s.now().Before(l.expires) {
		return "", nil
	}
	return l.holder, nil
}
