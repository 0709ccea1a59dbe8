package profile

import (
	"context"
	"sync"
)

type memoryStore struct {
	mu       sync.RWMutex
	profiles map[string]UserProfile
}

// NewMemoryStore builds an in-memory profile store for development and tests.
func NewMemoryStore() Store {
	return &memoryStore{profiles: make(map[string]UserProfile)}
}

func (s *memoryStore) Get(_ context.Context, identity string) (UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[identity]
	if !ok {
		return UserProfile{}, ErrNotFound
	}
	if p.Payment != nil {
		v := *p.Payment
		p.Payment = &v
	}
	return p, nil
}

func (s *memoryStore) Upsert(_ context.Context, identity string, p UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = identity
	if p.Payment != nil {
		v := *p.Payment
		p.Payment = &v
	}
	s.profiles[identity] = p
	return nil
}
