package identity

import (
	"context"
	"errors"
	"sync"
	"time"
)

var errChallengeNotFound = errors.New("challenge not found")

// Challenge is an outstanding phone verification awaiting its code. A failed
// code attempt leaves the challenge in place so the user can retype; success
// or expiry removes it.
type Challenge struct {
	Phone string
	Code  string
}

// ChallengeStore holds outstanding challenges keyed by an opaque handle id.
type ChallengeStore interface {
	Put(ctx context.Context, id string, ch Challenge, ttl time.Duration) error
	Get(ctx context.Context, id string) (Challenge, error)
	Delete(ctx context.Context, id string) error
}

type memoryChallenge struct {
	ch      Challenge
	expires time.Time
}

type memoryChallenges struct {
	mu      sync.Mutex
	pending map[string]memoryChallenge
}

// NewMemoryChallenges builds an in-memory challenge store for development and tests.
func NewMemoryChallenges() ChallengeStore {
	return &memoryChallenges{pending: make(map[string]memoryChallenge)}
}

func (s *memoryChallenges) Put(_ context.Context, id string, ch Challenge, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[id] = memoryChallenge{ch: ch, expires: time.Now().Add(ttl)}
	return nil
}

func (s *memoryChallenges) Get(_ context.Context, id string) (Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.pending[id]
	if !ok {
		return Challenge{}, errChallengeNotFound
	}
	if time.Now().After(entry.expires) {
		delete(s.pending, id)
		return Challenge{}, errChallengeNotFound
	}
	return entry.ch, nil
}

func (s *memoryChallenges) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, id)
	return nil
}
