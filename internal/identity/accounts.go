package identity

import (
	"context"
	"errors"
	"sync"
	"time"
)

// errAccountNotFound is internal to the directory; callers of Provider only
// ever see ErrInvalidCredentials.
var errAccountNotFound = errors.New("account not found")

// Account is a provider-side login record. Key is the login key: a synthetic
// email-like key for password accounts, or the E.164 number for phone
// accounts. SecretHash is empty for phone-only accounts.
type Account struct {
	ID         string
	Key        string
	Phone      string
	SecretHash []byte
	CreatedAt  time.Time
}

// Accounts persists provider accounts.
type Accounts interface {
	Create(ctx context.Context, acc Account) error
	FindByKey(ctx context.Context, key string) (Account, error)
}

type memoryAccounts struct {
	mu    sync.RWMutex
	byKey map[string]Account
}

// NewMemoryAccounts builds an in-memory account repository for development and tests.
func NewMemoryAccounts() Accounts {
	return &memoryAccounts{byKey: make(map[string]Account)}
}

func (r *memoryAccounts) Create(_ context.Context, acc Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byKey[acc.Key]; exists {
		return ErrAccountExists
	}
	r.byKey[acc.Key] = acc
	return nil
}

func (r *memoryAccounts) FindByKey(_ context.Context, key string) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	acc, ok := r.byKey[key]
	if !ok {
		return Account{}, errAccountNotFound
	}
	return acc, nil
}
