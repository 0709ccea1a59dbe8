package profile

import (
	"context"
	"errors"
)

var (
	// ErrNotFound indicates no profile document exists for the identity.
	ErrNotFound = errors.New("profile not found")
	// ErrUnavailable indicates the backing store could not be reached.
	ErrUnavailable = errors.New("profile store unavailable")
)

// Store persists user profiles keyed by identity. Upsert is a full-document
// create-or-replace: callers pass the complete record they intend to keep, the
// store never merges partial fields. No retries happen here; retry policy
// belongs to the caller.
type Store interface {
	Get(ctx context.Context, identity string) (UserProfile, error)
	Upsert(ctx context.Context, identity string, p UserProfile) error
}
