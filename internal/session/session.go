package session

import "github.com/mytt-app/selfcare/internal/profile"

// Status is the lifecycle state of a device session.
type Status string

const (
	// StatusInitializing holds until the first auth-state emission arrives.
	StatusInitializing Status = "initializing"
	// StatusUnauthenticated means no identity is signed in.
	StatusUnauthenticated Status = "unauthenticated"
	// StatusAuthenticating means a flow operation is in flight.
	StatusAuthenticating Status = "authenticating"
	// StatusAuthenticated means an identity is signed in and a profile
	// projection is published.
	StatusAuthenticated Status = "authenticated"
)

// Session is the transient in-memory auth state for one device. It is a
// versioned value: every transition replaces it wholesale and bumps Version,
// so readers can tell stale snapshots apart.
type Session struct {
	Identity string
	Profile  *profile.UserProfile
	Status   Status
	Version  uint64
}

// Authenticated reports whether an identity is signed in.
func (s Session) Authenticated() bool { return s.Status == StatusAuthenticated }
