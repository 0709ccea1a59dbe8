package auth

import "errors"

// Flow-level error taxonomy. Store faults surface as profile.ErrUnavailable
// from the adapter and pass through the engine untranslated.
var (
	// ErrInvalidCredentials is returned when password login is rejected.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountCreationFailed is returned when the provider refuses a signup,
	// either because the key is taken or the secret fails policy.
	ErrAccountCreationFailed = errors.New("account creation failed")
	// ErrChallengeUnavailable is returned when a phone challenge could not be
	// issued, including when the anti-automation token is missing.
	ErrChallengeUnavailable = errors.New("challenge unavailable")
	// ErrInvalidCode is returned when a verification code is rejected. The
	// pending challenge survives so the user can retype the code.
	ErrInvalidCode = errors.New("invalid verification code")
	// ErrNoPendingChallenge is returned when verify is called without a prior
	// initiate. Reachable only through a flow-sequencing bug.
	ErrNoPendingChallenge = errors.New("no pending challenge")
	// ErrProfileMissing is returned when phone login succeeds against the
	// provider but no profile document exists for the identity.
	ErrProfileMissing = errors.New("profile missing for identity")
	// ErrLogoutFailed is returned when provider sign-out fails; the local
	// session is left untouched.
	ErrLogoutFailed = errors.New("logout failed")
	// ErrRateLimited is returned when too many attempts arrive for one number.
	ErrRateLimited = errors.New("rate limited")
)
