package identity

import (
	"context"
	"errors"
)

var (
	// ErrInvalidCredentials is returned when a key/secret pair does not match an account.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountExists is returned when the login key is already taken.
	ErrAccountExists = errors.New("account already exists")
	// ErrPolicyRejected is returned when the secret fails the provider's policy.
	ErrPolicyRejected = errors.New("secret rejected by policy")
	// ErrChallengeUnavailable is returned when a phone challenge could not be issued.
	ErrChallengeUnavailable = errors.New("challenge unavailable")
	// ErrInvalidCode is returned when a verification code is rejected.
	ErrInvalidCode = errors.New("invalid verification code")
	// ErrUnavailable is returned when the identity backend cannot be reached.
	ErrUnavailable = errors.New("identity backend unavailable")
)

// PendingVerification is an opaque handle for an outstanding phone challenge.
// Its zero value represents no challenge.
type PendingVerification struct {
	id string
}

// IsZero reports whether the handle refers to no challenge.
func (p PendingVerification) IsZero() bool { return p.id == "" }

// Provider mirrors the client surface of the external identity provider. One
// Provider instance is a per-device-session handle: it holds the currently
// signed-in identity and reports changes to subscribers, the way a mobile auth
// SDK does. Subscribe fires the callback once immediately with the current
// state; an empty identity string means signed out.
type Provider interface {
	AuthenticateWithSecret(ctx context.Context, key, secret string) (string, error)
	CreateAccountWithSecret(ctx context.Context, key, secret string) (string, error)
	RequestPhoneChallenge(ctx context.Context, number, challengeToken string) (PendingVerification, error)
	ConfirmChallenge(ctx context.Context, pending PendingVerification, code string) (string, error)
	SignOut(ctx context.Context) error
	Subscribe(onChange func(identity string)) (unsubscribe func())
}

// ChallengeTokenSource supplies the anti-automation token the provider demands
// before issuing a phone challenge. On mobile this is a captcha-style widget
// attached to the view hierarchy; here it is whatever the deployment
// configured.
type ChallengeTokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticTokenSource is a ChallengeTokenSource backed by a fixed token.
type StaticTokenSource string

// Token returns the configured token, or ErrChallengeUnavailable when empty.
func (s StaticTokenSource) Token(context.Context) (string, error) {
	if s == "" {
		return "", ErrChallengeUnavailable
	}
	return string(s), nil
}
