package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mytt-app/selfcare/internal/identity"
	"github.com/mytt-app/selfcare/internal/profile"
)

// Placeholder projections the mock flow seeds new profiles with, matching
// what the app shows for demo accounts.
const (
	mockDataBalance       = 2.5
	mockCallCredit        = 12.75
	mockNextInvoiceDate   = "2025-02-15"
	mockNextInvoiceAmount = 45.0
	mockProfileName       = "Demo User"
)

// Outcome is the common result contract every flow resolves to: the
// authenticated identity, plus the profile document when the flow itself
// fetched or created it. A nil Profile means the caller reconciles against the
// store.
type Outcome struct {
	Identity string
	Profile  *profile.UserProfile
}

// PendingSignup stages the data a signup flow captured at initiation. It is
// consumed only when the matching verification succeeds and discarded on any
// restart.
type PendingSignup struct {
	PhoneNumber string
	Name        string
}

// Engine implements the three mutually exclusive credential flows as one
// stateful unit per device session: password login/signup against a synthetic
// account key, phone-OTP login/signup, and a mock flow for development builds.
// At most one OTP challenge is pending at a time; initiating a new one
// discards the previous challenge and any staged signup (last write wins).
type Engine struct {
	provider      identity.Provider
	profiles      profile.Store
	challengeSrc  identity.ChallengeTokenSource
	countryPrefix string
	logger        *slog.Logger

	mu            sync.Mutex
	pending       identity.PendingVerification
	pendingSignup *PendingSignup
}

// NewEngine builds a flow engine bound to one provider handle.
func NewEngine(provider identity.Provider, profiles profile.Store, challengeSrc identity.ChallengeTokenSource, countryPrefix string, logger *slog.Logger) *Engine {
	return &Engine{
		provider:      provider,
		profiles:      profiles,
		challengeSrc:  challengeSrc,
		countryPrefix: countryPrefix,
		logger:        logger,
	}
}

// Login runs the password flow: the phone number becomes a synthetic account
// key and the provider checks the secret against it. No retry is attempted on
// failure.
func (e *Engine) Login(ctx context.Context, phoneNumber, password string) (Outcome, error) {
	key := SyntheticKey(phoneNumber)
	id, err := e.provider.AuthenticateWithSecret(ctx, key, password)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			return Outcome{}, ErrInvalidCredentials
		}
		return Outcome{}, fmt.Errorf("authenticate: %w", err)
	}
	return Outcome{Identity: id}, nil
}

// Signup runs the password signup flow: account creation under the synthetic
// key, then the profile document keyed by the new identity.
func (e *Engine) Signup(ctx context.Context, phoneNumber, password, name string) (Outcome, error) {
	key := SyntheticKey(phoneNumber)
	id, err := e.provider.CreateAccountWithSecret(ctx, key, password)
	if err != nil {
		if errors.Is(err, identity.ErrAccountExists) || errors.Is(err, identity.ErrPolicyRejected) {
			return Outcome{}, fmt.Errorf("%w: %v", ErrAccountCreationFailed, err)
		}
		return Outcome{}, fmt.Errorf("create account: %w", err)
	}

	p := profile.UserProfile{
		ID:          id,
		PhoneNumber: phoneNumber,
		Name:        name,
	}
	if err := e.profiles.Upsert(ctx, id, p); err != nil {
		return Outcome{}, err
	}
	return Outcome{Identity: id, Profile: &p}, nil
}

// InitiateLogin starts the phone-OTP login flow by requesting a challenge for
// the normalized number.
func (e *Engine) InitiateLogin(ctx context.Context, phoneNumber string) error {
	return e.initiate(ctx, phoneNumber, nil)
}

// InitiateSignup starts the phone-OTP signup flow, staging the signup data
// until its verification succeeds.
func (e *Engine) InitiateSignup(ctx context.Context, phoneNumber, name string) error {
	return e.initiate(ctx, phoneNumber, &PendingSignup{PhoneNumber: phoneNumber, Name: name})
}

func (e *Engine) initiate(ctx context.Context, phoneNumber string, signup *PendingSignup) error {
	number := NormalizePhone(phoneNumber, e.countryPrefix)

	token, err := e.challengeSrc.Token(ctx)
	if err != nil {
		return fmt.Errorf("%w: anti-automation token: %v", ErrChallengeUnavailable, err)
	}

	pending, err := e.provider.RequestPhoneChallenge(ctx, number, token)
	if err != nil {
		if errors.Is(err, identity.ErrChallengeUnavailable) {
			return fmt.Errorf("%w: %v", ErrChallengeUnavailable, err)
		}
		return fmt.Errorf("request challenge: %w", err)
	}
	if e.logger != nil {
		e.logger.Info("phone challenge requested", "number", number, "signup", signup != nil)
	}

	e.mu.Lock()
	e.pending = pending
	e.pendingSignup = signup
	e.mu.Unlock()
	return nil
}

// VerifyLogin submits the code for a pending login challenge and fetches the
// profile for the resulting identity. A phone identity without a profile is an
// account created outside normal signup and fails with ErrProfileMissing.
func (e *Engine) VerifyLogin(ctx context.Context, code string) (Outcome, error) {
	id, err := e.confirm(ctx, code)
	if err != nil {
		return Outcome{}, err
	}

	p, err := e.profiles.Get(ctx, id)
	if errors.Is(err, profile.ErrNotFound) {
		return Outcome{}, ErrProfileMissing
	}
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Identity: id, Profile: &p}, nil
}

// VerifySignup submits the code for a pending signup challenge and creates the
// profile from the staged signup data with zeroed balances.
func (e *Engine) VerifySignup(ctx context.Context, code string) (Outcome, error) {
	e.mu.Lock()
	signup := e.pendingSignup
	e.mu.Unlock()
	if signup == nil {
		return Outcome{}, ErrNoPendingChallenge
	}

	id, err := e.confirm(ctx, code)
	if err != nil {
		return Outcome{}, err
	}

	p := profile.UserProfile{
		ID:          id,
		PhoneNumber: signup.PhoneNumber,
		Name:        signup.Name,
	}
	if err := e.profiles.Upsert(ctx, id, p); err != nil {
		return Outcome{}, err
	}
	return Outcome{Identity: id, Profile: &p}, nil
}

// confirm submits a code against the stored challenge handle. The handle is
// kept on a wrong code so the user can retype, and cleared on success.
func (e *Engine) confirm(ctx context.Context, code string) (string, error) {
	e.mu.Lock()
	pending := e.pending
	e.mu.Unlock()
	if pending.IsZero() {
		return "", ErrNoPendingChallenge
	}

	id, err := e.provider.ConfirmChallenge(ctx, pending, code)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCode) {
			return "", ErrInvalidCode
		}
		return "", fmt.Errorf("confirm challenge: %w", err)
	}

	e.mu.Lock()
	e.pending = identity.PendingVerification{}
	e.pendingSignup = nil
	e.mu.Unlock()
	return id, nil
}

// MockLogin authenticates without credentials for development builds: the
// number is normalized, sanitized into a stable key, and the profile is looked
// up or seeded with placeholder projections. Calling it twice with the same
// number resolves to the same identity.
func (e *Engine) MockLogin(ctx context.Context, phoneNumber string) (Outcome, error) {
	number := NormalizePhone(phoneNumber, e.countryPrefix)
	key := SanitizeKey(number)

	p, err := e.profiles.Get(ctx, key)
	if errors.Is(err, profile.ErrNotFound) {
		p = profile.UserProfile{
			ID:                key,
			PhoneNumber:       number,
			Name:              mockProfileName,
			DataBalance:       mockDataBalance,
			CallCredit:        mockCallCredit,
			NextInvoiceDate:   mockNextInvoiceDate,
			NextInvoiceAmount: mockNextInvoiceAmount,
		}
		if err := e.profiles.Upsert(ctx, key, p); err != nil {
			return Outcome{}, err
		}
	} else if err != nil {
		return Outcome{}, err
	}

	return Outcome{Identity: key, Profile: &p}, nil
}
