package identity

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mytt-app/selfcare/internal/notification"
)

const minSecretLength = 6

// Directory is the account and challenge backend shared by all provider
// handles in this process. It stands in for the remote identity service:
// handles created from the same Directory see the same accounts, and a revoke
// for an identity reaches every handle signed in as it.
type Directory struct {
	accounts   Accounts
	challenges ChallengeStore
	notifier   notification.Notifier
	codeLength int
	otpTTL     time.Duration
	logger     *slog.Logger

	mu      sync.Mutex
	handles map[*DirectoryProvider]struct{}
}

// NewDirectory builds the shared identity backend.
func NewDirectory(accounts Accounts, challenges ChallengeStore, notifier notification.Notifier, codeLength int, otpTTL time.Duration, logger *slog.Logger) *Directory {
	return &Directory{
		accounts:   accounts,
		challenges: challenges,
		notifier:   notifier,
		codeLength: codeLength,
		otpTTL:     otpTTL,
		logger:     logger,
		handles:    make(map[*DirectoryProvider]struct{}),
	}
}

// NewProvider creates a per-device-session provider handle.
func (d *Directory) NewProvider() *DirectoryProvider {
	p := &DirectoryProvider{dir: d, subs: make(map[int]func(string))}
	d.mu.Lock()
	d.handles[p] = struct{}{}
	d.mu.Unlock()
	return p
}

// Revoke signs the identity out of every handle currently bound to it. This is
// the out-of-band path a cross-device sign-out takes.
func (d *Directory) Revoke(identity string) {
	d.mu.Lock()
	handles := make([]*DirectoryProvider, 0, len(d.handles))
	for h := range d.handles {
		handles = append(handles, h)
	}
	d.mu.Unlock()

	for _, h := range handles {
		h.clearIf(identity)
	}
}

func (d *Directory) release(p *DirectoryProvider) {
	d.mu.Lock()
	delete(d.handles, p)
	d.mu.Unlock()
}

// DirectoryProvider is the Provider implementation over a Directory. Each
// instance tracks one signed-in identity, like a mobile auth SDK instance.
type DirectoryProvider struct {
	dir *Directory

	mu      sync.Mutex
	current string
	subs    map[int]func(string)
	nextSub int
}

var _ Provider = (*DirectoryProvider)(nil)

// AuthenticateWithSecret checks a key/secret pair against the directory and
// signs the handle in on success.
func (p *DirectoryProvider) AuthenticateWithSecret(ctx context.Context, key, secret string) (string, error) {
	acc, err := p.dir.accounts.FindByKey(ctx, key)
	if errors.Is(err, errAccountNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}
	if len(acc.SecretHash) == 0 {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(acc.SecretHash, []byte(secret)); err != nil {
		return "", ErrInvalidCredentials
	}
	p.setIdentity(acc.ID)
	return acc.ID, nil
}

// CreateAccountWithSecret registers a new password account and signs the
// handle in as it.
func (p *DirectoryProvider) CreateAccountWithSecret(ctx context.Context, key, secret string) (string, error) {
	if len(secret) < minSecretLength {
		return "", ErrPolicyRejected
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	acc := Account{
		ID:         uuid.NewString(),
		Key:        key,
		SecretHash: hash,
		CreatedAt:  time.Now().UTC(),
	}
	if err := p.dir.accounts.Create(ctx, acc); err != nil {
		return "", err
	}
	p.setIdentity(acc.ID)
	return acc.ID, nil
}

// RequestPhoneChallenge issues an out-of-band code for the number and returns
// the handle to verify it against. The anti-automation token must be present.
func (p *DirectoryProvider) RequestPhoneChallenge(ctx context.Context, number, challengeToken string) (PendingVerification, error) {
	if challengeToken == "" {
		return PendingVerification{}, ErrChallengeUnavailable
	}

	code, err := randomCode(p.dir.codeLength)
	if err != nil {
		return PendingVerification{}, fmt.Errorf("%w: %v", ErrChallengeUnavailable, err)
	}
	id := uuid.NewString()
	if err := p.dir.challenges.Put(ctx, id, Challenge{Phone: number, Code: code}, p.dir.otpTTL); err != nil {
		return PendingVerification{}, fmt.Errorf("%w: %v", ErrChallengeUnavailable, err)
	}

	if p.dir.notifier != nil {
		if err := p.dir.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindOTPChallenge,
			Destination: number,
			Body:        code,
		}); err != nil && p.dir.logger != nil {
			p.dir.logger.Warn("otp delivery failed", "number", number, "error", err)
		}
	}

	return PendingVerification{id: id}, nil
}

// ConfirmChallenge verifies the code for a pending challenge. On success the
// phone account is looked up or created and the handle signs in as it. A wrong
// code leaves the challenge in place for another attempt.
func (p *DirectoryProvider) ConfirmChallenge(ctx context.Context, pending PendingVerification, code string) (string, error) {
	if pending.IsZero() {
		return "", ErrInvalidCode
	}
	ch, err := p.dir.challenges.Get(ctx, pending.id)
	if errors.Is(err, errChallengeNotFound) {
		return "", ErrInvalidCode
	}
	if err != nil {
		return "", err
	}
	if subtle.ConstantTimeCompare([]byte(ch.Code), []byte(code)) != 1 {
		return "", ErrInvalidCode
	}
	if err := p.dir.challenges.Delete(ctx, pending.id); err != nil {
		return "", err
	}

	acc, err := p.dir.accounts.FindByKey(ctx, ch.Phone)
	if errors.Is(err, errAccountNotFound) {
		acc = Account{
			ID:        uuid.NewString(),
			Key:       ch.Phone,
			Phone:     ch.Phone,
			CreatedAt: time.Now().UTC(),
		}
		if createErr := p.dir.accounts.Create(ctx, acc); createErr != nil {
			return "", createErr
		}
	} else if err != nil {
		return "", err
	}

	p.setIdentity(acc.ID)
	return acc.ID, nil
}

// SignOut clears the handle's identity and notifies subscribers.
func (p *DirectoryProvider) SignOut(context.Context) error {
	p.setIdentity("")
	return nil
}

// Subscribe registers an auth-state listener. The callback fires once
// immediately with the current state, then on every change, until the returned
// function is called.
func (p *DirectoryProvider) Subscribe(onChange func(identity string)) func() {
	p.mu.Lock()
	id := p.nextSub
	p.nextSub++
	p.subs[id] = onChange
	current := p.current
	p.mu.Unlock()

	onChange(current)

	return func() {
		p.mu.Lock()
		delete(p.subs, id)
		p.mu.Unlock()
	}
}

// Close detaches the handle from the directory.
func (p *DirectoryProvider) Close() {
	p.dir.release(p)
}

func (p *DirectoryProvider) setIdentity(identity string) {
	p.mu.Lock()
	p.current = identity
	subs := make([]func(string), 0, len(p.subs))
	for _, cb := range p.subs {
		subs = append(subs, cb)
	}
	p.mu.Unlock()

	for _, cb := range subs {
		cb(identity)
	}
}

func (p *DirectoryProvider) clearIf(identity string) {
	p.mu.Lock()
	match := p.current != "" && p.current == identity
	p.mu.Unlock()
	if match {
		p.setIdentity("")
	}
}

func randomCode(length int) (string, error) {
	const digits = "0123456789"
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i := range buf {
		buf[i] = digits[int(buf[i])%len(digits)]
	}
	return string(buf), nil
}
