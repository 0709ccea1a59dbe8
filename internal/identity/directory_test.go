package identity

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mytt-app/selfcare/internal/logging"
	"github.com/mytt-app/selfcare/internal/notification"
)

type recordingNotifier struct {
	mu       sync.Mutex
	messages []notification.Message
}

func (n *recordingNotifier) Send(_ context.Context, m notification.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, m)
	return nil
}

func (n *recordingNotifier) lastCode() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.messages) == 0 {
		return ""
	}
	return n.messages[len(n.messages)-1].Body
}

func newTestDirectory() (*Directory, *recordingNotifier) {
	notifier := &recordingNotifier{}
	dir := NewDirectory(NewMemoryAccounts(), NewMemoryChallenges(), notifier, 6, 5*time.Minute, logging.Discard())
	return dir, notifier
}

func TestAuthenticateWithSecret(t *testing.T) {
	dir, _ := newTestDirectory()
	p := dir.NewProvider()
	ctx := context.Background()

	id, err := p.CreateAccountWithSecret(ctx, "98765432@mytt.com", "secret12")
	if err != nil {
		t.Fatalf("create account: %v", err)
	}

	authed, err := p.AuthenticateWithSecret(ctx, "98765432@mytt.com", "secret12")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if authed != id {
		t.Fatalf("expected identity %q, got %q", id, authed)
	}

	if _, err := p.AuthenticateWithSecret(ctx, "98765432@mytt.com", "wrong-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := p.AuthenticateWithSecret(ctx, "unknown@mytt.com", "secret12"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown key, got %v", err)
	}
}

func TestCreateAccountRejections(t *testing.T) {
	dir, _ := newTestDirectory()
	p := dir.NewProvider()
	ctx := context.Background()

	if _, err := p.CreateAccountWithSecret(ctx, "98765432@mytt.com", "12345"); !errors.Is(err, ErrPolicyRejected) {
		t.Fatalf("expected ErrPolicyRejected, got %v", err)
	}

	if _, err := p.CreateAccountWithSecret(ctx, "98765432@mytt.com", "secret12"); err != nil {
		t.Fatalf("create account: %v", err)
	}
	if _, err := p.CreateAccountWithSecret(ctx, "98765432@mytt.com", "secret34"); !errors.Is(err, ErrAccountExists) {
		t.Fatalf("expected ErrAccountExists, got %v", err)
	}
}

func TestSubscribeEmitsCurrentState(t *testing.T) {
	dir, _ := newTestDirectory()
	p := dir.NewProvider()
	ctx := context.Background()

	var emissions []string
	unsubscribe := p.Subscribe(func(id string) {
		emissions = append(emissions, id)
	})

	if len(emissions) != 1 || emissions[0] != "" {
		t.Fatalf("expected immediate signed-out emission, got %v", emissions)
	}

	id, err := p.CreateAccountWithSecret(ctx, "key@mytt.com", "secret12")
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	if len(emissions) != 2 || emissions[1] != id {
		t.Fatalf("expected sign-in emission %q, got %v", id, emissions)
	}

	unsubscribe()
	if err := p.SignOut(ctx); err != nil {
		t.Fatalf("sign out: %v", err)
	}
	if len(emissions) != 2 {
		t.Fatalf("expected no emissions after unsubscribe, got %v", emissions)
	}
}

func TestRevokeSignsOutBoundHandles(t *testing.T) {
	dir, _ := newTestDirectory()
	first := dir.NewProvider()
	second := dir.NewProvider()
	ctx := context.Background()

	id, err := first.CreateAccountWithSecret(ctx, "key@mytt.com", "secret12")
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	if _, err := second.AuthenticateWithSecret(ctx, "key@mytt.com", "secret12"); err != nil {
		t.Fatalf("authenticate second handle: %v", err)
	}

	var firstState, secondState string
	first.Subscribe(func(id string) { firstState = id })
	second.Subscribe(func(id string) { secondState = id })
	if firstState != id || secondState != id {
		t.Fatalf("expected both handles signed in, got %q and %q", firstState, secondState)
	}

	dir.Revoke(id)
	if firstState != "" || secondState != "" {
		t.Fatalf("expected both handles signed out after revoke, got %q and %q", firstState, secondState)
	}
}

func TestConfirmChallengeReusesPhoneAccount(t *testing.T) {
	dir, notifier := newTestDirectory()
	p := dir.NewProvider()
	ctx := context.Background()

	pending, err := p.RequestPhoneChallenge(ctx, "+21698765432", "token")
	if err != nil {
		t.Fatalf("request challenge: %v", err)
	}
	first, err := p.ConfirmChallenge(ctx, pending, notifier.lastCode())
	if err != nil {
		t.Fatalf("confirm challenge: %v", err)
	}

	pending, err = p.RequestPhoneChallenge(ctx, "+21698765432", "token")
	if err != nil {
		t.Fatalf("second challenge: %v", err)
	}
	second, err := p.ConfirmChallenge(ctx, pending, notifier.lastCode())
	if err != nil {
		t.Fatalf("second confirm: %v", err)
	}
	if first != second {
		t.Fatalf("expected stable phone identity, got %q then %q", first, second)
	}
}

func TestRequestChallengeRequiresToken(t *testing.T) {
	dir, _ := newTestDirectory()
	p := dir.NewProvider()

	if _, err := p.RequestPhoneChallenge(context.Background(), "+21698765432", ""); !errors.Is(err, ErrChallengeUnavailable) {
		t.Fatalf("expected ErrChallengeUnavailable, got %v", err)
	}
}

func TestConfirmChallengeWrongCode(t *testing.T) {
	dir, notifier := newTestDirectory()
	p := dir.NewProvider()
	ctx := context.Background()

	pending, err := p.RequestPhoneChallenge(ctx, "+21698765432", "token")
	if err != nil {
		t.Fatalf("request challenge: %v", err)
	}
	if _, err := p.ConfirmChallenge(ctx, pending, "not-the-code"); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("expected ErrInvalidCode, got %v", err)
	}

	// A wrong attempt does not consume the challenge.
	if _, err := p.ConfirmChallenge(ctx, pending, notifier.lastCode()); err != nil {
		t.Fatalf("confirm after wrong code: %v", err)
	}
}
