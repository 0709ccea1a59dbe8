package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mytt-app/selfcare/internal/identity"
	"github.com/mytt-app/selfcare/internal/logging"
	"github.com/mytt-app/selfcare/internal/notification"
	"github.com/mytt-app/selfcare/internal/profile"
)

type captureNotifier struct {
	mu   sync.Mutex
	last notification.Message
}

func (n *captureNotifier) Send(_ context.Context, m notification.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.last = m
	return nil
}

func (n *captureNotifier) code() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.last.Body
}

func newTestEngine(t *testing.T) (*Engine, profile.Store, *captureNotifier) {
	t.Helper()
	logger := logging.Discard()
	notifier := &captureNotifier{}
	dir := identity.NewDirectory(identity.NewMemoryAccounts(), identity.NewMemoryChallenges(), notifier, 6, 5*time.Minute, logger)
	profiles := profile.NewMemoryStore()
	engine := NewEngine(dir.NewProvider(), profiles, identity.StaticTokenSource("test-token"), "+216", logger)
	return engine, profiles, notifier
}

func TestSignupThenLoginRoundtrip(t *testing.T) {
	engine, profiles, _ := newTestEngine(t)
	ctx := context.Background()

	out, err := engine.Signup(ctx, "98765432", "secret12", "Ahmed Ben Ali")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if out.Profile == nil || out.Profile.PhoneNumber != "98765432" {
		t.Fatalf("expected profile for 98765432, got %+v", out.Profile)
	}

	logged, err := engine.Login(ctx, "98765432", "secret12")
	if err != nil {
		t.Fatalf("login after signup: %v", err)
	}
	if logged.Identity != out.Identity {
		t.Fatalf("expected identity %q, got %q", out.Identity, logged.Identity)
	}

	p, err := profiles.Get(ctx, logged.Identity)
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if p.PhoneNumber != "98765432" {
		t.Fatalf("expected phone 98765432, got %q", p.PhoneNumber)
	}
}

func TestLoginUnknownAccount(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	_, err := engine.Login(context.Background(), "20000000", "whatever1")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestSignupDuplicateKey(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	if _, err := engine.Signup(ctx, "98765432", "secret12", "First"); err != nil {
		t.Fatalf("signup: %v", err)
	}
	_, err := engine.Signup(ctx, "98765432", "secret34", "Second")
	if !errors.Is(err, ErrAccountCreationFailed) {
		t.Fatalf("expected ErrAccountCreationFailed, got %v", err)
	}
}

func TestSignupPolicyRejected(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	_, err := engine.Signup(context.Background(), "98765432", "1234", "Short Secret")
	if !errors.Is(err, ErrAccountCreationFailed) {
		t.Fatalf("expected ErrAccountCreationFailed, got %v", err)
	}
}

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"98765432", "+21698765432"},
		{"+21698765432", "+21698765432"},
		{" 98 765-432 ", "+21698765432"},
		{"+33612345678", "+33612345678"},
	}
	for _, tc := range cases {
		got := NormalizePhone(tc.in, "+216")
		if got != tc.want {
			t.Fatalf("NormalizePhone(%q) = %q, want %q", tc.in, got, tc.want)
		}
		if again := NormalizePhone(got, "+216"); again != got {
			t.Fatalf("normalization not idempotent: %q -> %q", got, again)
		}
	}
}

func TestOTPSignupScenario(t *testing.T) {
	engine, _, notifier := newTestEngine(t)
	ctx := context.Background()

	if err := engine.InitiateSignup(ctx, "98765432", "Ahmed Ben Ali"); err != nil {
		t.Fatalf("initiate signup: %v", err)
	}

	out, err := engine.VerifySignup(ctx, notifier.code())
	if err != nil {
		t.Fatalf("verify signup: %v", err)
	}
	p := out.Profile
	if p == nil {
		t.Fatal("expected profile in outcome")
	}
	if p.PhoneNumber != "98765432" || p.Name != "Ahmed Ben Ali" {
		t.Fatalf("unexpected profile identity fields: %+v", p)
	}
	if p.DataBalance != 0 || p.CallCredit != 0 || p.NextInvoiceDate != "" || p.NextInvoiceAmount != 0 {
		t.Fatalf("expected zeroed balances on signup, got %+v", p)
	}
}

func TestOTPInitiateTwiceLastWriteWins(t *testing.T) {
	engine, _, notifier := newTestEngine(t)
	ctx := context.Background()

	if err := engine.InitiateSignup(ctx, "11111111", "First Name"); err != nil {
		t.Fatalf("first initiate: %v", err)
	}
	firstCode := notifier.code()

	if err := engine.InitiateSignup(ctx, "22222222", "Second Name"); err != nil {
		t.Fatalf("second initiate: %v", err)
	}

	// The first challenge was discarded together with its staged signup.
	secondCode := notifier.code()
	if firstCode != secondCode {
		if _, err := engine.VerifySignup(ctx, firstCode); !errors.Is(err, ErrInvalidCode) {
			t.Fatalf("expected ErrInvalidCode for stale code, got %v", err)
		}
	}

	out, err := engine.VerifySignup(ctx, secondCode)
	if err != nil {
		t.Fatalf("verify second signup: %v", err)
	}
	if out.Profile.PhoneNumber != "22222222" || out.Profile.Name != "Second Name" {
		t.Fatalf("expected second signup data, got %+v", out.Profile)
	}
}

func TestVerifyWithoutInitiate(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	if _, err := engine.VerifyLogin(ctx, "123456"); !errors.Is(err, ErrNoPendingChallenge) {
		t.Fatalf("expected ErrNoPendingChallenge, got %v", err)
	}
	if _, err := engine.VerifySignup(ctx, "123456"); !errors.Is(err, ErrNoPendingChallenge) {
		t.Fatalf("expected ErrNoPendingChallenge, got %v", err)
	}
}

func TestVerifyLoginProfileMissing(t *testing.T) {
	engine, _, notifier := newTestEngine(t)
	ctx := context.Background()

	// Phone identity created outside normal signup: the challenge confirms
	// fine but no profile document exists.
	if err := engine.InitiateLogin(ctx, "98765432"); err != nil {
		t.Fatalf("initiate login: %v", err)
	}
	_, err := engine.VerifyLogin(ctx, notifier.code())
	if !errors.Is(err, ErrProfileMissing) {
		t.Fatalf("expected ErrProfileMissing, got %v", err)
	}
}

func TestVerifyWrongCodeKeepsChallenge(t *testing.T) {
	engine, profiles, notifier := newTestEngine(t)
	ctx := context.Background()

	if err := engine.InitiateSignup(ctx, "98765432", "Ahmed Ben Ali"); err != nil {
		t.Fatalf("initiate signup: %v", err)
	}
	if _, err := engine.VerifySignup(ctx, "000000x"); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("expected ErrInvalidCode, got %v", err)
	}

	// The challenge survives a wrong code; the right one still completes.
	out, err := engine.VerifySignup(ctx, notifier.code())
	if err != nil {
		t.Fatalf("verify after wrong code: %v", err)
	}
	if _, err := profiles.Get(ctx, out.Identity); err != nil {
		t.Fatalf("profile after signup: %v", err)
	}
}

func TestMockLoginIdempotent(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	first, err := engine.MockLogin(ctx, "98765432")
	if err != nil {
		t.Fatalf("mock login: %v", err)
	}
	second, err := engine.MockLogin(ctx, "98765432")
	if err != nil {
		t.Fatalf("second mock login: %v", err)
	}
	if first.Identity != second.Identity {
		t.Fatalf("expected stable identity, got %q then %q", first.Identity, second.Identity)
	}
	if second.Profile.DataBalance != mockDataBalance || second.Profile.CallCredit != mockCallCredit {
		t.Fatalf("expected placeholder balances, got %+v", second.Profile)
	}
}

func TestInitiateWithoutChallengeToken(t *testing.T) {
	logger := logging.Discard()
	dir := identity.NewDirectory(identity.NewMemoryAccounts(), identity.NewMemoryChallenges(), nil, 6, 5*time.Minute, logger)
	engine := NewEngine(dir.NewProvider(), profile.NewMemoryStore(), identity.StaticTokenSource(""), "+216", logger)

	err := engine.InitiateLogin(context.Background(), "98765432")
	if !errors.Is(err, ErrChallengeUnavailable) {
		t.Fatalf("expected ErrChallengeUnavailable, got %v", err)
	}
}
