package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mytt-app/selfcare/internal/auth"
	"github.com/mytt-app/selfcare/internal/identity"
	"github.com/mytt-app/selfcare/internal/profile"
)

const degradedProfileName = "Unknown User"

// Controller owns the auth state for exactly one device session. It subscribes
// to the provider's auth-state stream, reconciles emissions against the
// profile store, and exposes the flow-engine entry points plus a read-only
// session projection. All transitions go through publish, which serializes
// them under one mutex and bumps the session version; concurrent writers
// resolve last-writer-wins, which is acceptable because only one
// authentication attempt is live per session.
type Controller struct {
	provider identity.Provider
	profiles profile.Store
	engine   *auth.Engine
	logger   *slog.Logger

	mu          sync.Mutex
	cur         Session
	unsubscribe func()
}

// NewController builds a controller in the Initializing state. Call Start to
// attach it to the provider's auth-state stream.
func NewController(provider identity.Provider, profiles profile.Store, engine *auth.Engine, logger *slog.Logger) *Controller {
	return &Controller{
		provider: provider,
		profiles: profiles,
		engine:   engine,
		logger:   logger,
		cur:      Session{Status: StatusInitializing},
	}
}

// Start subscribes to the provider stream. The provider emits the current
// state immediately, so the controller leaves Initializing before Start
// returns.
func (c *Controller) Start() {
	unsub := c.provider.Subscribe(c.onAuthState)
	c.mu.Lock()
	c.unsubscribe = unsub
	c.mu.Unlock()
}

// Close releases the stream subscription and the provider handle. Safe to call
// more than once.
func (c *Controller) Close() {
	c.mu.Lock()
	unsub := c.unsubscribe
	c.unsubscribe = nil
	c.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	if closer, ok := c.provider.(interface{ Close() }); ok {
		closer.Close()
	}
}

// Current returns a snapshot of the session.
func (c *Controller) Current() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cur
}

// User returns the published profile projection, nil when unauthenticated.
func (c *Controller) User() *profile.UserProfile {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cur.Status != StatusAuthenticated {
		return nil
	}
	return c.cur.Profile
}

// IsLoading reports whether the session has not settled yet.
func (c *Controller) IsLoading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cur.Status == StatusInitializing || c.cur.Status == StatusAuthenticating
}

// Login runs the password login flow and publishes the resulting session.
func (c *Controller) Login(ctx context.Context, phoneNumber, password string) error {
	return c.runFlow(ctx, func() (auth.Outcome, error) {
		return c.engine.Login(ctx, phoneNumber, password)
	})
}

// Signup runs the password signup flow and publishes the resulting session.
func (c *Controller) Signup(ctx context.Context, phoneNumber, password, name string) error {
	return c.runFlow(ctx, func() (auth.Outcome, error) {
		return c.engine.Signup(ctx, phoneNumber, password, name)
	})
}

// InitiateLogin requests an OTP challenge for login. The session state is
// untouched; the code-requested state lives in the flow engine.
func (c *Controller) InitiateLogin(ctx context.Context, phoneNumber string) error {
	return c.engine.InitiateLogin(ctx, phoneNumber)
}

// InitiateSignup requests an OTP challenge for signup, staging the name and
// number until verification.
func (c *Controller) InitiateSignup(ctx context.Context, phoneNumber, name string) error {
	return c.engine.InitiateSignup(ctx, phoneNumber, name)
}

// VerifyLogin completes the OTP login flow.
func (c *Controller) VerifyLogin(ctx context.Context, code string) error {
	return c.runFlow(ctx, func() (auth.Outcome, error) {
		return c.engine.VerifyLogin(ctx, code)
	})
}

// VerifySignup completes the OTP signup flow.
func (c *Controller) VerifySignup(ctx context.Context, code string) error {
	return c.runFlow(ctx, func() (auth.Outcome, error) {
		return c.engine.VerifySignup(ctx, code)
	})
}

// MockLogin completes the development-only flow. It bypasses the provider, so
// the session is published directly from the outcome.
func (c *Controller) MockLogin(ctx context.Context, phoneNumber string) error {
	return c.runFlow(ctx, func() (auth.Outcome, error) {
		return c.engine.MockLogin(ctx, phoneNumber)
	})
}

// Logout signs out at the provider, then clears the local session without
// waiting for the stream echo so the UI never shows a flash of stale data. On
// provider failure the session is left unchanged and retry is manual.
func (c *Controller) Logout(ctx context.Context) error {
	if err := c.provider.SignOut(ctx); err != nil {
		return fmt.Errorf("%w: %v", auth.ErrLogoutFailed, err)
	}
	c.publish(Session{Status: StatusUnauthenticated})
	return nil
}

// runFlow brackets a flow operation: Authenticating while in flight, the
// pre-call state restored on failure, and the outcome reconciled on success.
func (c *Controller) runFlow(ctx context.Context, op func() (auth.Outcome, error)) error {
	c.mu.Lock()
	prev := c.cur
	c.mu.Unlock()
	c.publish(Session{Identity: prev.Identity, Profile: prev.Profile, Status: StatusAuthenticating})

	out, err := op()
	if err != nil {
		c.publish(Session{Identity: prev.Identity, Profile: prev.Profile, Status: prev.Status})
		return err
	}

	c.resolve(ctx, out)
	return nil
}

// resolve publishes the authenticated session for an outcome, fetching the
// profile when the flow did not already produce one.
func (c *Controller) resolve(ctx context.Context, out auth.Outcome) {
	if out.Profile != nil {
		c.publish(Session{Identity: out.Identity, Profile: out.Profile, Status: StatusAuthenticated})
		return
	}

	c.mu.Lock()
	cur := c.cur
	c.mu.Unlock()
	// The stream emission fired inside the flow call and may have reconciled
	// this identity already.
	if cur.Status == StatusAuthenticated && cur.Identity == out.Identity && cur.Profile != nil {
		return
	}

	c.reconcile(ctx, out.Identity)
}

// onAuthState handles provider stream emissions, including out-of-band ones
// such as a cross-device sign-out. It never panics out of the handler: a store
// fault degrades the session to Unauthenticated instead.
func (c *Controller) onAuthState(identityKey string) {
	if identityKey == "" {
		c.publish(Session{Status: StatusUnauthenticated})
		return
	}
	c.reconcile(context.Background(), identityKey)
}

// reconcile fetches the profile for an identity and publishes the session. A
// missing profile publishes a degraded session with a synthesized minimal
// profile so the UI is never blocked on the document store.
func (c *Controller) reconcile(ctx context.Context, identityKey string) {
	p, err := c.profiles.Get(ctx, identityKey)
	switch {
	case err == nil:
		c.publish(Session{Identity: identityKey, Profile: &p, Status: StatusAuthenticated})
	case errors.Is(err, profile.ErrNotFound):
		degraded := profile.UserProfile{ID: identityKey, Name: degradedProfileName}
		c.publish(Session{Identity: identityKey, Profile: &degraded, Status: StatusAuthenticated})
	default:
		if c.logger != nil {
			c.logger.Error("profile reconciliation failed", "identity", identityKey, "error", err)
		}
		c.publish(Session{Status: StatusUnauthenticated})
	}
}

func (c *Controller) publish(s Session) {
	c.mu.Lock()
	s.Version = c.cur.Version + 1
	c.cur = s
	c.mu.Unlock()
}
