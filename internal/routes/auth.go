package routes

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/mytt-app/selfcare/internal/auth"
	"github.com/mytt-app/selfcare/internal/config"
	"github.com/mytt-app/selfcare/internal/identity"
	"github.com/mytt-app/selfcare/internal/middleware"
	"github.com/mytt-app/selfcare/internal/profile"
	"github.com/mytt-app/selfcare/internal/session"
)

// RegisterAuthRoutes wires the credential-flow endpoints. Every endpoint is
// keyed by the device header: the controller it operates on belongs to that
// device session.
func RegisterAuthRoutes(r fiber.Router, cfg config.Config, sessions *session.Registry, tokens *auth.TokenIssuer, rateLimiter fiber.Handler) {
	group := r.Group("/auth", middleware.RequireDevice())

	group.Post("/login", rateLimiter, func(c *fiber.Ctx) error {
		var req struct {
			PhoneNumber string `json:"phone_number"`
			Password    string `json:"password"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		ctl := deviceSession(c, sessions)
		if err := ctl.Login(c.UserContext(), req.PhoneNumber, req.Password); err != nil {
			return flowError(err)
		}
		return authenticatedResponse(c, ctl, tokens)
	})

	group.Post("/signup", rateLimiter, func(c *fiber.Ctx) error {
		var req struct {
			PhoneNumber string `json:"phone_number"`
			Password    string `json:"password"`
			Name        string `json:"name"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		ctl := deviceSession(c, sessions)
		if err := ctl.Signup(c.UserContext(), req.PhoneNumber, req.Password, req.Name); err != nil {
			return flowError(err)
		}
		return authenticatedResponse(c, ctl, tokens)
	})

	group.Post("/otp/login", rateLimiter, func(c *fiber.Ctx) error {
		var req struct {
			PhoneNumber string `json:"phone_number"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		ctl := deviceSession(c, sessions)
		if err := ctl.InitiateLogin(c.UserContext(), req.PhoneNumber); err != nil {
			return flowError(err)
		}
		return c.Status(http.StatusAccepted).JSON(fiber.Map{"status": "code_requested"})
	})

	group.Post("/otp/signup", rateLimiter, func(c *fiber.Ctx) error {
		var req struct {
			PhoneNumber string `json:"phone_number"`
			Name        string `json:"name"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		ctl := deviceSession(c, sessions)
		if err := ctl.InitiateSignup(c.UserContext(), req.PhoneNumber, req.Name); err != nil {
			return flowError(err)
		}
		return c.Status(http.StatusAccepted).JSON(fiber.Map{"status": "code_requested"})
	})

	group.Post("/otp/verify-login", func(c *fiber.Ctx) error {
		return verify(c, sessions, tokens, (*session.Controller).VerifyLogin)
	})

	group.Post("/otp/verify-signup", func(c *fiber.Ctx) error {
		return verify(c, sessions, tokens, (*session.Controller).VerifySignup)
	})

	if cfg.IsDev() {
		group.Post("/mock-login", func(c *fiber.Ctx) error {
			var req struct {
				PhoneNumber string `json:"phone_number"`
			}
			if err := c.BodyParser(&req); err != nil {
				return fiber.NewError(http.StatusBadRequest, err.Error())
			}
			ctl := deviceSession(c, sessions)
			if err := ctl.MockLogin(c.UserContext(), req.PhoneNumber); err != nil {
				return flowError(err)
			}
			return authenticatedResponse(c, ctl, tokens)
		})
	}

	group.Post("/logout", func(c *fiber.Ctx) error {
		ctl := deviceSession(c, sessions)
		if err := ctl.Logout(c.UserContext()); err != nil {
			return flowError(err)
		}
		return c.Status(http.StatusOK).JSON(fiber.Map{"status": "logged_out"})
	})
}

func verify(c *fiber.Ctx, sessions *session.Registry, tokens *auth.TokenIssuer, op func(*session.Controller, context.Context, string) error) error {
	var req struct {
		Code string `json:"code"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	ctl := deviceSession(c, sessions)
	if err := op(ctl, c.UserContext(), req.Code); err != nil {
		return flowError(err)
	}
	return authenticatedResponse(c, ctl, tokens)
}

func deviceSession(c *fiber.Ctx, sessions *session.Registry) *session.Controller {
	deviceID, _ := c.Locals(middleware.DeviceIDLocal).(string)
	return sessions.Get(deviceID)
}

// authenticatedResponse renders the published session plus a fresh bearer token.
func authenticatedResponse(c *fiber.Ctx, ctl *session.Controller, tokens *auth.TokenIssuer) error {
	cur := ctl.Current()
	token, exp, err := tokens.Issue(cur.Identity)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"user":         userPayload(cur.Profile),
		"access_token": token,
		"expires_in":   int64(time.Until(exp).Seconds()),
	})
}

func userPayload(p *profile.UserProfile) fiber.Map {
	if p == nil {
		return nil
	}
	return fiber.Map{
		"id":                  p.ID,
		"phone_number":        p.PhoneNumber,
		"name":                p.Name,
		"data_balance":        p.DataBalance,
		"call_credit":         p.CallCredit,
		"next_invoice_date":   p.NextInvoiceDate,
		"next_invoice_amount": p.NextInvoiceAmount,
		"payment":             p.PaymentSettled(),
	}
}

// flowError maps the flow taxonomy onto HTTP statuses.
func flowError(err error) error {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidCode):
		return fiber.NewError(http.StatusUnauthorized, err.Error())
	case errors.Is(err, auth.ErrAccountCreationFailed), errors.Is(err, auth.ErrNoPendingChallenge):
		return fiber.NewError(http.StatusConflict, err.Error())
	case errors.Is(err, auth.ErrProfileMissing), errors.Is(err, profile.ErrNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, auth.ErrRateLimited):
		return fiber.NewError(http.StatusTooManyRequests, err.Error())
	case errors.Is(err, auth.ErrChallengeUnavailable),
		errors.Is(err, profile.ErrUnavailable),
		errors.Is(err, identity.ErrUnavailable):
		return fiber.NewError(http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, auth.ErrLogoutFailed):
		return fiber.NewError(http.StatusBadGateway, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
