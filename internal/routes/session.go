package routes

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/mytt-app/selfcare/internal/auth"
	"github.com/mytt-app/selfcare/internal/middleware"
	"github.com/mytt-app/selfcare/internal/profile"
	"github.com/mytt-app/selfcare/internal/session"
)

// RegisterSessionRoutes wires the read-only session projection the app polls,
// plus the token-guarded profile endpoint.
func RegisterSessionRoutes(r fiber.Router, sessions *session.Registry, profiles profile.Store, tokens *auth.TokenIssuer) {
	r.Get("/session", middleware.RequireDevice(), func(c *fiber.Ctx) error {
		ctl := deviceSession(c, sessions)
		cur := ctl.Current()
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     string(cur.Status),
			"is_loading": ctl.IsLoading(),
			"user":       userPayload(ctl.User()),
			"version":    cur.Version,
		})
	})

	// Dropping the device session releases its provider handle and stream
	// subscription.
	r.Delete("/session", middleware.RequireDevice(), func(c *fiber.Ctx) error {
		deviceID, _ := c.Locals(middleware.DeviceIDLocal).(string)
		sessions.Evict(deviceID)
		return c.SendStatus(http.StatusNoContent)
	})

	r.Get("/me", middleware.BearerAuth(tokens), func(c *fiber.Ctx) error {
		identityKey, _ := c.Locals(middleware.IdentityLocal).(string)
		p, err := profiles.Get(c.UserContext(), identityKey)
		if err != nil {
			return flowError(err)
		}
		return c.Status(http.StatusOK).JSON(userPayload(&p))
	})
}
