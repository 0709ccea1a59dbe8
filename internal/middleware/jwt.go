package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/mytt-app/selfcare/internal/auth"
)

// IdentityLocal is the fiber.Ctx locals key the verified identity is stored under.
const IdentityLocal = "identity"

// BearerAuth verifies the device-session token and stores the identity it was
// issued for in locals.
func BearerAuth(tokens *auth.TokenIssuer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		identity, err := tokens.Verify(token)
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "invalid token")
		}
		c.Locals(IdentityLocal, identity)
		return c.Next()
	}
}
