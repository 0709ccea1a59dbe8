package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

// RequestIDLocal is the fiber.Ctx locals key the request identifier is stored under.
const RequestIDLocal = requestIDHeader

// RequestID tags each request with a stable identifier, minting one when the
// client did not send its own. The identifier is echoed in the response header
// and stashed in locals for the audit log.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqID := c.Get(requestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
			c.Set(requestIDHeader, reqID)
		}
		c.Locals(RequestIDLocal, reqID)
		return c.Next()
	}
}
