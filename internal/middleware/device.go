package middleware

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// DeviceIDHeader carries the stable device identifier the mobile client
// generates at install time. It keys the per-device session controller.
const DeviceIDHeader = "X-Device-ID"

// DeviceIDLocal is the fiber.Ctx locals key the device identifier is stored under.
const DeviceIDLocal = "device_id"

// RequireDevice rejects requests without a device identifier and stashes it in
// locals for handlers.
func RequireDevice() fiber.Handler {
	return func(c *fiber.Ctx) error {
		deviceID := c.Get(DeviceIDHeader)
		if deviceID == "" {
			return fiber.NewError(http.StatusBadRequest, DeviceIDHeader+" header is required")
		}
		c.Locals(DeviceIDLocal, deviceID)
		return c.Next()
	}
}
