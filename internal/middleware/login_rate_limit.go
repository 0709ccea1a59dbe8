package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// AuthRateLimit limits authentication attempts per phone number (falling back
// to the client IP) using Redis when available. Exceeding the budget maps to
// the RateLimited failure the flow contract defines.
func AuthRateLimit(cache *redis.Client, maxPerMin int) fiber.Handler {
	if maxPerMin <= 0 {
		maxPerMin = 5
	}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next() // no-op without Redis
		}
		var req struct {
			PhoneNumber string `json:"phone_number"`
		}
		_ = c.BodyParser(&req)
		key := strings.TrimSpace(req.PhoneNumber)
		if key == "" {
			key = c.IP()
		}
		bucket := "rl:auth:" + key
		cnt, err := cache.Incr(c.UserContext(), bucket).Result()
		if err != nil {
			return c.Next() // fail-open on cache errors
		}
		if cnt == 1 {
			cache.Expire(c.UserContext(), bucket, time.Minute)
		}
		if cnt > int64(maxPerMin) {
			return fiber.NewError(http.StatusTooManyRequests, "too many attempts, try again later")
		}
		return c.Next()
	}
}
