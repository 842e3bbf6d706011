package middlewares

import (
	"github.com/gofiber/fiber/v2"
)

// SecurityHeaders sets the baseline security headers on every response.
func SecurityHeaders(c *fiber.Ctx) error {
	c.Set("X-Content-Type-Options", "nosniff")
	c.Set("X-Frame-Options", "DENY")
	c.Set("Referrer-Policy", "no-referrer")
	c.Set("Cache-Control", "no-store")
	return c.Next()
}
