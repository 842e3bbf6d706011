package middlewares

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/oarkflow/tcloud-auth/pkg/libs"
	"github.com/oarkflow/tcloud-auth/pkg/utils"
)

// RateLimit protects an endpoint from excessive requests. The budget is
// tracked per client IP and endpoint path.
func RateLimit(security *libs.SecurityManager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		endpointID := fmt.Sprintf("%s:%s", utils.GetClientIP(c), c.Path())
		if !security.Allow(endpointID) {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":       "RateLimited",
				"msg":         "too many requests, please wait before trying again",
				"retry_after": "60",
			})
		}
		return c.Next()
	}
}
