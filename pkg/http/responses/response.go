package responses

import (
	"github.com/gofiber/fiber/v2"
)

// Error writes the API error shape: a machine-readable tag in "error" and a
// human-readable detail in "msg".
func Error(c *fiber.Ctx, status int, tag, msg string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": tag,
		"msg":   msg,
	})
}

func JSON(c *fiber.Ctx, data any) error {
	return c.JSON(data)
}

func Render(c *fiber.Ctx, template string, data any, layouts ...string) error {
	if c == nil {
		return fiber.ErrBadRequest
	}
	if template == "" {
		return c.JSON(data)
	}
	c.Set("Content-Type", "text/html; charset=utf-8")
	return c.Render(template, data, layouts...)
}
