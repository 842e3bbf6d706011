package utils

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/gofiber/fiber/v2"
	"github.com/oarkflow/hash"
)

const passwordMinLength = 8

// HashCheck verifies a password against a stored hash, falling back to a
// legacy algorithm when one is configured.
func HashCheck(password, hashStr, algo, legacyAlgo string) (bool, error) {
	ok, err := hash.Match(password, hashStr, algo)
	if ok || legacyAlgo == "" {
		return ok, err
	}
	return hash.Match(password, hashStr, legacyAlgo)
}

// SanitizeInput strips control characters and surrounding whitespace from
// user-supplied field values.
func SanitizeInput(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsControl(r) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

func ValidatePassword(password string) error {
	if len(password) < passwordMinLength {
		return fmt.Errorf("password must be at least %d characters long", passwordMinLength)
	}
	return nil
}

// GetClientIP returns the originating client address, preferring proxy
// headers over the socket address.
func GetClientIP(c *fiber.Ctx) string {
	if forwarded := c.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	if realIP := c.Get("X-Real-IP"); realIP != "" {
		return strings.TrimSpace(realIP)
	}
	return c.IP()
}
