package middleware

import (
	"crypto/hmac"
	"strings"

	"github.com/creemops/creemledger/internal/pkg/env"
	"github.com/gofiber/fiber/v2"
)

// AdminTokenMiddleware authenticates requests to the billing query API with
// the shared operator token.
func AdminTokenMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		secret := env.GetEnv("ADMIN_API_TOKEN", "")
		if secret == "" {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "unavailable", "message": "Admin API is not configured"})
		}

		token := extractAdminTokenFromHeader(c)
		if token == "" || !hmac.Equal([]byte(token), []byte(secret)) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid admin token"})
		}
		return c.Next()
	}
}

func extractAdminTokenFromHeader(c *fiber.Ctx) string {
	token := strings.TrimSpace(c.Get("X-Admin-Token"))
	if token != "" {
		return token
	}
	auth := strings.TrimSpace(c.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
