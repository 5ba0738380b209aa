package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/evstation/charge-station/internal/service/auth"
)

// AdminAuthRequired gates the admin dashboard's HTTP routes behind a
// bearer token issued by auth.AdminTokenService. It has nothing to do
// with the TCP wire protocol's register/login actions.
func AdminAuthRequired(tokens *auth.AdminTokenService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing authorization header"})
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid authorization header format"})
		}

		subject, err := tokens.Validate(parts[1])
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid or expired token"})
		}

		c.Locals("operator", subject)
		return c.Next()
	}
}
