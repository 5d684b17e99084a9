package auth

import (
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// ClaimsContextKey is where the middleware stores the validated claims
// in fiber's locals.
const ClaimsContextKey = "auth_claims"

// BearerAuth validates the Authorization header of admin requests.
// Expects: Authorization: Bearer <token>
func BearerAuth(privateKey string, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing Authorization header",
			})
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid Authorization header format. Expected: Bearer <token>",
			})
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := ValidateToken(privateKey, tokenString)
		if err != nil {
			logger.Debug("Rejected admin request", slog.Any("error", err))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		c.Locals(ClaimsContextKey, claims)
		return c.Next()
	}
}

// ClaimsFromContext returns the claims stored by BearerAuth, or nil.
func ClaimsFromContext(c *fiber.Ctx) *Claims {
	claims, _ := c.Locals(ClaimsContextKey).(*Claims)
	return claims
}
