package middleware

import (
	"log/slog"
	"strings"

	"estoque/internal/services"

	"github.com/dgrijalva/jwt-go"
	"github.com/gofiber/fiber/v2"
)

// Locals keys set by AuthRequired.
const (
	LocalUser     = "user"
	LocalUsername = "username"
)

// TokenValidator checks a bearer token and returns its claims.
type TokenValidator interface {
	ValidateToken(token string) (jwt.MapClaims, error)
}

var _ TokenValidator = (*services.AuthService)(nil)

// AuthRequired is a Fiber middleware to check for a valid bearer token.
// Both a missing and an invalid token answer 403.
func AuthRequired(auth TokenValidator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Expected format: "Bearer <token>"
		parts := strings.SplitN(strings.TrimSpace(c.Get(fiber.HeaderAuthorization)), " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"message": "Acesso negado",
			})
		}

		claims, err := auth.ValidateToken(strings.TrimSpace(parts[1]))
		if err != nil {
			slog.Debug("token rejected", "path", c.Path(), "error", err)
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"message": services.ErrInvalidToken.Error(),
			})
		}

		c.Locals(LocalUser, claims)
		c.Locals(LocalUsername, claims["username"])
		return c.Next()
	}
}
