package handlers

import (
	"errors"
	"log/slog"

	"estoque/internal/services"
	"estoque/internal/uploads"
	"estoque/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// writeError maps domain errors to their HTTP response. Anything unknown is
// a 500 that carries the underlying message.
func writeError(c *fiber.Ctx, err error) error {
	var verrs validation.Errors
	switch {
	case errors.As(err, &verrs):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"erros": verrs})
	case errors.Is(err, services.ErrProductExists),
		errors.Is(err, services.ErrUsernameTaken),
		errors.Is(err, services.ErrMissingCredentials),
		errors.Is(err, uploads.ErrNoFile),
		errors.Is(err, uploads.ErrTooManyFiles),
		errors.Is(err, uploads.ErrInvalidType),
		errors.Is(err, uploads.ErrTooLarge):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	case errors.Is(err, services.ErrProductNotFound), errors.Is(err, uploads.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidCredentials):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": err.Error()})
	case errors.Is(err, services.ErrInvalidToken):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"message": err.Error()})
	}

	slog.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"message": "Internal server error",
		"error":   err.Error(),
	})
}
