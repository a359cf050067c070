package middleware

import (
	"strings"

	"estoque/internal/models"
	"estoque/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// LocalProductInput is the Locals key holding the validated models.ProductInput.
const LocalProductInput = "productInput"

// ValidateProduct parses a JSON or form product body and validates it. On
// success the normalized input is stored under LocalProductInput.
func ValidateProduct() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req validation.ProductRequest
		ct := strings.ToLower(string(c.Request().Header.ContentType()))
		switch {
		case strings.HasPrefix(ct, fiber.MIMEApplicationForm), strings.HasPrefix(ct, fiber.MIMEMultipartForm):
			req.Nome = c.FormValue("nome")
			req.Quantidade = validation.NewQuantity(c.FormValue("quantidade"))
			req.Imagem = c.FormValue("imagem")
		case len(c.Body()) == 0:
			// nothing to parse; every field is reported missing
		default:
			if err := c.BodyParser(&req); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"message": "Invalid request body",
					"error":   err.Error(),
				})
			}
		}

		input, errs := validation.ValidateProduct(req)
		if len(errs) > 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"erros": errs,
			})
		}
		c.Locals(LocalProductInput, input)
		return c.Next()
	}
}

// ProductInput returns the input stored by ValidateProduct.
func ProductInput(c *fiber.Ctx) (models.ProductInput, bool) {
	input, ok := c.Locals(LocalProductInput).(models.ProductInput)
	return input, ok
}
