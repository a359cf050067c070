package server

import (
	"errors"
	"log/slog"
	"time"

	"estoque/internal/handlers"
	"estoque/internal/notify"
	"estoque/internal/services"
	"estoque/internal/uploads"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// BodyLimit is the largest accepted request body.
const BodyLimit = 10 << 20

// Deps are the services the HTTP layer is built from.
type Deps struct {
	Products    *services.ProductService
	Auth        *services.AuthService
	Uploads     *uploads.Service
	Hub         *notify.Hub
	CORSOrigins string
	// DisableRequestLog turns off the per-request access log.
	DisableRequestLog bool
}

// New builds the Fiber app with middleware and every route registered.
func New(deps Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "estoque",
		BodyLimit:             BodyLimit,
		ErrorHandler:          errorHandler,
		DisableStartupMessage: true,
	})

	origins := deps.CORSOrigins
	if origins == "" {
		origins = "*"
	}
	app.Use(helmet.New(helmet.Config{
		CrossOriginResourcePolicy: "cross-origin",
	}))
	app.Use(cors.New(cors.Config{AllowOrigins: origins}))
	if !deps.DisableRequestLog {
		app.Use(logger.New())
	}
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	handlers.NewProductHandler(deps.Products).RegisterRoutes(app)
	handlers.NewAuthHandler(deps.Auth).RegisterRoutes(app)
	if deps.Uploads != nil {
		handlers.NewUploadHandler(deps.Uploads).RegisterRoutes(app)
	}
	if deps.Hub != nil {
		handlers.NewEventsHandler(deps.Hub).RegisterRoutes(app)
	}
	return app
}

// errorHandler renders framework errors as JSON. An oversized body is a
// client error like any other upload rejection.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}

	if code == fiber.StatusRequestEntityTooLarge {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": uploads.ErrTooLarge.Error(),
		})
	}
	if code >= fiber.StatusInternalServerError {
		slog.Error("unhandled error", "method", c.Method(), "path", c.Path(), "error", err)
	}
	return c.Status(code).JSON(fiber.Map{
		"message": "Request failed",
		"error":   err.Error(),
	})
}
