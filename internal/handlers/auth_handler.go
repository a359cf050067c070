package handlers

import (
	"log/slog"

	"estoque/internal/middleware"
	"estoque/internal/services"
	"estoque/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	authService *services.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// RegisterRoutes registers the authentication routes with the Fiber app.
func (h *AuthHandler) RegisterRoutes(router fiber.Router) {
	router.Post("/register", h.HandleRegister)
	router.Post("/login", h.HandleLogin)
	router.Get("/protected", middleware.AuthRequired(h.authService), h.HandleProtected)
}

// CredentialsRequest represents the request body for register and login.
type CredentialsRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

func parseCredentials(c *fiber.Ctx) (CredentialsRequest, error) {
	var req CredentialsRequest
	if len(c.Body()) == 0 {
		return req, nil
	}
	if err := c.BodyParser(&req); err != nil {
		slog.Debug("error parsing credentials body", "error", err)
		return req, services.ErrMissingCredentials
	}
	if errs := validation.ValidateCredentials(req.Username, req.Password); len(errs) > 0 {
		return req, services.ErrMissingCredentials
	}
	return req, nil
}

// HandleRegister handles new user registration.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	req, err := parseCredentials(c)
	if err != nil {
		return writeError(c, err)
	}
	if err := h.authService.Register(c.UserContext(), req.Username, req.Password); err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Usuário registrado com sucesso!",
	})
}

// HandleLogin handles user login and issues a token.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	req, err := parseCredentials(c)
	if err != nil {
		return writeError(c, err)
	}
	token, err := h.authService.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"token": token})
}

// HandleProtected echoes the caller's token claims.
func (h *AuthHandler) HandleProtected(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message": "Você acessou uma rota protegida!",
		"user":    c.Locals(middleware.LocalUser),
	})
}
