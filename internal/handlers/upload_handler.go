package handlers

import (
	"io"

	"estoque/internal/uploads"

	"github.com/gofiber/fiber/v2"
)

// UploadHandler handles image upload and retrieval.
type UploadHandler struct {
	uploadService *uploads.Service
}

// NewUploadHandler creates a new UploadHandler.
func NewUploadHandler(uploadService *uploads.Service) *UploadHandler {
	return &UploadHandler{
		uploadService: uploadService,
	}
}

type localStorage interface {
	Dir() string
}

// RegisterRoutes registers POST /upload and the read-only /uploads files.
// Disk storage is served by Fiber's static handler.
func (h *UploadHandler) RegisterRoutes(router fiber.Router) {
	router.Post("/upload", h.HandleUpload)
	if disk, ok := h.uploadService.Storage().(localStorage); ok {
		router.Static(uploads.URLPrefix, disk.Dir(), fiber.Static{
			Browse: false,
		})
		return
	}
	router.Get(uploads.URLPrefix+"/:name", h.HandleServe)
}

// HandleUpload stores the single image sent in the "imagem" field.
func (h *UploadHandler) HandleUpload(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return writeError(c, uploads.ErrNoFile)
	}
	img, err := h.uploadService.Accept(c.UserContext(), form)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Upload realizado com sucesso!",
		"file":    img,
	})
}

// HandleServe streams a stored image.
func (h *UploadHandler) HandleServe(c *fiber.Ctx) error {
	rc, contentType, err := h.uploadService.Storage().Open(c.UserContext(), c.Params("name"))
	if err != nil {
		return writeError(c, err)
	}
	defer rc.Close()

	body, err := io.ReadAll(rc)
	if err != nil {
		return writeError(c, err)
	}
	if contentType != "" {
		c.Set(fiber.HeaderContentType, contentType)
	}
	return c.Send(body)
}
