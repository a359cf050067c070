package handlers

import (
	"strconv"

	"estoque/internal/middleware"
	"estoque/internal/models"
	"estoque/internal/services"

	"github.com/gofiber/fiber/v2"
)

// ProductHandler handles HTTP requests for products.
type ProductHandler struct {
	productService *services.ProductService
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(productService *services.ProductService) *ProductHandler {
	return &ProductHandler{
		productService: productService,
	}
}

// RegisterRoutes registers the product routes with the Fiber app.
func (h *ProductHandler) RegisterRoutes(router fiber.Router) {
	productRoutes := router.Group("/produtos")
	productRoutes.Post("/", middleware.ValidateProduct(), h.HandleCreate)
	productRoutes.Get("/", h.HandleList)
	productRoutes.Get("/:id", h.HandleGet)
	productRoutes.Put("/:id", middleware.ValidateProduct(), h.HandleUpdate)
	productRoutes.Delete("/:id", h.HandleDelete)
}

// HandleCreate creates a product from the validated body.
func (h *ProductHandler) HandleCreate(c *fiber.Ctx) error {
	input, ok := middleware.ProductInput(c)
	if !ok {
		return fiber.NewError(fiber.StatusBadRequest, "missing product input")
	}
	product, err := h.productService.CreateProduct(c.UserContext(), input)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

// HandleList returns one page of products. Query: page, limit, nome, quantidade_min.
func (h *ProductHandler) HandleList(c *fiber.Ctx) error {
	filter := models.ProductFilter{
		Name:        c.Query("nome"),
		Page:        queryInt(c, "page"),
		Limit:       queryInt(c, "limit"),
		MinQuantity: queryInt(c, "quantidade_min"),
	}
	page, err := h.productService.ListProducts(c.UserContext(), filter)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(page)
}

// HandleGet returns a single product.
func (h *ProductHandler) HandleGet(c *fiber.Ctx) error {
	product, err := h.productService.GetProduct(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(product)
}

// HandleUpdate overwrites name and quantity of a product.
func (h *ProductHandler) HandleUpdate(c *fiber.Ctx) error {
	input, ok := middleware.ProductInput(c)
	if !ok {
		return fiber.NewError(fiber.StatusBadRequest, "missing product input")
	}
	if err := h.productService.UpdateProduct(c.UserContext(), c.Params("id"), input); err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Produto atualizado com sucesso"})
}

// HandleDelete removes a product.
func (h *ProductHandler) HandleDelete(c *fiber.Ctx) error {
	if err := h.productService.DeleteProduct(c.UserContext(), c.Params("id")); err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Produto excluído com sucesso"})
}

// queryInt reads an integer query parameter; missing or malformed values are 0.
func queryInt(c *fiber.Ctx, key string) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return 0
	}
	return n
}
