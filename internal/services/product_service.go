package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"estoque/internal/models"
	"estoque/internal/repositories"
)

// LowStockThreshold is the quantity below which a newly created product
// triggers a low-stock notification.
const LowStockThreshold = 5

// Listing defaults.
const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// LowStockNotifier is told about products created with low stock.
type LowStockNotifier interface {
	NotifyLowStock(ctx context.Context, product models.Product)
}

// ProductService handles business logic related to products.
type ProductService struct {
	repo     repositories.ProductRepository
	notifier LowStockNotifier
	logger   *slog.Logger
}

// NewProductService creates a new ProductService. notifier may be nil.
func NewProductService(repo repositories.ProductRepository, notifier LowStockNotifier, logger *slog.Logger) *ProductService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProductService{
		repo:     repo,
		notifier: notifier,
		logger:   logger,
	}
}

// CreateProduct stores a new product if no product with the same name exists,
// and raises a low-stock notification when its quantity is under the threshold.
func (s *ProductService) CreateProduct(ctx context.Context, input models.ProductInput) (*models.Product, error) {
	existing, err := s.repo.FindByName(ctx, input.Name)
	switch {
	case err == nil && existing != nil:
		return nil, ErrProductExists
	case err != nil && !errors.Is(err, repositories.ErrNotFound):
		return nil, err
	}

	product := &models.Product{
		Name:     input.Name,
		Quantity: input.Quantity,
		Image:    input.Image,
	}
	if err := s.repo.Create(ctx, product); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, ErrProductExists
		}
		return nil, err
	}
	s.logger.Info("product created", "id", product.ID, "nome", product.Name, "quantidade", product.Quantity)

	if product.Quantity < LowStockThreshold && s.notifier != nil {
		s.notifier.NotifyLowStock(ctx, *product)
	}
	return product, nil
}

// ListProducts returns one page of products. Non-positive page or limit fall
// back to the defaults and limit is capped at MaxLimit.
func (s *ProductService) ListProducts(ctx context.Context, filter models.ProductFilter) (*models.ProductPage, error) {
	if filter.Page < 1 {
		filter.Page = DefaultPage
	}
	if filter.Limit < 1 {
		filter.Limit = DefaultLimit
	}
	if filter.Limit > MaxLimit {
		filter.Limit = MaxLimit
	}
	if filter.MinQuantity < 0 {
		filter.MinQuantity = 0
	}
	products, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &models.ProductPage{
		Page:     filter.Page,
		Limit:    filter.Limit,
		Products: products,
	}, nil
}

// GetProduct retrieves a single product by its ID.
func (s *ProductService) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return product, nil
}

// UpdateProduct overwrites name and quantity of an existing product. Updates
// never raise low-stock notifications.
func (s *ProductService) UpdateProduct(ctx context.Context, id string, input models.ProductInput) error {
	existing, err := s.repo.FindByName(ctx, input.Name)
	switch {
	case err == nil && existing != nil && existing.ID != id:
		return ErrProductExists
	case err != nil && !errors.Is(err, repositories.ErrNotFound):
		return err
	}

	affected, err := s.repo.Update(ctx, id, input)
	if err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return ErrProductExists
		}
		return err
	}
	if affected == 0 {
		return ErrProductNotFound
	}
	s.logger.Info("product updated", "id", id, "nome", input.Name, "quantidade", input.Quantity)
	return nil
}

// DeleteProduct deletes a product by its ID.
func (s *ProductService) DeleteProduct(ctx context.Context, id string) error {
	affected, err := s.repo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete product %s: %w", id, err)
	}
	if affected == 0 {
		return ErrProductNotFound
	}
	s.logger.Info("product deleted", "id", id)
	return nil
}
