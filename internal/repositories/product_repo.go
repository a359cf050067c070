package repositories

import (
	"context"
	"errors"

	"estoque/internal/models"
)

var (
	// ErrNotFound is returned when a lookup matches no record.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a write violates a unique constraint.
	ErrDuplicate = errors.New("duplicate record")
)

// ProductRepository defines the interface for product data access.
type ProductRepository interface {
	FindByName(ctx context.Context, name string) (*models.Product, error)
	GetByID(ctx context.Context, id string) (*models.Product, error)
	Create(ctx context.Context, product *models.Product) error
	List(ctx context.Context, filter models.ProductFilter) ([]models.Product, error)
	// Update and Delete report how many records they touched.
	Update(ctx context.Context, id string, input models.ProductInput) (int64, error)
	Delete(ctx context.Context, id string) (int64, error)
}
