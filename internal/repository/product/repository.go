package product

import (
	"context"

	"marketplace-api/internal/domain"
)

// Repository persists catalog listings. Update never touches stock: Reserve
// and Release adjust it relatively and SetStock is the seller's absolute
// override.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	// GetMany returns the products that exist among ids, active or not, keyed by id.
	GetMany(ctx context.Context, ids []string) (map[string]*domain.Product, error)
	List(ctx context.Context, f domain.ProductFilter) ([]domain.Product, int, error)
	Create(ctx context.Context, p domain.Product) (*domain.Product, error)
	Update(ctx context.Context, p domain.Product) (*domain.Product, error)
	SetStock(ctx context.Context, id string, stock int) (*domain.Product, error)
	Delete(ctx context.Context, id string) error

	// Reserve decrements stock by qty if the product is active and has at
	// least qty units, returning the final unit price at that instant.
	Reserve(ctx context.Context, id string, qty int) (int64, error)
	// Release increments stock by qty.
	Release(ctx context.Context, id string, qty int) error
}
