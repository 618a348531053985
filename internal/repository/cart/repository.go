package cart

import (
	"context"

	"marketplace-api/internal/domain"
)

// Repository stores cart entries keyed by (user, product). Entries never
// carry prices.
type Repository interface {
	Entries(ctx context.Context, userID string) ([]domain.CartEntry, error)
	Get(ctx context.Context, userID, productID string) (*domain.CartEntry, error)
	// Put sets the quantity for productID, creating the entry if needed.
	Put(ctx context.Context, userID, productID string, quantity int) error
	Remove(ctx context.Context, userID, productID string) error
	Clear(ctx context.Context, userID string) error
}
