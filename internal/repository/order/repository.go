package order

import (
	"context"

	"marketplace-api/internal/domain"
)

// Repository persists orders with their frozen line items.
type Repository interface {
	Create(ctx context.Context, o domain.Order) (*domain.Order, error)
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	// ListAll returns every order, newest first. An empty status matches all.
	ListAll(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error)
	// UpdateState writes the status and payment/delivery fields of o, but only
	// if the stored status still equals from.
	UpdateState(ctx context.Context, o domain.Order, from domain.OrderStatus) error
}
