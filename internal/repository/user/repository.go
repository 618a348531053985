package user

import (
	"context"

	"marketplace-api/internal/domain"
)

// Repository persists and fetches user accounts. Logins and emails are
// unique case-insensitively.
type Repository interface {
	Create(ctx context.Context, u domain.User) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByLogin(ctx context.Context, login string) (*domain.User, error)
	Update(ctx context.Context, u domain.User) (*domain.User, error)
}
