// Package store groups the repositories behind a single unit of work so that
// checkout, cancellation and cart edits commit or roll back as a whole.
package store

import (
	"context"

	"marketplace-api/internal/repository/cart"
	"marketplace-api/internal/repository/order"
	"marketplace-api/internal/repository/product"
	"marketplace-api/internal/repository/token"
	"marketplace-api/internal/repository/user"
)

// Repos is one consistent view of every repository.
type Repos struct {
	Products product.Repository
	Carts    cart.Repository
	Orders   order.Repository
	Users    user.Repository
	Tokens   token.Repository
}

// Store hands out repositories and runs atomic units of work.
type Store interface {
	// Repos returns repositories that operate outside any unit of work.
	Repos() Repos
	// Atomic runs fn against repositories bound to one unit of work. If fn
	// returns an error, none of its writes are visible to anyone.
	// fn must only use the Repos it is given.
	Atomic(ctx context.Context, fn func(Repos) error) error
	Close()
}
