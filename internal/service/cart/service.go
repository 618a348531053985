package cart

import (
	"context"
	"errors"
	"fmt"

	"marketplace-api/internal/domain"
	"marketplace-api/internal/store"
)

type unitOfWork interface {
	Repos() store.Repos
	Atomic(ctx context.Context, fn func(store.Repos) error) error
}

// Service manages each user's cart. Stock is checked against the live
// product on every mutation but never reserved here.
type Service struct {
	store unitOfWork
}

func New(s unitOfWork) *Service {
	return &Service{store: s}
}

// Add puts qty more units of productID in the cart, merging with an existing entry.
func (s *Service) Add(ctx context.Context, userID, productID string, qty int) (*domain.Cart, error) {
	if qty < 1 {
		return nil, domain.Invalid("quantity", "must be at least 1")
	}
	err := s.store.Atomic(ctx, func(r store.Repos) error {
		p, err := purchasable(ctx, r, productID)
		if err != nil {
			return err
		}
		current := 0
		entry, err := r.Carts.Get(ctx, userID, productID)
		switch {
		case err == nil:
			current = entry.Quantity
		case !errors.Is(err, domain.ErrNotFound):
			return err
		}
		want := current + qty
		if want > p.Stock {
			return &domain.StockError{ProductID: p.ID, Name: p.Name, Requested: want, Available: p.Stock}
		}
		return r.Carts.Put(ctx, userID, productID, want)
	})
	if err != nil {
		return nil, err
	}
	return s.Read(ctx, userID)
}

// SetQuantity overwrites the quantity of an existing entry.
func (s *Service) SetQuantity(ctx context.Context, userID, productID string, qty int) (*domain.Cart, error) {
	if qty < 1 {
		return nil, domain.Invalid("quantity", "must be at least 1")
	}
	err := s.store.Atomic(ctx, func(r store.Repos) error {
		if _, err := r.Carts.Get(ctx, userID, productID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("cart entry %s: %w", productID, domain.ErrNotFound)
			}
			return err
		}
		p, err := purchasable(ctx, r, productID)
		if err != nil {
			return err
		}
		if qty > p.Stock {
			return &domain.StockError{ProductID: p.ID, Name: p.Name, Requested: qty, Available: p.Stock}
		}
		return r.Carts.Put(ctx, userID, productID, qty)
	})
	if err != nil {
		return nil, err
	}
	return s.Read(ctx, userID)
}

// Remove drops productID from the cart. Removing an absent entry is not an error.
func (s *Service) Remove(ctx context.Context, userID, productID string) (*domain.Cart, error) {
	err := s.store.Repos().Carts.Remove(ctx, userID, productID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	return s.Read(ctx, userID)
}

func (s *Service) Clear(ctx context.Context, userID string) error {
	return s.store.Repos().Carts.Clear(ctx, userID)
}

// Read joins the cart with live products and totals the purchasable lines.
func (s *Service) Read(ctx context.Context, userID string) (*domain.Cart, error) {
	repos := s.store.Repos()
	entries, err := repos.Carts.Entries(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ProductID)
	}
	products, err := repos.Products.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	cart := domain.BuildCart(userID, entries, products)
	return &cart, nil
}

func purchasable(ctx context.Context, r store.Repos, productID string) (*domain.Product, error) {
	p, err := r.Products.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("product %s: %w", productID, domain.ErrNotFound)
		}
		return nil, err
	}
	if !p.IsActive {
		return nil, fmt.Errorf("product %s: %w", p.Name, domain.ErrUnavailable)
	}
	return p, nil
}
