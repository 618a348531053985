package seed

import (
	"context"
	"errors"
	"fmt"

	"marketplace-api/internal/domain"
	productrepo "marketplace-api/internal/repository/product"
	userrepo "marketplace-api/internal/repository/user"
	usersvc "marketplace-api/internal/service/user"
)

type accountCreator interface {
	CreateWithRole(ctx context.Context, in usersvc.RegisterInput, role domain.Role) (*domain.User, error)
}

type account struct {
	Login    string
	Password string
	Role     domain.Role
}

var accounts = []account{
	{Login: "admin", Password: "admin123", Role: domain.RoleAdmin},
	{Login: "seller1", Password: "seller123", Role: domain.RoleSeller},
	{Login: "buyer1", Password: "buyer123", Role: domain.RoleBuyer},
}

var products = []domain.Product{
	{Name: "Samsung Galaxy S23 smartphone", Description: "Flagship smartphone with a great camera and performance", Price: 79990, Discount: 10, Stock: 50, IsPopular: true, IsNew: true},
	{Name: "Apple MacBook Air M2 laptop", Description: "Light and powerful laptop for work and creativity", Price: 129990, Discount: 5, Stock: 30, IsPopular: true, IsNew: true},
	{Name: "Sony WH-1000XM5 wireless headphones", Description: "Premium headphones with noise cancelling", Price: 29990, Discount: 15, Stock: 100, IsPopular: true},
	{Name: "Apple Watch Series 9", Description: "Smart watch with a wide range of health sensors", Price: 44990, Stock: 75, IsPopular: true, IsNew: true},
	{Name: "PlayStation 5 console", Description: "The newest game console from Sony", Price: 54990, Stock: 25, IsPopular: true, IsNew: true},
	{Name: "iPad Air tablet", Description: "Versatile tablet for work and entertainment", Price: 64990, Discount: 8, Stock: 40, IsNew: true},
	{Name: "Kindle Paperwhite e-reader", Description: "Compact reader with a backlit screen", Price: 14990, Discount: 20, Stock: 150},
	{Name: "Xiaomi Mi Band 8 fitness tracker", Description: "Affordable fitness tracker packed with features", Price: 4990, Discount: 25, Stock: 200, IsPopular: true, IsNew: true},
}

// Apply creates the demo accounts and the seller's catalog. Existing
// accounts are reused and the catalog is only created once.
func Apply(ctx context.Context, creator accountCreator, users userrepo.Repository, catalog productrepo.Repository) error {
	var sellerID string
	for _, a := range accounts {
		u, err := ensureAccount(ctx, creator, users, a)
		if err != nil {
			return fmt.Errorf("ensure account %s: %w", a.Login, err)
		}
		if a.Role == domain.RoleSeller {
			sellerID = u.ID
		}
	}

	_, total, err := catalog.List(ctx, domain.ProductFilter{SellerID: sellerID, Limit: 1})
	if err != nil {
		return fmt.Errorf("list seller products: %w", err)
	}
	if total > 0 {
		return nil
	}

	for _, p := range products {
		p.SellerID = sellerID
		p.Category = domain.CategoryElectronics
		p.IsActive = true
		if _, err := catalog.Create(ctx, p); err != nil {
			return fmt.Errorf("create product %s: %w", p.Name, err)
		}
	}
	return nil
}

func ensureAccount(ctx context.Context, creator accountCreator, users userrepo.Repository, a account) (*domain.User, error) {
	u, err := creator.CreateWithRole(ctx, usersvc.RegisterInput{
		Login:    a.Login,
		Email:    a.Login + "@example.com",
		Password: a.Password,
	}, a.Role)
	if errors.Is(err, domain.ErrAlreadyExists) {
		return users.GetByLogin(ctx, a.Login)
	}
	return u, err
}
