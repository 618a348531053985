package product

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"

	"marketplace-api/internal/cache"
	"marketplace-api/internal/domain"
	productrepo "marketplace-api/internal/repository/product"
)

const (
	listingSize     = 10
	defaultPageSize = 10
	maxPageSize     = 100
)

type listingCache interface {
	Listing(ctx context.Context, name string) ([]domain.Product, bool)
	StoreListing(ctx context.Context, name string, products []domain.Product)
	InvalidateListings(ctx context.Context) error
}

type Service struct {
	repo   productrepo.Repository
	cache  listingCache
	logger *log.Logger
}

// New builds the catalog service. cache may be nil.
func New(repo productrepo.Repository, cache listingCache, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{repo: repo, cache: cache, logger: logger}
}

// ListQuery mirrors the catalog query string.
type ListQuery struct {
	Category string
	Search   string
	Popular  *bool
	New      *bool
	SellerID string
	Page     int
	Limit    int
}

// Page is one page of active products.
type Page struct {
	Products      []domain.Product `json:"products"`
	CurrentPage   int              `json:"currentPage"`
	TotalPages    int              `json:"totalPages"`
	TotalProducts int              `json:"totalProducts"`
}

func (s *Service) List(ctx context.Context, q ListQuery) (*Page, error) {
	category := domain.Category(strings.TrimSpace(q.Category))
	if category != "" && !category.Valid() {
		return nil, domain.Invalid("category", "unknown category "+string(category))
	}
	page := q.Page
	if page < 1 {
		page = 1
	}
	limit := q.Limit
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	products, total, err := s.repo.List(ctx, domain.ProductFilter{
		Category: category,
		Popular:  q.Popular,
		New:      q.New,
		Search:   q.Search,
		SellerID: q.SellerID,
		OrderBy:  domain.OrderByNewest,
		Limit:    limit,
		Offset:   (page - 1) * limit,
	})
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []domain.Product{}
	}
	return &Page{
		Products:      products,
		CurrentPage:   page,
		TotalPages:    (total + limit - 1) / limit,
		TotalProducts: total,
	}, nil
}

// Get returns an active product. Inactive products are visible only to
// their seller and to admins.
func (s *Service) Get(ctx context.Context, id string, caller domain.Identity) (*domain.Product, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsActive && !canManage(caller, p) {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

// Popular returns up to ten popular products, best rated first.
func (s *Service) Popular(ctx context.Context) ([]domain.Product, error) {
	popular := true
	return s.listing(ctx, cache.ListingPopular, domain.ProductFilter{
		Popular: &popular,
		OrderBy: domain.OrderByRating,
		Limit:   listingSize,
	})
}

// Newest returns up to ten products flagged new, newest first.
func (s *Service) Newest(ctx context.Context) ([]domain.Product, error) {
	isNew := true
	return s.listing(ctx, cache.ListingNew, domain.ProductFilter{
		New:     &isNew,
		OrderBy: domain.OrderByNewest,
		Limit:   listingSize,
	})
}

func (s *Service) listing(ctx context.Context, name string, f domain.ProductFilter) ([]domain.Product, error) {
	if s.cache != nil {
		if products, ok := s.cache.Listing(ctx, name); ok {
			return products, nil
		}
	}
	products, _, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []domain.Product{}
	}
	if s.cache != nil {
		s.cache.StoreListing(ctx, name, products)
	}
	return products, nil
}

// Input carries seller-editable fields. Nil pointers keep the current value
// on update and take the default on create.
type Input struct {
	Name        *string   `json:"name"`
	Description *string   `json:"description"`
	Price       *int64    `json:"price"`
	Discount    *int      `json:"discount"`
	Category    *string   `json:"category"`
	Image       *string   `json:"image"`
	Images      *[]string `json:"images"`
	Stock       *int      `json:"stock"`
	IsActive    *bool     `json:"isActive"`
	IsPopular   *bool     `json:"isPopular"`
	IsNew       *bool     `json:"isNew"`
}

func (in Input) apply(p *domain.Product) {
	if in.Name != nil {
		p.Name = *in.Name
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Price != nil {
		p.Price = *in.Price
	}
	if in.Discount != nil {
		p.Discount = *in.Discount
	}
	if in.Category != nil {
		p.Category = domain.Category(*in.Category)
	}
	if in.Image != nil {
		p.Image = *in.Image
	}
	if in.Images != nil {
		p.Images = *in.Images
	}
	if in.Stock != nil {
		p.Stock = *in.Stock
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	if in.IsPopular != nil {
		p.IsPopular = *in.IsPopular
	}
	if in.IsNew != nil {
		p.IsNew = *in.IsNew
	}
}

// Create lists a new product owned by the calling seller.
func (s *Service) Create(ctx context.Context, caller domain.Identity, in Input) (*domain.Product, error) {
	if !caller.HasRole(domain.RoleSeller, domain.RoleAdmin) {
		return nil, domain.ErrForbidden
	}
	p := domain.Product{IsActive: true, IsNew: true, SellerID: caller.UserID}
	in.apply(&p)
	if err := p.Validate(); err != nil {
		return nil, err
	}
	created, err := s.repo.Create(ctx, p)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return created, nil
}

// Update edits a product. Only its seller or an admin may do so. Stock is
// written only when the input sets it, so reservations made since the read
// survive.
func (s *Service) Update(ctx context.Context, caller domain.Identity, id string, in Input) (*domain.Product, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManage(caller, p) {
		return nil, domain.ErrForbidden
	}
	in.apply(p)
	if err := p.Validate(); err != nil {
		return nil, err
	}
	updated, err := s.repo.Update(ctx, *p)
	if err != nil {
		return nil, err
	}
	if in.Stock != nil {
		updated, err = s.repo.SetStock(ctx, id, *in.Stock)
		if err != nil {
			return nil, err
		}
	}
	s.invalidate(ctx)
	return updated, nil
}

// Delete removes a product. Carts and orders referencing it keep their
// entries; reads treat the product as missing.
func (s *Service) Delete(ctx context.Context, caller domain.Identity, id string) error {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !canManage(caller, p) {
		return domain.ErrForbidden
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateListings(ctx); err != nil {
		s.logger.Printf("product service: invalidate listings error=%v", err)
	}
}

func canManage(caller domain.Identity, p *domain.Product) bool {
	if caller.IsAdmin() {
		return true
	}
	return caller.Role == domain.RoleSeller && caller.UserID != "" && p.SellerID == caller.UserID
}
