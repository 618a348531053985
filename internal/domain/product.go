package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Category is one of the fixed catalog sections.
type Category string

const (
	CategoryElectronics Category = "electronics"
	CategoryClothing    Category = "clothing"
	CategoryFood        Category = "food"
	CategoryBooks       Category = "books"
	CategoryToys        Category = "toys"
	CategorySports      Category = "sports"
	CategoryHome        Category = "home"
	CategoryOther       Category = "other"
)

var categories = map[Category]struct{}{
	CategoryElectronics: {},
	CategoryClothing:    {},
	CategoryFood:        {},
	CategoryBooks:       {},
	CategoryToys:        {},
	CategorySports:      {},
	CategoryHome:        {},
	CategoryOther:       {},
}

// Categories lists every category in display order.
func Categories() []Category {
	return []Category{
		CategoryElectronics, CategoryClothing, CategoryFood, CategoryBooks,
		CategoryToys, CategorySports, CategoryHome, CategoryOther,
	}
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	_, ok := categories[c]
	return ok
}

const (
	maxNameLen        = 200
	maxDescriptionLen = 2000
)

// Product is a catalog listing. Prices are in minor currency units.
type Product struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Price        int64     `json:"price"`
	Discount     int       `json:"discount"`
	FinalPrice   int64     `json:"finalPrice"`
	Category     Category  `json:"category"`
	Image        string    `json:"image,omitempty"`
	Images       []string  `json:"images,omitempty"`
	Stock        int       `json:"stock"`
	SellerID     string    `json:"sellerId"`
	Rating       float64   `json:"rating"`
	ReviewsCount int       `json:"reviewsCount"`
	IsActive     bool      `json:"isActive"`
	IsPopular    bool      `json:"isPopular"`
	IsNew        bool      `json:"isNew"`
	CreatedAt    time.Time `json:"createdAt"`
}

// FinalPrice applies a percent discount to price, rounding half away from zero
// to a whole minor unit.
func FinalPrice(price int64, discount int) int64 {
	if discount <= 0 {
		return price
	}
	if discount >= 100 {
		return 0
	}
	return decimal.NewFromInt(price).
		Mul(decimal.NewFromInt(int64(100 - discount))).
		Div(decimal.NewFromInt(100)).
		Round(0).
		IntPart()
}

// Reprice recomputes FinalPrice from Price and Discount. Every code path that
// hands out a Product calls it, so FinalPrice never drifts from its inputs.
func (p *Product) Reprice() {
	p.FinalPrice = FinalPrice(p.Price, p.Discount)
}

// Validate checks the fields a seller controls.
func (p *Product) Validate() error {
	p.Name = strings.TrimSpace(p.Name)
	switch {
	case p.Name == "":
		return Invalid("name", "required")
	case len(p.Name) > maxNameLen:
		return Invalid("name", "must not exceed 200 characters")
	case strings.TrimSpace(p.Description) == "":
		return Invalid("description", "required")
	case len(p.Description) > maxDescriptionLen:
		return Invalid("description", "must not exceed 2000 characters")
	case p.Price < 0:
		return Invalid("price", "must not be negative")
	case p.Discount < 0 || p.Discount > 100:
		return Invalid("discount", "must be between 0 and 100")
	case !p.Category.Valid():
		return Invalid("category", "unknown category "+string(p.Category))
	case p.Stock < 0:
		return Invalid("stock", "must not be negative")
	case p.Rating < 0 || p.Rating > 5:
		return Invalid("rating", "must be between 0 and 5")
	}
	return nil
}

// ProductFilter narrows catalog listings. Only active products are ever listed.
type ProductFilter struct {
	Category Category
	Popular  *bool
	New      *bool
	Search   string
	SellerID string
	OrderBy  ProductOrder
	Limit    int
	Offset   int
}

// ProductOrder selects listing order.
type ProductOrder string

const (
	OrderByNewest ProductOrder = "newest"
	OrderByRating ProductOrder = "rating"
)
