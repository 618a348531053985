package domain

import "time"

// CartEntry is one product reference in a user's cart. It carries no price;
// prices are resolved from the live product on every read.
type CartEntry struct {
	ProductID string    `json:"productId"`
	Quantity  int       `json:"quantity"`
	AddedAt   time.Time `json:"addedAt"`
}

// CartLine is an entry joined with its live product.
type CartLine struct {
	ProductID   string   `json:"productId"`
	Quantity    int      `json:"quantity"`
	Product     *Product `json:"product,omitempty"`
	LineTotal   int64    `json:"lineTotal"`
	Purchasable bool     `json:"purchasable"`
}

// Cart is the read model returned to clients.
type Cart struct {
	UserID     string     `json:"userId"`
	Lines      []CartLine `json:"cart"`
	TotalPrice int64      `json:"totalPrice"`
}

// BuildCart joins entries with products (keyed by id) and totals the
// purchasable lines. Lines whose product is missing or inactive stay in the
// result but do not count toward the total.
func BuildCart(userID string, entries []CartEntry, products map[string]*Product) Cart {
	cart := Cart{UserID: userID, Lines: make([]CartLine, 0, len(entries))}
	for _, e := range entries {
		line := CartLine{ProductID: e.ProductID, Quantity: e.Quantity}
		if p, ok := products[e.ProductID]; ok && p != nil {
			p.Reprice()
			line.Product = p
			if p.IsActive {
				line.Purchasable = true
				line.LineTotal = p.FinalPrice * int64(e.Quantity)
				cart.TotalPrice += line.LineTotal
			}
		}
		cart.Lines = append(cart.Lines, line)
	}
	return cart
}
