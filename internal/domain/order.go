package domain

import (
	"strings"
	"time"
)

// OrderStatus is a state in the order lifecycle.
type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusProcessing OrderStatus = "processing"
	StatusShipped    OrderStatus = "shipped"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
)

// progression ranks the forward path; cancelled sits outside it.
var progression = map[OrderStatus]int{
	StatusPending:    0,
	StatusProcessing: 1,
	StatusShipped:    2,
	StatusDelivered:  3,
}

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	if s == StatusCancelled {
		return true
	}
	_, ok := progression[s]
	return ok
}

// IsTerminal reports whether no further transition is allowed from s.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// CanAdvanceTo reports whether next lies strictly ahead of s on the
// pending → processing → shipped → delivered path.
func (s OrderStatus) CanAdvanceTo(next OrderStatus) bool {
	if s.IsTerminal() {
		return false
	}
	from, ok := progression[s]
	if !ok {
		return false
	}
	to, ok := progression[next]
	return ok && to > from
}

// CanCancel reports whether an order in status s may be cancelled.
func (s OrderStatus) CanCancel() bool {
	return !s.IsTerminal()
}

// PaymentMethod is recorded on the order but never processed.
type PaymentMethod string

const (
	PaymentVisa       PaymentMethod = "visa"
	PaymentMastercard PaymentMethod = "mastercard"
	PaymentPayPal     PaymentMethod = "paypal"
)

// Valid reports whether m is a recognized payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentVisa, PaymentMastercard, PaymentPayPal:
		return true
	}
	return false
}

// Address is where an order is delivered.
type Address struct {
	Country string `json:"country"`
	City    string `json:"city"`
	Street  string `json:"street"`
}

// Validate requires all three fields.
func (a Address) Validate() error {
	switch {
	case strings.TrimSpace(a.Country) == "":
		return Invalid("deliveryAddress.country", "required")
	case strings.TrimSpace(a.City) == "":
		return Invalid("deliveryAddress.city", "required")
	case strings.TrimSpace(a.Street) == "":
		return Invalid("deliveryAddress.street", "required")
	}
	return nil
}

// OrderLineItem is a frozen copy of a purchased product at checkout time.
type OrderLineItem struct {
	ProductID string   `json:"productId"`
	Name      string   `json:"name"`
	Quantity  int      `json:"quantity"`
	Price     int64    `json:"price"`
	Product   *Product `json:"product,omitempty"`
}

// Order is an immutable purchase record; only the status fields change after creation.
type Order struct {
	ID              string          `json:"id"`
	UserID          string          `json:"userId"`
	Items           []OrderLineItem `json:"items"`
	TotalPrice      int64           `json:"totalPrice"`
	Discount        int64           `json:"discount"`
	FinalPrice      int64           `json:"finalPrice"`
	DeliveryAddress Address         `json:"deliveryAddress"`
	PaymentMethod   PaymentMethod   `json:"paymentMethod"`
	Status          OrderStatus     `json:"status"`
	IsPaid          bool            `json:"isPaid"`
	PaidAt          *time.Time      `json:"paidAt,omitempty"`
	IsDelivered     bool            `json:"isDelivered"`
	DeliveredAt     *time.Time      `json:"deliveredAt,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// OwnedBy reports whether userID placed the order.
func (o *Order) OwnedBy(userID string) bool {
	return userID != "" && o.UserID == userID
}
