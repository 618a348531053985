package order

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"marketplace-api/internal/domain"
	"marketplace-api/internal/events"
	"marketplace-api/internal/store"
)

type unitOfWork interface {
	Repos() store.Repos
	Atomic(ctx context.Context, fn func(store.Repos) error) error
}

type recorder interface {
	CheckoutSucceeded(units int, finalPrice int64)
	CheckoutFailed(reason string)
	OrderCancelled()
}

type noopRecorder struct{}

func (noopRecorder) CheckoutSucceeded(int, int64) {}
func (noopRecorder) CheckoutFailed(string)        {}
func (noopRecorder) OrderCancelled()              {}

// Service owns checkout and the order lifecycle.
type Service struct {
	store    unitOfWork
	events   events.Publisher
	metrics  recorder
	producer string
	logger   *log.Logger
	now      func() time.Time
}

// New wires the order service. pub and metrics may be nil.
func New(s unitOfWork, pub events.Publisher, metrics recorder, producer string, logger *log.Logger) *Service {
	if pub == nil {
		pub = events.Noop{}
	}
	if metrics == nil {
		metrics = noopRecorder{}
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{
		store:    s,
		events:   pub,
		metrics:  metrics,
		producer: producer,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type LineInput struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// CheckoutInput describes an order request. When Items is empty the
// buyer's cart is checked out.
type CheckoutInput struct {
	Items           []LineInput          `json:"items"`
	DeliveryAddress domain.Address       `json:"deliveryAddress"`
	PaymentMethod   domain.PaymentMethod `json:"paymentMethod"`
	Discount        int64                `json:"discount"`
}

func (in CheckoutInput) validate() error {
	if err := in.DeliveryAddress.Validate(); err != nil {
		return err
	}
	if !in.PaymentMethod.Valid() {
		return domain.Invalid("paymentMethod", "must be one of visa, mastercard, paypal")
	}
	if in.Discount < 0 {
		return domain.Invalid("discount", "must not be negative")
	}
	for i, it := range in.Items {
		if strings.TrimSpace(it.ProductID) == "" {
			return domain.Invalid(fmt.Sprintf("items[%d].productId", i), "required")
		}
		if it.Quantity < 1 {
			return domain.Invalid(fmt.Sprintf("items[%d].quantity", i), "must be at least 1")
		}
	}
	return nil
}

// Checkout validates every line against live stock, reserves all of them,
// records the order and clears the cart as one unit. Any failure leaves
// stock, orders and the cart untouched.
func (s *Service) Checkout(ctx context.Context, caller domain.Identity, in CheckoutInput) (*domain.Order, error) {
	if caller.UserID == "" {
		return nil, domain.ErrUnauthenticated
	}
	if err := in.validate(); err != nil {
		s.metrics.CheckoutFailed(failureReason(err))
		return nil, err
	}

	var created *domain.Order
	err := s.store.Atomic(ctx, func(r store.Repos) error {
		lines, err := s.checkoutLines(ctx, r, caller.UserID, in.Items)
		if err != nil {
			return err
		}

		products := make([]*domain.Product, len(lines))
		for i, l := range lines {
			p, err := r.Products.GetByID(ctx, l.ProductID)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return fmt.Errorf("product %s: %w", l.ProductID, domain.ErrNotFound)
				}
				return err
			}
			if !p.IsActive {
				return fmt.Errorf("product %s: %w", p.Name, domain.ErrUnavailable)
			}
			if l.Quantity > p.Stock {
				return &domain.StockError{ProductID: p.ID, Name: p.Name, Requested: l.Quantity, Available: p.Stock}
			}
			products[i] = p
		}

		items := make([]domain.OrderLineItem, 0, len(lines))
		var total int64
		for i, l := range lines {
			price, err := r.Products.Reserve(ctx, l.ProductID, l.Quantity)
			if err != nil {
				return err
			}
			items = append(items, domain.OrderLineItem{
				ProductID: l.ProductID,
				Name:      products[i].Name,
				Quantity:  l.Quantity,
				Price:     price,
			})
			total += price * int64(l.Quantity)
		}

		if in.Discount > total {
			return domain.Invalid("discount", fmt.Sprintf("must not exceed order total %d", total))
		}

		o, err := r.Orders.Create(ctx, domain.Order{
			UserID:          caller.UserID,
			Items:           items,
			TotalPrice:      total,
			Discount:        in.Discount,
			FinalPrice:      total - in.Discount,
			DeliveryAddress: in.DeliveryAddress,
			PaymentMethod:   in.PaymentMethod,
			Status:          domain.StatusPending,
		})
		if err != nil {
			return err
		}
		if err := r.Carts.Clear(ctx, caller.UserID); err != nil {
			return err
		}
		created = o
		return nil
	})
	if err != nil {
		s.metrics.CheckoutFailed(failureReason(err))
		s.logger.Printf("order service: checkout user_id=%s failed: %v", caller.UserID, err)
		return nil, err
	}

	units := 0
	for _, it := range created.Items {
		units += it.Quantity
	}
	s.metrics.CheckoutSucceeded(units, created.FinalPrice)
	s.logger.Printf("order service: checkout user_id=%s order_id=%s items=%d final=%d", caller.UserID, created.ID, len(created.Items), created.FinalPrice)
	s.publish(ctx, events.EventOrderCreated, *created)
	return s.withProducts(ctx, created)
}

// checkoutLines returns the requested lines with duplicates merged in first
// occurrence order, falling back to the buyer's cart.
func (s *Service) checkoutLines(ctx context.Context, r store.Repos, userID string, items []LineInput) ([]LineInput, error) {
	if len(items) == 0 {
		entries, err := r.Carts.Entries(ctx, userID)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			items = append(items, LineInput{ProductID: e.ProductID, Quantity: e.Quantity})
		}
	}
	if len(items) == 0 {
		return nil, domain.Invalid("items", "cart is empty")
	}

	merged := make([]LineInput, 0, len(items))
	index := make(map[string]int, len(items))
	for _, it := range items {
		if i, ok := index[it.ProductID]; ok {
			merged[i].Quantity += it.Quantity
			continue
		}
		index[it.ProductID] = len(merged)
		merged = append(merged, it)
	}
	return merged, nil
}

// ListForUser returns the caller's orders, newest first.
func (s *Service) ListForUser(ctx context.Context, caller domain.Identity) ([]domain.Order, error) {
	orders, err := s.store.Repos().Orders.ListByUser(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}
	return s.withProductsAll(ctx, orders)
}

// ListAll returns every order, optionally narrowed to one status. Admin only.
func (s *Service) ListAll(ctx context.Context, caller domain.Identity, status domain.OrderStatus) ([]domain.Order, error) {
	if !caller.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	if status != "" && !status.Valid() {
		return nil, domain.Invalid("status", "unknown status "+string(status))
	}
	orders, err := s.store.Repos().Orders.ListAll(ctx, status)
	if err != nil {
		return nil, err
	}
	return s.withProductsAll(ctx, orders)
}

// Get returns one order to its owner or an admin.
func (s *Service) Get(ctx context.Context, caller domain.Identity, id string) (*domain.Order, error) {
	o, err := s.store.Repos().Orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !o.OwnedBy(caller.UserID) && !caller.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	return s.withProducts(ctx, o)
}

// MarkPaid records payment by the owner and moves a pending order to processing.
func (s *Service) MarkPaid(ctx context.Context, caller domain.Identity, id string) (*domain.Order, error) {
	var paid *domain.Order
	err := s.store.Atomic(ctx, func(r store.Repos) error {
		o, err := r.Orders.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !o.OwnedBy(caller.UserID) {
			return domain.ErrForbidden
		}
		if o.IsPaid || o.Status != domain.StatusPending {
			return fmt.Errorf("order %s is %s: %w", o.ID, o.Status, domain.ErrInvalidTransition)
		}
		now := s.now()
		o.IsPaid = true
		o.PaidAt = &now
		o.Status = domain.StatusProcessing
		if err := r.Orders.UpdateState(ctx, *o, domain.StatusPending); err != nil {
			return err
		}
		paid = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.EventOrderPaid, *paid)
	return s.withProducts(ctx, paid)
}

// UpdateStatus moves an order forward along the fulfilment path. Admin only.
// Cancelling through here releases stock exactly like Cancel.
func (s *Service) UpdateStatus(ctx context.Context, caller domain.Identity, id string, status domain.OrderStatus) (*domain.Order, error) {
	if !caller.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	if !status.Valid() {
		return nil, domain.Invalid("status", "unknown status "+string(status))
	}
	if status == domain.StatusCancelled {
		return s.Cancel(ctx, caller, id)
	}

	var updated *domain.Order
	err := s.store.Atomic(ctx, func(r store.Repos) error {
		o, err := r.Orders.GetByID(ctx, id)
		if err != nil {
			return err
		}
		prev := o.Status
		if !prev.CanAdvanceTo(status) {
			return fmt.Errorf("cannot move order %s from %s to %s: %w", o.ID, prev, status, domain.ErrInvalidTransition)
		}
		o.Status = status
		if status == domain.StatusDelivered {
			now := s.now()
			o.IsDelivered = true
			o.DeliveredAt = &now
		}
		if err := r.Orders.UpdateState(ctx, *o, prev); err != nil {
			return err
		}
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.EventOrderStatus, *updated)
	return s.withProducts(ctx, updated)
}

// Cancel returns every line's stock and marks the order cancelled. Allowed
// for the owner or an admin while the order is neither delivered nor
// already cancelled. Lines whose product has since been deleted are skipped.
func (s *Service) Cancel(ctx context.Context, caller domain.Identity, id string) (*domain.Order, error) {
	var cancelled *domain.Order
	err := s.store.Atomic(ctx, func(r store.Repos) error {
		o, err := r.Orders.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !o.OwnedBy(caller.UserID) && !caller.IsAdmin() {
			return domain.ErrForbidden
		}
		prev := o.Status
		if !prev.CanCancel() {
			return fmt.Errorf("order %s is %s: %w", o.ID, prev, domain.ErrInvalidTransition)
		}
		o.Status = domain.StatusCancelled
		if err := r.Orders.UpdateState(ctx, *o, prev); err != nil {
			return err
		}
		for _, it := range o.Items {
			if err := r.Products.Release(ctx, it.ProductID, it.Quantity); err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					s.logger.Printf("order service: cancel order_id=%s skip release for deleted product_id=%s qty=%d", o.ID, it.ProductID, it.Quantity)
					continue
				}
				return err
			}
		}
		cancelled = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.OrderCancelled()
	s.logger.Printf("order service: cancelled order_id=%s by user_id=%s", cancelled.ID, caller.UserID)
	s.publish(ctx, events.EventOrderCancelled, *cancelled)
	return s.withProducts(ctx, cancelled)
}

func (s *Service) publish(ctx context.Context, eventType string, o domain.Order) {
	env, err := events.NewOrderEvent(s.producer, eventType, o)
	if err == nil {
		err = s.events.Publish(ctx, env)
	}
	if err != nil {
		s.logger.Printf("order service: publish %s order_id=%s error=%v", eventType, o.ID, err)
	}
}

func (s *Service) withProducts(ctx context.Context, o *domain.Order) (*domain.Order, error) {
	orders, err := s.withProductsAll(ctx, []domain.Order{*o})
	if err != nil {
		return nil, err
	}
	return &orders[0], nil
}

// withProductsAll attaches the live product to every line item for display.
// Frozen names and prices are left as recorded.
func (s *Service) withProductsAll(ctx context.Context, orders []domain.Order) ([]domain.Order, error) {
	seen := map[string]struct{}{}
	var ids []string
	for _, o := range orders {
		for _, it := range o.Items {
			if _, ok := seen[it.ProductID]; !ok {
				seen[it.ProductID] = struct{}{}
				ids = append(ids, it.ProductID)
			}
		}
	}
	if len(ids) == 0 {
		return orders, nil
	}
	products, err := s.store.Repos().Products.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		for j := range orders[i].Items {
			orders[i].Items[j].Product = products[orders[i].Items[j].ProductID]
		}
	}
	return orders, nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrUnavailable):
		return "unavailable"
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	default:
		return "error"
	}
}
