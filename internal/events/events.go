// Package events carries order lifecycle notifications to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"marketplace-api/internal/domain"

	"github.com/google/uuid"
)

const (
	EventOrderCreated   = "OrderCreated"
	EventOrderPaid      = "OrderPaid"
	EventOrderStatus    = "OrderStatusChanged"
	EventOrderCancelled = "OrderCancelled"
)

// Envelope wraps every event published to the order events topic.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

type ItemQty struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

// OrderPayload is the payload of every order event. Items lists the stock
// each product gained or lost through the event.
type OrderPayload struct {
	OrderID    string    `json:"order_id"`
	UserID     string    `json:"user_id"`
	Status     string    `json:"status"`
	FinalPrice int64     `json:"final_price"`
	Items      []ItemQty `json:"items"`
}

// NewOrderEvent builds an envelope for o.
func NewOrderEvent(producer, eventType string, o domain.Order) (Envelope, error) {
	items := make([]ItemQty, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, ItemQty{ProductID: it.ProductID, Qty: it.Quantity})
	}
	payload, err := json.Marshal(OrderPayload{
		OrderID:    o.ID,
		UserID:     o.UserID,
		Status:     string(o.Status),
		FinalPrice: o.FinalPrice,
		Items:      items,
	})
	if err != nil {
		return Envelope{}, fmt.Errorf("encode order payload: %w", err)
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		CorrelationID: o.ID,
		Payload:       payload,
	}, nil
}

// DecodeOrderPayload unwraps the payload of an order event.
func DecodeOrderPayload(env Envelope) (OrderPayload, error) {
	var p OrderPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return p, fmt.Errorf("decode payload: %w", err)
	}
	return p, nil
}

// Publisher delivers envelopes. Implementations must not block checkout on
// broker availability.
type Publisher interface {
	Publish(ctx context.Context, env Envelope) error
}

// Noop discards every event. Used when no broker is configured.
type Noop struct{}

func (Noop) Publish(context.Context, Envelope) error { return nil }
