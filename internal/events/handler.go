package events

import (
	"context"
	"io"
	"log"
)

type listingCache interface {
	InvalidateListings(ctx context.Context) error
	Seen(ctx context.Context, consumer, eventID string) (bool, error)
	MarkSeen(ctx context.Context, consumer, eventID string) error
}

// InvalidateCatalog returns a Handler that drops cached catalog listings
// whenever an order event changed stock. An event is marked applied only
// after the invalidation succeeded, so a failed attempt is retried in full.
func InvalidateCatalog(cache listingCache, consumer string, logger *log.Logger) Handler {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return func(ctx context.Context, env Envelope) error {
		if env.EventType != EventOrderCreated && env.EventType != EventOrderCancelled {
			return nil
		}
		seen, err := cache.Seen(ctx, consumer, env.EventID)
		if err != nil {
			return err
		}
		if seen {
			return nil
		}
		p, err := DecodeOrderPayload(env)
		if err != nil {
			logger.Printf("events: %v", err)
			return nil
		}
		if err := cache.InvalidateListings(ctx); err != nil {
			return err
		}
		if err := cache.MarkSeen(ctx, consumer, env.EventID); err != nil {
			return err
		}
		logger.Printf("events: %s order=%s items=%d invalidated catalog listings", env.EventType, p.OrderID, len(p.Items))
		return nil
	}
}
