package events

import (
	"context"
	"errors"
	"testing"

	"marketplace-api/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOrderEventCarriesItems(t *testing.T) {
	o := domain.Order{
		ID:         "o1",
		UserID:     "u1",
		Status:     domain.StatusPending,
		FinalPrice: 2700,
		Items:      []domain.OrderLineItem{{ProductID: "p1", Quantity: 3, Price: 900}},
	}
	env, err := NewOrderEvent("marketplace-api", EventOrderCreated, o)
	require.NoError(t, err)
	assert.NotEmpty(t, env.EventID)
	assert.Equal(t, "o1", env.CorrelationID)
	assert.Equal(t, 1, env.EventVersion)

	p, err := DecodeOrderPayload(env)
	require.NoError(t, err)
	assert.Equal(t, "pending", p.Status)
	assert.Equal(t, int64(2700), p.FinalPrice)
	assert.Equal(t, []ItemQty{{ProductID: "p1", Qty: 3}}, p.Items)
}

type stubListingCache struct {
	seen        map[string]bool
	invalidated int
	failures    int
}

func (s *stubListingCache) InvalidateListings(context.Context) error {
	if s.failures > 0 {
		s.failures--
		return errors.New("redis down")
	}
	s.invalidated++
	return nil
}

func (s *stubListingCache) Seen(_ context.Context, consumer, id string) (bool, error) {
	return s.seen[consumer+":"+id], nil
}

func (s *stubListingCache) MarkSeen(_ context.Context, consumer, id string) error {
	s.seen[consumer+":"+id] = true
	return nil
}

func TestInvalidateCatalogAppliesStockEventsOnce(t *testing.T) {
	ctx := context.Background()
	cache := &stubListingCache{seen: map[string]bool{}}
	h := InvalidateCatalog(cache, "test", nil)

	created, err := NewOrderEvent("api", EventOrderCreated, domain.Order{ID: "o1"})
	require.NoError(t, err)
	paid, err := NewOrderEvent("api", EventOrderPaid, domain.Order{ID: "o1"})
	require.NoError(t, err)

	require.NoError(t, h(ctx, created))
	require.NoError(t, h(ctx, created))
	require.NoError(t, h(ctx, paid))

	assert.Equal(t, 1, cache.invalidated)
}

func TestInvalidateCatalogRetriesAfterFailure(t *testing.T) {
	ctx := context.Background()
	cache := &stubListingCache{seen: map[string]bool{}, failures: 1}
	h := InvalidateCatalog(cache, "test", nil)

	created, err := NewOrderEvent("api", EventOrderCreated, domain.Order{ID: "o1"})
	require.NoError(t, err)

	require.Error(t, h(ctx, created))
	assert.Equal(t, 0, cache.invalidated)

	require.NoError(t, h(ctx, created))
	assert.Equal(t, 1, cache.invalidated)

	require.NoError(t, h(ctx, created))
	assert.Equal(t, 1, cache.invalidated)
}

func TestNoopPublisher(t *testing.T) {
	var p Publisher = Noop{}
	assert.NoError(t, p.Publish(context.Background(), Envelope{}))
}
