package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"marketplace-api/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedProduct(t *testing.T, s *Memory, stock int) *domain.Product {
	t.Helper()
	p, err := s.Repos().Products.Create(context.Background(), domain.Product{
		Name: "Phone", Description: "Smartphone", Price: 1000, Discount: 10,
		Category: domain.CategoryElectronics, Stock: stock, IsActive: true,
	})
	require.NoError(t, err)
	return p
}

func TestMemoryAtomicRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	p := seedProduct(t, s, 5)

	boom := errors.New("boom")
	err := s.Atomic(ctx, func(r Repos) error {
		if _, err := r.Products.Reserve(ctx, p.ID, 3); err != nil {
			return err
		}
		if err := r.Carts.Put(ctx, "u1", p.ID, 2); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := s.Repos().Products.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Stock)

	entries, err := s.Repos().Carts.Entries(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestMemoryAtomicCommits(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	p := seedProduct(t, s, 5)

	var price int64
	err := s.Atomic(ctx, func(r Repos) error {
		var err error
		price, err = r.Products.Reserve(ctx, p.ID, 2)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, int64(900), price)

	got, err := s.Repos().Products.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Stock)
}

func TestMemoryReserveErrors(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	p := seedProduct(t, s, 2)

	_, err := s.Repos().Products.Reserve(ctx, p.ID, 3)
	var stockErr *domain.StockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 2, stockErr.Available)
	assert.Equal(t, 3, stockErr.Requested)

	_, err = s.Repos().Products.Reserve(ctx, "missing", 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	p.IsActive = false
	_, err = s.Repos().Products.Update(ctx, *p)
	require.NoError(t, err)
	_, err = s.Repos().Products.Reserve(ctx, p.ID, 1)
	assert.ErrorIs(t, err, domain.ErrUnavailable)
}

func TestMemoryConcurrentReserveNeverOversells(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	p := seedProduct(t, s, 3)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Atomic(ctx, func(r Repos) error {
				_, err := r.Products.Reserve(ctx, p.ID, 1)
				return err
			})
			if err == nil {
				mu.Lock()
				success++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, success)
	got, err := s.Repos().Products.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Stock)
}

func TestMemoryListFiltersAndPaginates(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	repo := s.Repos().Products

	for i, rating := range []float64{3, 5, 4} {
		_, err := repo.Create(ctx, domain.Product{
			Name: []string{"Alpha", "Beta", "Gamma"}[i], Description: "thing", Price: 100,
			Category: domain.CategoryBooks, Stock: 1, Rating: rating, IsActive: true, IsPopular: true,
		})
		require.NoError(t, err)
	}
	_, err := repo.Create(ctx, domain.Product{
		Name: "Hidden", Description: "thing", Price: 100, Category: domain.CategoryBooks, Stock: 1,
	})
	require.NoError(t, err)

	popular := true
	list, total, err := repo.List(ctx, domain.ProductFilter{Popular: &popular, OrderBy: domain.OrderByRating, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, list, 2)
	assert.Equal(t, "Beta", list[0].Name)
	assert.Equal(t, "Gamma", list[1].Name)

	list, total, err = repo.List(ctx, domain.ProductFilter{Search: "alp"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "Alpha", list[0].Name)

	list, _, err = repo.List(ctx, domain.ProductFilter{Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Alpha", list[0].Name)
}

func TestMemoryOrderUpdateStateIsConditional(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	orders := s.Repos().Orders

	o, err := orders.Create(ctx, domain.Order{UserID: "u1", Status: domain.StatusPending})
	require.NoError(t, err)

	o.Status = domain.StatusCancelled
	require.NoError(t, orders.UpdateState(ctx, *o, domain.StatusPending))
	err = orders.UpdateState(ctx, *o, domain.StatusPending)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestMemoryUsersAreUniqueIgnoringCase(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	users := s.Repos().Users

	_, err := users.Create(ctx, domain.User{Login: "Alice", Email: "alice@example.com", Role: domain.RoleBuyer})
	require.NoError(t, err)
	_, err = users.Create(ctx, domain.User{Login: "alice", Email: "other@example.com", Role: domain.RoleBuyer})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
	_, err = users.Create(ctx, domain.User{Login: "bob", Email: "ALICE@example.com", Role: domain.RoleBuyer})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	got, err := users.GetByLogin(ctx, "ALICE")
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.Login)
}
