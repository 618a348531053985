package product

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"marketplace-api/internal/domain"
	"marketplace-api/internal/migrate"

	"github.com/jackc/pgx/v5/pgxpool"
)

func TestPostgres_CreateListAndGet(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()

	if err := migrate.Apply(ctx, pool); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	resetTables(ctx, t, pool)

	repo := NewPostgres(pool, nil)

	created, err := repo.Create(ctx, domain.Product{
		Name:        "Phone",
		Description: "Smartphone",
		Price:       1000,
		Discount:    10,
		Category:    domain.CategoryElectronics,
		Images:      []string{"a.png", "b.png"},
		Stock:       5,
		IsActive:    true,
		IsPopular:   true,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.FinalPrice != 900 {
		t.Fatalf("expected final price 900, got %d", created.FinalPrice)
	}
	if _, err := repo.Create(ctx, domain.Product{
		Name: "Hidden", Description: "inactive", Price: 10, Category: domain.CategoryOther, Stock: 1,
	}); err != nil {
		t.Fatalf("Create inactive: %v", err)
	}

	list, total, err := repo.List(ctx, domain.ProductFilter{Category: domain.CategoryElectronics})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 1 || len(list) != 1 {
		t.Fatalf("expected 1 active product, got total=%d len=%d", total, len(list))
	}

	got, err := repo.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Name != "Phone" || len(got.Images) != 2 {
		t.Fatalf("unexpected product %+v", got)
	}

	if _, err := repo.GetByID(ctx, "not-a-uuid"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for malformed id, got %v", err)
	}
}

func TestPostgres_ReserveAndRelease(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()

	if err := migrate.Apply(ctx, pool); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	resetTables(ctx, t, pool)

	repo := NewPostgres(pool, nil)
	p, err := repo.Create(ctx, domain.Product{
		Name: "Mug", Description: "Ceramic", Price: 1000, Discount: 10,
		Category: domain.CategoryHome, Stock: 5, IsActive: true,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	price, err := repo.Reserve(ctx, p.ID, 3)
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if price != 900 {
		t.Fatalf("expected unit price 900, got %d", price)
	}

	_, err = repo.Reserve(ctx, p.ID, 3)
	var stockErr *domain.StockError
	if !errors.As(err, &stockErr) || stockErr.Available != 2 {
		t.Fatalf("expected stock error with 2 available, got %v", err)
	}

	if err := repo.Release(ctx, p.ID, 3); err != nil {
		t.Fatalf("Release: %v", err)
	}
	got, err := repo.GetByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Stock != 5 {
		t.Fatalf("expected stock 5 after release, got %d", got.Stock)
	}
}

func TestPostgres_UpdateLeavesStockToReservations(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()

	if err := migrate.Apply(ctx, pool); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	resetTables(ctx, t, pool)

	repo := NewPostgres(pool, nil)
	p, err := repo.Create(ctx, domain.Product{
		Name: "Lamp", Description: "Desk lamp", Price: 500,
		Category: domain.CategoryHome, Stock: 5, IsActive: true,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	stale := *p
	if _, err := repo.Reserve(ctx, p.ID, 3); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	stale.Name = "Desk Lamp"
	updated, err := repo.Update(ctx, stale)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Stock != 2 || updated.Name != "Desk Lamp" {
		t.Fatalf("expected renamed product with stock 2, got %+v", updated)
	}

	updated, err = repo.SetStock(ctx, p.ID, 7)
	if err != nil {
		t.Fatalf("SetStock: %v", err)
	}
	if updated.Stock != 7 {
		t.Fatalf("expected stock 7, got %d", updated.Stock)
	}
}

func TestPostgres_ConcurrentReserveNeverOversells(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()

	if err := migrate.Apply(ctx, pool); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	resetTables(ctx, t, pool)

	repo := NewPostgres(pool, nil)
	p, err := repo.Create(ctx, domain.Product{
		Name: "Last one", Description: "single unit", Price: 100,
		Category: domain.CategoryOther, Stock: 1, IsActive: true,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.Reserve(ctx, p.ID, 1); err == nil {
				mu.Lock()
				success++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if success != 1 {
		t.Fatalf("expected exactly one reservation, got %d", success)
	}
}

func testPool(ctx context.Context, t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	return pool
}

func resetTables(ctx context.Context, t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	if _, err := pool.Exec(ctx, `TRUNCATE order_items, orders, cart_items, products, tokens, users RESTART IDENTITY CASCADE`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
}
