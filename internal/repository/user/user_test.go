package user

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"marketplace-api/internal/domain"
	"marketplace-api/internal/migrate"
	"marketplace-api/internal/repository/token"

	"github.com/jackc/pgx/v5/pgxpool"
)

func TestPostgres_CreateAndLookup(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()

	if err := migrate.Apply(ctx, pool); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	resetTables(ctx, t, pool)

	repo := NewPostgres(pool, nil)

	created, err := repo.Create(ctx, domain.User{
		Login:        "Seller1",
		Email:        "Seller1@Example.com",
		PasswordHash: "hash",
		Role:         domain.RoleSeller,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Email != "seller1@example.com" || created.Role != domain.RoleSeller {
		t.Fatalf("unexpected user %+v", created)
	}

	got, err := repo.GetByLogin(ctx, "SELLER1")
	if err != nil {
		t.Fatalf("GetByLogin: %v", err)
	}
	if got.ID != created.ID {
		t.Fatalf("expected id %s, got %s", created.ID, got.ID)
	}

	if _, err := repo.Create(ctx, domain.User{
		Login: "other", Email: "SELLER1@example.com", PasswordHash: "hash", Role: domain.RoleBuyer,
	}); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected already exists for duplicate email, got %v", err)
	}

	if _, err := repo.GetByID(ctx, "not-a-uuid"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for malformed id, got %v", err)
	}
}

func TestPostgres_TokensFollowUsers(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()

	if err := migrate.Apply(ctx, pool); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	resetTables(ctx, t, pool)

	users := NewPostgres(pool, nil)
	tokens := token.NewPostgres(pool)

	u, err := users.Create(ctx, domain.User{Login: "buyer1", Email: "buyer1@example.com", PasswordHash: "hash", Role: domain.RoleBuyer})
	if err != nil {
		t.Fatalf("Create user: %v", err)
	}
	expires := time.Now().Add(time.Hour).UTC()
	if err := tokens.Create(ctx, domain.Token{Token: "tok-1", UserID: u.ID, Kind: "access", ExpiresAt: expires}); err != nil {
		t.Fatalf("Create token: %v", err)
	}

	got, err := tokens.Get(ctx, "tok-1")
	if err != nil {
		t.Fatalf("Get token: %v", err)
	}
	if got.UserID != u.ID || got.Kind != "access" {
		t.Fatalf("unexpected token %+v", got)
	}

	if err := tokens.Delete(ctx, "tok-1"); err != nil {
		t.Fatalf("Delete token: %v", err)
	}
	if _, err := tokens.Get(ctx, "tok-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
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
