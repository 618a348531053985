package store

import (
	"context"
	"fmt"
	"io"
	"log"

	"marketplace-api/internal/db"
	"marketplace-api/internal/repository/cart"
	"marketplace-api/internal/repository/order"
	"marketplace-api/internal/repository/product"
	"marketplace-api/internal/repository/token"
	"marketplace-api/internal/repository/user"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres is a Store where each unit of work is one database transaction.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *log.Logger
	repos  Repos
}

// NewPostgres wires repositories over pool.
func NewPostgres(pool *pgxpool.Pool, logger *log.Logger) *Postgres {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	s := &Postgres{pool: pool, logger: logger}
	s.repos = s.bind(pool)
	return s
}

func (s *Postgres) bind(conn db.DBTX) Repos {
	return Repos{
		Products: product.NewPostgres(conn, s.logger),
		Carts:    cart.NewPostgres(conn, s.logger),
		Orders:   order.NewPostgres(conn, s.logger),
		Users:    user.NewPostgres(conn, s.logger),
		Tokens:   token.NewPostgres(conn),
	}
}

func (s *Postgres) Repos() Repos {
	return s.repos
}

func (s *Postgres) Atomic(ctx context.Context, fn func(Repos) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(s.bind(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		s.logger.Printf("store: commit error=%v", err)
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *Postgres) Close() {
	s.pool.Close()
}
