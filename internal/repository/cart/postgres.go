package cart

import (
	"context"
	"errors"
	"io"
	"log"

	"marketplace-api/internal/db"
	"marketplace-api/internal/domain"

	"github.com/jackc/pgx/v5"
)

type postgresRepo struct {
	db     db.DBTX
	logger *log.Logger
}

// NewPostgres returns a Repository backed by Postgres. conn may be a pool or a transaction.
func NewPostgres(conn db.DBTX, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &postgresRepo{db: conn, logger: logger}
}

func (r *postgresRepo) Entries(ctx context.Context, userID string) ([]domain.CartEntry, error) {
	if !db.ValidID(userID) {
		return nil, nil
	}
	rows, err := r.db.Query(ctx, `
SELECT product_id::text, quantity, added_at
FROM cart_items
WHERE user_id = $1
ORDER BY added_at, product_id
`, userID)
	if err != nil {
		r.logger.Printf("cart repo: entries user_id=%s error=%v", userID, err)
		return nil, err
	}
	defer rows.Close()

	var entries []domain.CartEntry
	for rows.Next() {
		var e domain.CartEntry
		if err := rows.Scan(&e.ProductID, &e.Quantity, &e.AddedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *postgresRepo) Get(ctx context.Context, userID, productID string) (*domain.CartEntry, error) {
	if !db.ValidID(userID) || !db.ValidID(productID) {
		return nil, domain.ErrNotFound
	}
	var e domain.CartEntry
	err := r.db.QueryRow(ctx, `
SELECT product_id::text, quantity, added_at
FROM cart_items
WHERE user_id = $1 AND product_id = $2
`, userID, productID).Scan(&e.ProductID, &e.Quantity, &e.AddedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Printf("cart repo: get user_id=%s product_id=%s error=%v", userID, productID, err)
		return nil, err
	}
	return &e, nil
}

func (r *postgresRepo) Put(ctx context.Context, userID, productID string, quantity int) error {
	if !db.ValidID(productID) {
		return domain.ErrNotFound
	}
	_, err := r.db.Exec(ctx, `
INSERT INTO cart_items (user_id, product_id, quantity)
VALUES ($1, $2, $3)
ON CONFLICT (user_id, product_id) DO UPDATE SET quantity = EXCLUDED.quantity
`, userID, productID, quantity)
	if err != nil {
		r.logger.Printf("cart repo: put user_id=%s product_id=%s qty=%d error=%v", userID, productID, quantity, err)
		return err
	}
	r.logger.Printf("cart repo: put user_id=%s product_id=%s qty=%d", userID, productID, quantity)
	return nil
}

func (r *postgresRepo) Remove(ctx context.Context, userID, productID string) error {
	if !db.ValidID(userID) || !db.ValidID(productID) {
		return domain.ErrNotFound
	}
	cmd, err := r.db.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2`, userID, productID)
	if err != nil {
		r.logger.Printf("cart repo: remove user_id=%s product_id=%s error=%v", userID, productID, err)
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) Clear(ctx context.Context, userID string) error {
	if !db.ValidID(userID) {
		return nil
	}
	cmd, err := r.db.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID)
	if err != nil {
		r.logger.Printf("cart repo: clear user_id=%s error=%v", userID, err)
		return err
	}
	r.logger.Printf("cart repo: cleared user_id=%s entries=%d", userID, cmd.RowsAffected())
	return nil
}
