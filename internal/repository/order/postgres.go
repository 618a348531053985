package order

import (
	"context"
	"errors"
	"fmt"
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

const orderColumns = `id::text, user_id::text, total_price, discount, final_price, country, city, street,
       payment_method, status, is_paid, paid_at, is_delivered, delivered_at, created_at`

func (r *postgresRepo) Create(ctx context.Context, o domain.Order) (*domain.Order, error) {
	out, err := scanOrder(r.db.QueryRow(ctx, `
INSERT INTO orders (user_id, total_price, discount, final_price, country, city, street, payment_method, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING `+orderColumns,
		o.UserID, o.TotalPrice, o.Discount, o.FinalPrice,
		o.DeliveryAddress.Country, o.DeliveryAddress.City, o.DeliveryAddress.Street,
		string(o.PaymentMethod), string(o.Status),
	))
	if err != nil {
		r.logger.Printf("order repo: create user_id=%s error=%v", o.UserID, err)
		return nil, err
	}

	for i, it := range o.Items {
		if _, err := r.db.Exec(ctx, `
INSERT INTO order_items (order_id, position, product_id, name, quantity, price)
VALUES ($1, $2, $3, $4, $5, $6)
`, out.ID, i, it.ProductID, it.Name, it.Quantity, it.Price); err != nil {
			r.logger.Printf("order repo: create item order_id=%s pos=%d error=%v", out.ID, i, err)
			return nil, err
		}
	}
	out.Items = append([]domain.OrderLineItem(nil), o.Items...)
	r.logger.Printf("order repo: created id=%s user_id=%s items=%d final=%d", out.ID, out.UserID, len(out.Items), out.FinalPrice)
	return out, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	if !db.ValidID(id) {
		return nil, domain.ErrNotFound
	}
	o, err := scanOrder(r.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			r.logger.Printf("order repo: get id=%s error=%v", id, err)
		}
		return nil, err
	}
	orders := []domain.Order{*o}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

func (r *postgresRepo) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	if !db.ValidID(userID) {
		return []domain.Order{}, nil
	}
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

func (r *postgresRepo) ListAll(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error) {
	if status == "" {
		return r.list(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC`)
	}
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders WHERE status = $1 ORDER BY created_at DESC`, string(status))
}

func (r *postgresRepo) UpdateState(ctx context.Context, o domain.Order, from domain.OrderStatus) error {
	if !db.ValidID(o.ID) {
		return domain.ErrNotFound
	}
	cmd, err := r.db.Exec(ctx, `
UPDATE orders
SET status = $3, is_paid = $4, paid_at = $5, is_delivered = $6, delivered_at = $7
WHERE id = $1 AND status = $2
`, o.ID, string(from), string(o.Status), o.IsPaid, o.PaidAt, o.IsDelivered, o.DeliveredAt)
	if err != nil {
		r.logger.Printf("order repo: update state id=%s error=%v", o.ID, err)
		return err
	}
	if cmd.RowsAffected() == 0 {
		r.logger.Printf("order repo: update state id=%s lost race from=%s", o.ID, from)
		return fmt.Errorf("order %s is no longer %s: %w", o.ID, from, domain.ErrInvalidTransition)
	}
	r.logger.Printf("order repo: state id=%s %s -> %s paid=%t", o.ID, from, o.Status, o.IsPaid)
	return nil
}

func (r *postgresRepo) list(ctx context.Context, q string, args ...any) ([]domain.Order, error) {
	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		r.logger.Printf("order repo: list error=%v", err)
		return nil, err
	}
	defer rows.Close()

	orders := []domain.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *postgresRepo) attachItems(ctx context.Context, orders []domain.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, len(orders))
	index := make(map[string]int, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
		index[orders[i].ID] = i
		orders[i].Items = []domain.OrderLineItem{}
	}

	rows, err := r.db.Query(ctx, `
SELECT order_id::text, product_id::text, name, quantity, price
FROM order_items
WHERE order_id = ANY($1::uuid[])
ORDER BY order_id, position
`, ids)
	if err != nil {
		r.logger.Printf("order repo: load items count=%d error=%v", len(ids), err)
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID string
			it      domain.OrderLineItem
		)
		if err := rows.Scan(&orderID, &it.ProductID, &it.Name, &it.Quantity, &it.Price); err != nil {
			return err
		}
		i := index[orderID]
		orders[i].Items = append(orders[i].Items, it)
	}
	return rows.Err()
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		o             domain.Order
		paymentMethod string
		status        string
	)
	err := row.Scan(
		&o.ID,
		&o.UserID,
		&o.TotalPrice,
		&o.Discount,
		&o.FinalPrice,
		&o.DeliveryAddress.Country,
		&o.DeliveryAddress.City,
		&o.DeliveryAddress.Street,
		&paymentMethod,
		&status,
		&o.IsPaid,
		&o.PaidAt,
		&o.IsDelivered,
		&o.DeliveredAt,
		&o.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	o.PaymentMethod = domain.PaymentMethod(paymentMethod)
	o.Status = domain.OrderStatus(status)
	return &o, nil
}
