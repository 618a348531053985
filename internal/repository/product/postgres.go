package product

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

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

const productColumns = `id::text, name, description, price, discount, category, image, images,
       stock, COALESCE(seller_id::text, ''), rating, reviews_count, is_active, is_popular, is_new, created_at`

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	if !db.ValidID(id) {
		return nil, domain.ErrNotFound
	}
	q := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	p, err := scanProduct(r.db.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			r.logger.Printf("product repo: get id=%s not found", id)
		} else {
			r.logger.Printf("product repo: get id=%s error=%v", id, err)
		}
		return nil, err
	}
	return p, nil
}

func (r *postgresRepo) GetMany(ctx context.Context, ids []string) (map[string]*domain.Product, error) {
	out := make(map[string]*domain.Product, len(ids))
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if db.ValidID(id) {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return out, nil
	}
	rows, err := r.db.Query(ctx, `SELECT `+productColumns+` FROM products WHERE id = ANY($1::uuid[])`, valid)
	if err != nil {
		r.logger.Printf("product repo: get many count=%d error=%v", len(valid), err)
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

func (r *postgresRepo) List(ctx context.Context, f domain.ProductFilter) ([]domain.Product, int, error) {
	where, args := filterClause(f)

	var total int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM products WHERE `+where, args...).Scan(&total); err != nil {
		r.logger.Printf("product repo: count error=%v", err)
		return nil, 0, err
	}

	order := "created_at DESC"
	if f.OrderBy == domain.OrderByRating {
		order = "rating DESC, created_at DESC"
	}
	q := `SELECT ` + productColumns + ` FROM products WHERE ` + where + ` ORDER BY ` + order
	if f.Limit > 0 {
		args = append(args, f.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		q += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		r.logger.Printf("product repo: list error=%v", err)
		return nil, 0, err
	}
	defer rows.Close()

	var result []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		r.logger.Printf("product repo: list rows error=%v", err)
		return nil, 0, err
	}
	r.logger.Printf("product repo: list count=%d total=%d", len(result), total)
	return result, total, nil
}

func filterClause(f domain.ProductFilter) (string, []any) {
	conds := []string{"is_active"}
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.Category != "" {
		add("category = $%d", string(f.Category))
	}
	if f.Popular != nil {
		add("is_popular = $%d", *f.Popular)
	}
	if f.New != nil {
		add("is_new = $%d", *f.New)
	}
	if f.SellerID != "" {
		add("seller_id = $%d", f.SellerID)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		args = append(args, "%"+s+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", n, n))
	}
	return strings.Join(conds, " AND "), args
}

func (r *postgresRepo) Create(ctx context.Context, p domain.Product) (*domain.Product, error) {
	images, err := json.Marshal(nonNil(p.Images))
	if err != nil {
		return nil, err
	}
	q := `
INSERT INTO products (name, description, price, discount, category, image, images, stock, seller_id,
                      rating, reviews_count, is_active, is_popular, is_new)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, '')::uuid, $10, $11, $12, $13, $14)
RETURNING ` + productColumns
	out, err := scanProduct(r.db.QueryRow(ctx, q,
		p.Name, p.Description, p.Price, p.Discount, string(p.Category), p.Image, images, p.Stock, p.SellerID,
		p.Rating, p.ReviewsCount, p.IsActive, p.IsPopular, p.IsNew,
	))
	if err != nil {
		r.logger.Printf("product repo: create name=%q error=%v", p.Name, err)
		return nil, err
	}
	r.logger.Printf("product repo: created id=%s seller_id=%s", out.ID, out.SellerID)
	return out, nil
}

// Update overwrites the seller-controlled fields. Stock is left to the
// conditional updates so a concurrent checkout is never undone.
func (r *postgresRepo) Update(ctx context.Context, p domain.Product) (*domain.Product, error) {
	if !db.ValidID(p.ID) {
		return nil, domain.ErrNotFound
	}
	images, err := json.Marshal(nonNil(p.Images))
	if err != nil {
		return nil, err
	}
	q := `
UPDATE products
SET name = $2, description = $3, price = $4, discount = $5, category = $6, image = $7, images = $8,
    rating = $9, reviews_count = $10, is_active = $11, is_popular = $12, is_new = $13
WHERE id = $1
RETURNING ` + productColumns
	out, err := scanProduct(r.db.QueryRow(ctx, q,
		p.ID, p.Name, p.Description, p.Price, p.Discount, string(p.Category), p.Image, images,
		p.Rating, p.ReviewsCount, p.IsActive, p.IsPopular, p.IsNew,
	))
	if err != nil {
		r.logger.Printf("product repo: update id=%s error=%v", p.ID, err)
		return nil, err
	}
	r.logger.Printf("product repo: updated id=%s", out.ID)
	return out, nil
}

func (r *postgresRepo) SetStock(ctx context.Context, id string, stock int) (*domain.Product, error) {
	if !db.ValidID(id) {
		return nil, domain.ErrNotFound
	}
	q := `UPDATE products SET stock = $2 WHERE id = $1 RETURNING ` + productColumns
	out, err := scanProduct(r.db.QueryRow(ctx, q, id, stock))
	if err != nil {
		r.logger.Printf("product repo: set stock id=%s error=%v", id, err)
		return nil, err
	}
	r.logger.Printf("product repo: set stock id=%s stock=%d", id, stock)
	return out, nil
}

func (r *postgresRepo) Delete(ctx context.Context, id string) error {
	if !db.ValidID(id) {
		return domain.ErrNotFound
	}
	cmd, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		r.logger.Printf("product repo: delete id=%s error=%v", id, err)
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) Reserve(ctx context.Context, id string, qty int) (int64, error) {
	if !db.ValidID(id) {
		return 0, fmt.Errorf("product %s: %w", id, domain.ErrNotFound)
	}
	var price int64
	var discount int
	err := r.db.QueryRow(ctx, `
UPDATE products
SET stock = stock - $2
WHERE id = $1 AND is_active AND stock >= $2
RETURNING price, discount
`, id, qty).Scan(&price, &discount)
	if err == nil {
		r.logger.Printf("product repo: reserved id=%s qty=%d", id, qty)
		return domain.FinalPrice(price, discount), nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		r.logger.Printf("product repo: reserve id=%s error=%v", id, err)
		return 0, err
	}

	var (
		name   string
		stock  int
		active bool
	)
	err = r.db.QueryRow(ctx, `SELECT name, stock, is_active FROM products WHERE id = $1`, id).Scan(&name, &stock, &active)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("product %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return 0, err
	}
	if !active {
		return 0, fmt.Errorf("product %s: %w", name, domain.ErrUnavailable)
	}
	r.logger.Printf("product repo: reserve rejected id=%s qty=%d available=%d", id, qty, stock)
	return 0, &domain.StockError{ProductID: id, Name: name, Requested: qty, Available: stock}
}

func (r *postgresRepo) Release(ctx context.Context, id string, qty int) error {
	if !db.ValidID(id) {
		return fmt.Errorf("product %s: %w", id, domain.ErrNotFound)
	}
	cmd, err := r.db.Exec(ctx, `UPDATE products SET stock = stock + $2 WHERE id = $1`, id, qty)
	if err != nil {
		r.logger.Printf("product repo: release id=%s error=%v", id, err)
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("product %s: %w", id, domain.ErrNotFound)
	}
	r.logger.Printf("product repo: released id=%s qty=%d", id, qty)
	return nil
}

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var (
		p        domain.Product
		category string
		images   []byte
	)
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.Price,
		&p.Discount,
		&category,
		&p.Image,
		&images,
		&p.Stock,
		&p.SellerID,
		&p.Rating,
		&p.ReviewsCount,
		&p.IsActive,
		&p.IsPopular,
		&p.IsNew,
		&p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	p.Category = domain.Category(category)
	if len(images) > 0 {
		if err := json.Unmarshal(images, &p.Images); err != nil {
			return nil, fmt.Errorf("decode images for product %s: %w", p.ID, err)
		}
	}
	p.Reprice()
	return &p, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
