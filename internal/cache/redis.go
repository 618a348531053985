// Package cache keeps short-lived catalog listings and event dedup markers in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"marketplace-api/internal/domain"

	"github.com/redis/go-redis/v9"
)

// NewClient connects to Redis at addr and pings it.
func NewClient(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return rdb, nil
}

// Catalog caches the fixed-size popular and new listings. Cache errors are
// logged and treated as misses; stock is never read from here for checkout.
type Catalog struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *log.Logger
}

func NewCatalog(rdb *redis.Client, ttl time.Duration, logger *log.Logger) *Catalog {
	if ttl <= 0 {
		ttl = TTLListing
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Catalog{rdb: rdb, ttl: ttl, logger: logger}
}

func (c *Catalog) Listing(ctx context.Context, name string) ([]domain.Product, bool) {
	raw, err := c.rdb.Get(ctx, fmt.Sprintf(KeyListing, name)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Printf("cache: get listing=%s error=%v", name, err)
		}
		return nil, false
	}
	var products []domain.Product
	if err := json.Unmarshal(raw, &products); err != nil {
		c.logger.Printf("cache: decode listing=%s error=%v", name, err)
		return nil, false
	}
	return products, true
}

func (c *Catalog) StoreListing(ctx context.Context, name string, products []domain.Product) {
	raw, err := json.Marshal(products)
	if err != nil {
		c.logger.Printf("cache: encode listing=%s error=%v", name, err)
		return
	}
	if err := c.rdb.Set(ctx, fmt.Sprintf(KeyListing, name), raw, c.ttl).Err(); err != nil {
		c.logger.Printf("cache: set listing=%s error=%v", name, err)
	}
}

func (c *Catalog) InvalidateListings(ctx context.Context) error {
	err := c.rdb.Del(ctx,
		fmt.Sprintf(KeyListing, ListingPopular),
		fmt.Sprintf(KeyListing, ListingNew),
	).Err()
	if err != nil {
		c.logger.Printf("cache: invalidate listings error=%v", err)
	}
	return err
}

// Seen reports whether consumer already applied eventID.
func (c *Catalog) Seen(ctx context.Context, consumer, eventID string) (bool, error) {
	n, err := c.rdb.Exists(ctx, fmt.Sprintf(KeyDedup, consumer, eventID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MarkSeen records that consumer applied eventID. Call it only after the
// effect succeeded.
func (c *Catalog) MarkSeen(ctx context.Context, consumer, eventID string) error {
	return c.rdb.Set(ctx, fmt.Sprintf(KeyDedup, consumer, eventID), "1", TTLDedup).Err()
}
