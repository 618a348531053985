package cache

import "time"

const (
	// catalog:listing:{name} -> JSON array of products
	KeyListing = "catalog:listing:%s"

	// dedup:{consumer}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

// Cached listing names.
const (
	ListingPopular = "popular"
	ListingNew     = "new"
)

var (
	TTLListing = 60 * time.Second
	TTLDedup   = 48 * time.Hour
)
