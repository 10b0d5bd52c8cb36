package redisx

import "time"

const (
	// Frozen checkout total: cart_total:{cart_id} -> cents
	KeyCartTotal = "cart_total:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLTotalCache = 24 * time.Hour
	TTLDedup      = 48 * time.Hour
)
