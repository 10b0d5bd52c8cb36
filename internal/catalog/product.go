package catalog

import "time"

type Product struct {
	ID          string
	Name        string
	SKU         string
	Description string
	PriceCents  int64
	HasDiscount bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
