package cart

import (
	"time"

	"github.com/yacosta738/go-shopping-cart/internal/catalog"
)

type Cart struct {
	ID        string
	UserID    string
	Status    Status // see status.go
	Version   int64  // bumped on every mutation, optimistic counter
	Items     []Item
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Item struct {
	ID        int64
	CartID    string
	ProductID string
	Quantity  int
	AddedAt   time.Time
}

// PricedLine is a ledger line joined with its product, the unit the pricing
// engine and the products listing work over.
type PricedLine struct {
	Product  catalog.Product
	Quantity int
}
