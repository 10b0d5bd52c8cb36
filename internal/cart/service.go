package cart

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/yacosta738/go-shopping-cart/internal/catalog"
)

// Store is what the lifecycle service needs from persistence. *PgStore is the
// real one; tests plug in an in-memory fake.
type Store interface {
	CreateCart(ctx context.Context, userID string) (Cart, error)
	GetCart(ctx context.Context, cartID string) (Cart, error)
	ListCarts(ctx context.Context, limit, offset int) ([]Cart, error)
	DeleteCart(ctx context.Context, cartID string) error
	AddItem(ctx context.Context, cartID, productID string, qty int) error
	RemoveItem(ctx context.Context, cartID, productID string, qty int) error
	RemoveLine(ctx context.Context, cartID, productID string) error
	SetItemQuantity(ctx context.Context, cartID, productID string, qty int) error
	ListLines(ctx context.Context, cartID string) ([]PricedLine, error)
	CompleteCart(ctx context.Context, cartID string) (int64, []PricedLine, error)
}

// Catalog resolves product references before the ledger is touched.
type Catalog interface {
	Get(ctx context.Context, id string) (catalog.Product, error)
}

// CheckedOutPublisher emits the checkout event. Optional.
type CheckedOutPublisher interface {
	PublishCheckedOut(ctx context.Context, p CartCheckedOutPayload)
}

// TotalCache keeps the frozen total of a completed cart. Optional.
type TotalCache interface {
	SetTotal(ctx context.Context, cartID string, totalCents int64)
	GetTotal(ctx context.Context, cartID string) (int64, bool)
}

// Service owns the cart lifecycle: it guards the open/completed state, routes
// item mutations through the ledger and prices checkouts. The caller identity
// is always an explicit argument; there is no ambient current user.
type Service struct {
	Store   Store
	Catalog Catalog
	Events  CheckedOutPublisher
	Totals  TotalCache
	Log     zerolog.Logger
}

// Create opens a new cart owned by userID.
func (s *Service) Create(ctx context.Context, userID string) (Cart, error) {
	c, err := s.Store.CreateCart(ctx, userID)
	if err != nil {
		return Cart{}, err
	}
	s.Log.Debug().Str("cart_id", c.ID).Str("user_id", userID).Msg("cart created")
	return c, nil
}

func (s *Service) Get(ctx context.Context, cartID string) (Cart, error) {
	return s.Store.GetCart(ctx, cartID)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]Cart, error) {
	return s.Store.ListCarts(ctx, limit, offset)
}

func (s *Service) Delete(ctx context.Context, cartID string) error {
	return s.Store.DeleteCart(ctx, cartID)
}

// AddProduct merges qty into the cart's line for the product, creating the
// line when absent.
func (s *Service) AddProduct(ctx context.Context, cartID, productID string, qty int) (Cart, error) {
	if qty <= 0 {
		return Cart{}, ErrInvalidQuantity
	}
	if err := s.guardOpen(ctx, cartID); err != nil {
		return Cart{}, err
	}
	if _, err := s.Catalog.Get(ctx, productID); err != nil {
		return Cart{}, err
	}
	if err := s.Store.AddItem(ctx, cartID, productID, qty); err != nil {
		return Cart{}, err
	}
	return s.Store.GetCart(ctx, cartID)
}

// RemoveProduct takes qty units off the line, dropping the line when it hits
// zero. A product with no line in the cart is a no-op.
func (s *Service) RemoveProduct(ctx context.Context, cartID, productID string, qty int) (Cart, error) {
	if qty <= 0 {
		return Cart{}, ErrInvalidQuantity
	}
	if err := s.guardOpen(ctx, cartID); err != nil {
		return Cart{}, err
	}
	if _, err := s.Catalog.Get(ctx, productID); err != nil {
		return Cart{}, err
	}
	if err := s.Store.RemoveItem(ctx, cartID, productID, qty); err != nil {
		return Cart{}, err
	}
	return s.Store.GetCart(ctx, cartID)
}

// RemoveLine deletes the whole line for the product, whatever its quantity.
func (s *Service) RemoveLine(ctx context.Context, cartID, productID string) (Cart, error) {
	if err := s.guardOpen(ctx, cartID); err != nil {
		return Cart{}, err
	}
	if _, err := s.Catalog.Get(ctx, productID); err != nil {
		return Cart{}, err
	}
	if err := s.Store.RemoveLine(ctx, cartID, productID); err != nil {
		return Cart{}, err
	}
	return s.Store.GetCart(ctx, cartID)
}

// UpdateQuantity overwrites the line quantity. A product with no line in the
// cart is a no-op.
func (s *Service) UpdateQuantity(ctx context.Context, cartID, productID string, qty int) (Cart, error) {
	if qty <= 0 {
		return Cart{}, ErrInvalidQuantity
	}
	if err := s.guardOpen(ctx, cartID); err != nil {
		return Cart{}, err
	}
	if _, err := s.Catalog.Get(ctx, productID); err != nil {
		return Cart{}, err
	}
	if err := s.Store.SetItemQuantity(ctx, cartID, productID, qty); err != nil {
		return Cart{}, err
	}
	return s.Store.GetCart(ctx, cartID)
}

// ListProducts projects the ledger as (product, quantity) pairs in insertion
// order.
func (s *Service) ListProducts(ctx context.Context, cartID string) ([]PricedLine, error) {
	if _, err := s.Store.GetCart(ctx, cartID); err != nil {
		return nil, err
	}
	return s.Store.ListLines(ctx, cartID)
}

// TotalPrice prices the cart's current contents. Empty carts price at zero.
// Completed carts serve the frozen total from the cache when one is wired.
func (s *Service) TotalPrice(ctx context.Context, cartID string) (int64, error) {
	c, err := s.Store.GetCart(ctx, cartID)
	if err != nil {
		return 0, err
	}
	if c.Status == StatusCompleted && s.Totals != nil {
		if total, ok := s.Totals.GetTotal(ctx, cartID); ok {
			return total, nil
		}
	}
	lines, err := s.Store.ListLines(ctx, cartID)
	if err != nil {
		return 0, err
	}
	return CartTotal(lines), nil
}

// Checkout freezes the cart: computes the total, transitions open ->
// completed and publishes the checkout event. The transition is terminal.
func (s *Service) Checkout(ctx context.Context, cartID string) (int64, error) {
	c, err := s.Store.GetCart(ctx, cartID)
	if err != nil {
		return 0, err
	}
	if !CanTransition(c.Status, StatusCompleted) {
		return 0, ErrCartCompleted
	}

	// The store re-checks the state under the row lock; this is what wins
	// the race against a concurrent checkout.
	total, lines, err := s.Store.CompleteCart(ctx, cartID)
	if err != nil {
		return 0, err
	}

	if s.Totals != nil {
		s.Totals.SetTotal(ctx, cartID, total)
	}
	if s.Events != nil {
		items := make([]ItemPrice, 0, len(lines))
		for _, l := range lines {
			items = append(items, ItemPrice{
				ProductID:  l.Product.ID,
				Quantity:   l.Quantity,
				PriceCents: l.Product.PriceCents,
			})
		}
		s.Events.PublishCheckedOut(ctx, CartCheckedOutPayload{
			CartID:     cartID,
			UserID:     c.UserID,
			Items:      items,
			TotalCents: total,
		})
	}
	s.Log.Info().Str("cart_id", cartID).Int64("total_cents", total).Msg("cart checked out")
	return total, nil
}

// guardOpen is the fast-path state check; the store repeats it under the row
// lock for the mutating write itself.
func (s *Service) guardOpen(ctx context.Context, cartID string) error {
	c, err := s.Store.GetCart(ctx, cartID)
	if err != nil {
		return err
	}
	if c.Status != StatusOpen {
		return ErrCartCompleted
	}
	return nil
}
