package cart_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/yacosta738/go-shopping-cart/internal/cart"
	"github.com/yacosta738/go-shopping-cart/internal/catalog"
)

type fakeCatalog struct {
	products map[string]catalog.Product
}

func (f *fakeCatalog) Get(_ context.Context, id string) (catalog.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return catalog.Product{}, catalog.ErrNotFound
	}
	return p, nil
}

// fakeStore mirrors the PgStore contract in memory, including the
// state check the real store performs under its row lock.
type fakeStore struct {
	mu       sync.Mutex
	catalog  *fakeCatalog
	carts    map[string]*cart.Cart
	nextCart int
	nextItem int64
}

func newFakeStore(cat *fakeCatalog) *fakeStore {
	return &fakeStore{catalog: cat, carts: map[string]*cart.Cart{}}
}

func (f *fakeStore) CreateCart(_ context.Context, userID string) (cart.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextCart++
	c := &cart.Cart{
		ID:      fmt.Sprintf("cart-%d", f.nextCart),
		UserID:  userID,
		Status:  cart.StatusOpen,
		Version: 1,
	}
	f.carts[c.ID] = c
	return *c, nil
}

func (f *fakeStore) GetCart(_ context.Context, cartID string) (cart.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.carts[cartID]
	if !ok {
		return cart.Cart{}, cart.ErrCartNotFound
	}
	out := *c
	out.Items = append([]cart.Item(nil), c.Items...)
	return out, nil
}

func (f *fakeStore) ListCarts(_ context.Context, limit, offset int) ([]cart.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []cart.Cart
	for _, c := range f.carts {
		out = append(out, *c)
	}
	return out, nil
}

func (f *fakeStore) DeleteCart(_ context.Context, cartID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.carts[cartID]; !ok {
		return cart.ErrCartNotFound
	}
	delete(f.carts, cartID)
	return nil
}

func (f *fakeStore) open(cartID string) (*cart.Cart, error) {
	c, ok := f.carts[cartID]
	if !ok {
		return nil, cart.ErrCartNotFound
	}
	if c.Status != cart.StatusOpen {
		return nil, cart.ErrCartCompleted
	}
	return c, nil
}

func (f *fakeStore) AddItem(_ context.Context, cartID, productID string, qty int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, err := f.open(cartID)
	if err != nil {
		return err
	}
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Quantity += qty
			c.Version++
			return nil
		}
	}
	f.nextItem++
	c.Items = append(c.Items, cart.Item{
		ID:        f.nextItem,
		CartID:    cartID,
		ProductID: productID,
		Quantity:  qty,
	})
	c.Version++
	return nil
}

func (f *fakeStore) RemoveItem(_ context.Context, cartID, productID string, qty int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, err := f.open(cartID)
	if err != nil {
		return err
	}
	for i := range c.Items {
		if c.Items[i].ProductID != productID {
			continue
		}
		if qty >= c.Items[i].Quantity {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
		} else {
			c.Items[i].Quantity -= qty
		}
		c.Version++
		return nil
	}
	return nil
}

func (f *fakeStore) RemoveLine(_ context.Context, cartID, productID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, err := f.open(cartID)
	if err != nil {
		return err
	}
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			c.Version++
			return nil
		}
	}
	return nil
}

func (f *fakeStore) SetItemQuantity(_ context.Context, cartID, productID string, qty int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, err := f.open(cartID)
	if err != nil {
		return err
	}
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Quantity = qty
			c.Version++
			return nil
		}
	}
	return nil
}

func (f *fakeStore) ListLines(_ context.Context, cartID string) ([]cart.PricedLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.carts[cartID]
	if !ok {
		return nil, cart.ErrCartNotFound
	}
	var out []cart.PricedLine
	for _, it := range c.Items {
		out = append(out, cart.PricedLine{
			Product:  f.catalog.products[it.ProductID],
			Quantity: it.Quantity,
		})
	}
	return out, nil
}

func (f *fakeStore) CompleteCart(_ context.Context, cartID string) (int64, []cart.PricedLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, err := f.open(cartID)
	if err != nil {
		return 0, nil, err
	}
	var lines []cart.PricedLine
	for _, it := range c.Items {
		lines = append(lines, cart.PricedLine{
			Product:  f.catalog.products[it.ProductID],
			Quantity: it.Quantity,
		})
	}
	c.Status = cart.StatusCompleted
	c.Version++
	return cart.CartTotal(lines), lines, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []cart.CartCheckedOutPayload
}

func (f *fakePublisher) PublishCheckedOut(_ context.Context, p cart.CartCheckedOutPayload) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, p)
}

type fakeTotals struct {
	totals map[string]int64
}

func (f *fakeTotals) SetTotal(_ context.Context, cartID string, total int64) {
	f.totals[cartID] = total
}

func (f *fakeTotals) GetTotal(_ context.Context, cartID string) (int64, bool) {
	t, ok := f.totals[cartID]
	return t, ok
}

func newTestService() (*cart.Service, *fakeCatalog, *fakeStore) {
	cat := &fakeCatalog{products: map[string]catalog.Product{
		"cola":  {ID: "cola", Name: "Coca Cola", SKU: "123", PriceCents: 1000},
		"fanta": {ID: "fanta", Name: "Fanta", SKU: "456", PriceCents: 1000, HasDiscount: true},
	}}
	store := newFakeStore(cat)
	svc := &cart.Service{Store: store, Catalog: cat, Log: zerolog.Nop()}
	return svc, cat, store
}

func TestAddProduct(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()
	c, _ := svc.Create(ctx, "user-1")

	t.Run("added product shows up in the listing", func(t *testing.T) {
		if _, err := svc.AddProduct(ctx, c.ID, "cola", 2); err != nil {
			t.Fatalf("AddProduct: %v", err)
		}
		lines, err := svc.ListProducts(ctx, c.ID)
		if err != nil {
			t.Fatalf("ListProducts: %v", err)
		}
		if len(lines) != 1 || lines[0].Product.ID != "cola" || lines[0].Quantity != 2 {
			t.Fatalf("unexpected lines: %+v", lines)
		}
	})

	t.Run("adding the same product merges quantities", func(t *testing.T) {
		if _, err := svc.AddProduct(ctx, c.ID, "cola", 3); err != nil {
			t.Fatalf("AddProduct: %v", err)
		}
		got, _ := svc.Get(ctx, c.ID)
		if len(got.Items) != 1 {
			t.Fatalf("expected a single line, got %d", len(got.Items))
		}
		if got.Items[0].Quantity != 5 {
			t.Fatalf("expected quantity 5, got %d", got.Items[0].Quantity)
		}
	})

	t.Run("unknown product", func(t *testing.T) {
		if _, err := svc.AddProduct(ctx, c.ID, "nope", 1); !errors.Is(err, catalog.ErrNotFound) {
			t.Fatalf("expected catalog.ErrNotFound, got %v", err)
		}
	})

	t.Run("unknown cart", func(t *testing.T) {
		if _, err := svc.AddProduct(ctx, "nope", "cola", 1); !errors.Is(err, cart.ErrCartNotFound) {
			t.Fatalf("expected ErrCartNotFound, got %v", err)
		}
	})

	t.Run("non-positive quantity rejected", func(t *testing.T) {
		if _, err := svc.AddProduct(ctx, c.ID, "cola", 0); !errors.Is(err, cart.ErrInvalidQuantity) {
			t.Fatalf("expected ErrInvalidQuantity, got %v", err)
		}
	})
}

func TestListProductsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()
	c, _ := svc.Create(ctx, "user-1")

	if _, err := svc.AddProduct(ctx, c.ID, "cola", 1); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.AddProduct(ctx, c.ID, "fanta", 1); err != nil {
		t.Fatal(err)
	}

	lines, err := svc.ListProducts(ctx, c.ID)
	if err != nil {
		t.Fatalf("ListProducts: %v", err)
	}
	if len(lines) != 2 || lines[0].Product.ID != "cola" || lines[1].Product.ID != "fanta" {
		t.Fatalf("expected [cola fanta], got %+v", lines)
	}
}

func TestRemoveProduct(t *testing.T) {
	ctx := context.Background()

	t.Run("product not in cart is a no-op", func(t *testing.T) {
		svc, _, _ := newTestService()
		c, _ := svc.Create(ctx, "user-1")
		if _, err := svc.AddProduct(ctx, c.ID, "cola", 2); err != nil {
			t.Fatal(err)
		}
		got, err := svc.RemoveProduct(ctx, c.ID, "fanta", 1)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(got.Items) != 1 || got.Items[0].Quantity != 2 {
			t.Fatalf("cart contents changed: %+v", got.Items)
		}
	})

	t.Run("partial removal decrements", func(t *testing.T) {
		svc, _, _ := newTestService()
		c, _ := svc.Create(ctx, "user-1")
		if _, err := svc.AddProduct(ctx, c.ID, "cola", 5); err != nil {
			t.Fatal(err)
		}
		got, err := svc.RemoveProduct(ctx, c.ID, "cola", 2)
		if err != nil {
			t.Fatal(err)
		}
		if got.Items[0].Quantity != 3 {
			t.Fatalf("expected quantity 3, got %d", got.Items[0].Quantity)
		}
	})

	t.Run("removal down to zero drops the line", func(t *testing.T) {
		svc, _, _ := newTestService()
		c, _ := svc.Create(ctx, "user-1")
		if _, err := svc.AddProduct(ctx, c.ID, "cola", 2); err != nil {
			t.Fatal(err)
		}
		got, err := svc.RemoveProduct(ctx, c.ID, "cola", 2)
		if err != nil {
			t.Fatal(err)
		}
		if len(got.Items) != 0 {
			t.Fatalf("expected empty cart, got %+v", got.Items)
		}
	})

	t.Run("remove line drops it whatever the quantity", func(t *testing.T) {
		svc, _, _ := newTestService()
		c, _ := svc.Create(ctx, "user-1")
		if _, err := svc.AddProduct(ctx, c.ID, "cola", 7); err != nil {
			t.Fatal(err)
		}
		got, err := svc.RemoveLine(ctx, c.ID, "cola")
		if err != nil {
			t.Fatal(err)
		}
		if len(got.Items) != 0 {
			t.Fatalf("expected empty cart, got %+v", got.Items)
		}
	})
}

func TestUpdateQuantity(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()
	c, _ := svc.Create(ctx, "user-1")
	if _, err := svc.AddProduct(ctx, c.ID, "cola", 1); err != nil {
		t.Fatal(err)
	}

	t.Run("overwrites the line quantity", func(t *testing.T) {
		got, err := svc.UpdateQuantity(ctx, c.ID, "cola", 4)
		if err != nil {
			t.Fatal(err)
		}
		if got.Items[0].Quantity != 4 {
			t.Fatalf("expected quantity 4, got %d", got.Items[0].Quantity)
		}
	})

	t.Run("absent line is a no-op", func(t *testing.T) {
		got, err := svc.UpdateQuantity(ctx, c.ID, "fanta", 4)
		if err != nil {
			t.Fatal(err)
		}
		if len(got.Items) != 1 {
			t.Fatalf("expected cart untouched, got %+v", got.Items)
		}
	})

	t.Run("non-positive quantity rejected", func(t *testing.T) {
		if _, err := svc.UpdateQuantity(ctx, c.ID, "cola", 0); !errors.Is(err, cart.ErrInvalidQuantity) {
			t.Fatalf("expected ErrInvalidQuantity, got %v", err)
		}
	})
}

func TestTotalPrice(t *testing.T) {
	ctx := context.Background()

	t.Run("empty cart totals zero", func(t *testing.T) {
		svc, _, _ := newTestService()
		c, _ := svc.Create(ctx, "user-1")
		total, err := svc.TotalPrice(ctx, c.ID)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if total != 0 {
			t.Fatalf("expected 0, got %d", total)
		}
	})

	t.Run("single plain line", func(t *testing.T) {
		svc, _, _ := newTestService()
		c, _ := svc.Create(ctx, "user-1")
		if _, err := svc.AddProduct(ctx, c.ID, "cola", 2); err != nil {
			t.Fatal(err)
		}
		total, err := svc.TotalPrice(ctx, c.ID)
		if err != nil {
			t.Fatal(err)
		}
		if total != 2000 {
			t.Fatalf("expected 2000, got %d", total)
		}
	})

	t.Run("discounted line", func(t *testing.T) {
		svc, _, _ := newTestService()
		c, _ := svc.Create(ctx, "user-1")
		if _, err := svc.AddProduct(ctx, c.ID, "cola", 2); err != nil {
			t.Fatal(err)
		}
		if _, err := svc.AddProduct(ctx, c.ID, "fanta", 3); err != nil {
			t.Fatal(err)
		}
		total, err := svc.TotalPrice(ctx, c.ID)
		if err != nil {
			t.Fatal(err)
		}
		if total != 4500 {
			t.Fatalf("expected 4500, got %d", total)
		}
	})

	t.Run("unknown cart", func(t *testing.T) {
		svc, _, _ := newTestService()
		if _, err := svc.TotalPrice(ctx, "nope"); !errors.Is(err, cart.ErrCartNotFound) {
			t.Fatalf("expected ErrCartNotFound, got %v", err)
		}
	})
}

func TestCheckout(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the total and completes the cart", func(t *testing.T) {
		svc, _, store := newTestService()
		c, _ := svc.Create(ctx, "user-1")
		if _, err := svc.AddProduct(ctx, c.ID, "cola", 2); err != nil {
			t.Fatal(err)
		}
		total, err := svc.Checkout(ctx, c.ID)
		if err != nil {
			t.Fatalf("Checkout: %v", err)
		}
		if total != 2000 {
			t.Fatalf("expected 2000, got %d", total)
		}
		got, _ := store.GetCart(ctx, c.ID)
		if got.Status != cart.StatusCompleted {
			t.Fatalf("expected completed, got %s", got.Status)
		}
	})

	t.Run("second checkout is rejected", func(t *testing.T) {
		svc, _, _ := newTestService()
		c, _ := svc.Create(ctx, "user-1")
		if _, err := svc.Checkout(ctx, c.ID); err != nil {
			t.Fatal(err)
		}
		if _, err := svc.Checkout(ctx, c.ID); !errors.Is(err, cart.ErrCartCompleted) {
			t.Fatalf("expected ErrCartCompleted, got %v", err)
		}
	})

	t.Run("publishes the event and caches the total", func(t *testing.T) {
		svc, _, _ := newTestService()
		pub := &fakePublisher{}
		totals := &fakeTotals{totals: map[string]int64{}}
		svc.Events = pub
		svc.Totals = totals

		c, _ := svc.Create(ctx, "user-7")
		if _, err := svc.AddProduct(ctx, c.ID, "fanta", 3); err != nil {
			t.Fatal(err)
		}
		total, err := svc.Checkout(ctx, c.ID)
		if err != nil {
			t.Fatal(err)
		}
		if total != 2500 {
			t.Fatalf("expected 2500, got %d", total)
		}

		if len(pub.events) != 1 {
			t.Fatalf("expected 1 event, got %d", len(pub.events))
		}
		ev := pub.events[0]
		if ev.CartID != c.ID || ev.UserID != "user-7" || ev.TotalCents != 2500 {
			t.Fatalf("unexpected payload: %+v", ev)
		}
		if len(ev.Items) != 1 || ev.Items[0].ProductID != "fanta" || ev.Items[0].Quantity != 3 {
			t.Fatalf("unexpected items: %+v", ev.Items)
		}
		if cached, ok := totals.GetTotal(ctx, c.ID); !ok || cached != 2500 {
			t.Fatalf("expected cached total 2500, got %d (ok=%v)", cached, ok)
		}
	})

	t.Run("completed cart serves the frozen total from cache", func(t *testing.T) {
		svc, _, _ := newTestService()
		totals := &fakeTotals{totals: map[string]int64{}}
		svc.Totals = totals

		c, _ := svc.Create(ctx, "user-1")
		if _, err := svc.AddProduct(ctx, c.ID, "cola", 2); err != nil {
			t.Fatal(err)
		}
		if _, err := svc.Checkout(ctx, c.ID); err != nil {
			t.Fatal(err)
		}
		// poke the cache to prove reads go through it once completed
		totals.SetTotal(ctx, c.ID, 1234)
		total, err := svc.TotalPrice(ctx, c.ID)
		if err != nil {
			t.Fatal(err)
		}
		if total != 1234 {
			t.Fatalf("expected cached 1234, got %d", total)
		}
	})
}

func TestCompletedCartRejectsMutations(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()
	c, _ := svc.Create(ctx, "user-1")
	if _, err := svc.AddProduct(ctx, c.ID, "cola", 1); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Checkout(ctx, c.ID); err != nil {
		t.Fatal(err)
	}

	ops := map[string]func() error{
		"AddProduct": func() error {
			_, err := svc.AddProduct(ctx, c.ID, "cola", 1)
			return err
		},
		"RemoveProduct": func() error {
			_, err := svc.RemoveProduct(ctx, c.ID, "cola", 1)
			return err
		},
		"RemoveLine": func() error {
			_, err := svc.RemoveLine(ctx, c.ID, "cola")
			return err
		},
		"UpdateQuantity": func() error {
			_, err := svc.UpdateQuantity(ctx, c.ID, "cola", 2)
			return err
		},
		"Checkout": func() error {
			_, err := svc.Checkout(ctx, c.ID)
			return err
		},
	}
	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			if err := op(); !errors.Is(err, cart.ErrCartCompleted) {
				t.Fatalf("expected ErrCartCompleted, got %v", err)
			}
		})
	}
}

func TestConcurrentAddProduct(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()
	c, _ := svc.Create(ctx, "user-1")

	const n = 50
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			_, err := svc.AddProduct(ctx, c.ID, "cola", 1)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent AddProduct failed: %v", err)
	}

	got, err := svc.Get(ctx, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Items) != 1 || got.Items[0].Quantity != n {
		t.Fatalf("expected one line with quantity %d, got %+v", n, got.Items)
	}
}
