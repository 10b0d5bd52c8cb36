package cart

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yacosta738/go-shopping-cart/internal/catalog"
)

// PgStore persists carts and their line items. Every mutating call runs in
// one transaction that locks the cart row FOR UPDATE and re-checks the status
// inside that transaction, so a checkout racing a late mutation loses cleanly
// instead of writing into a completed cart.
type PgStore struct{ DB *pgxpool.Pool }

func (s *PgStore) CreateCart(ctx context.Context, userID string) (Cart, error) {
	c := Cart{
		ID:     uuid.NewString(),
		UserID: userID,
		Status: StatusOpen,
	}
	row := s.DB.QueryRow(ctx, `
		INSERT INTO carts(id, user_id, status, version)
		VALUES ($1,$2,$3,1)
		RETURNING version, created_at, updated_at`,
		c.ID, c.UserID, string(c.Status),
	)
	if err := row.Scan(&c.Version, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return Cart{}, err
	}
	return c, nil
}

func (s *PgStore) GetCart(ctx context.Context, cartID string) (Cart, error) {
	var c Cart
	var status string
	err := s.DB.QueryRow(ctx, `
		SELECT id, user_id, status, version, created_at, updated_at
		FROM carts WHERE id=$1`, cartID,
	).Scan(&c.ID, &c.UserID, &status, &c.Version, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Cart{}, ErrCartNotFound
	}
	if err != nil {
		return Cart{}, err
	}
	c.Status = Status(status)

	rows, err := s.DB.Query(ctx, `
		SELECT id, cart_id, product_id, quantity, added_at
		FROM cart_items WHERE cart_id=$1 ORDER BY id`, cartID)
	if err != nil {
		return Cart{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.CartID, &it.ProductID, &it.Quantity, &it.AddedAt); err != nil {
			return Cart{}, err
		}
		c.Items = append(c.Items, it)
	}
	return c, rows.Err()
}

// ListCarts returns cart headers without their items.
func (s *PgStore) ListCarts(ctx context.Context, limit, offset int) ([]Cart, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT id, user_id, status, version, created_at, updated_at
		FROM carts ORDER BY created_at LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Cart
	for rows.Next() {
		var c Cart
		var status string
		if err := rows.Scan(&c.ID, &c.UserID, &status, &c.Version, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		c.Status = Status(status)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PgStore) DeleteCart(ctx context.Context, cartID string) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id=$1`, cartID); err != nil {
		return err
	}
	ct, err := tx.Exec(ctx, `DELETE FROM carts WHERE id=$1`, cartID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrCartNotFound
	}
	return tx.Commit(ctx)
}

// AddItem merges quantity into the (cart, product) line, creating it when
// absent. The unique index on (cart_id, product_id) keeps one line per pair.
func (s *PgStore) AddItem(ctx context.Context, cartID, productID string, qty int) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := lockOpenCart(ctx, tx, cartID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO cart_items(cart_id, product_id, quantity)
		VALUES ($1,$2,$3)
		ON CONFLICT (cart_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity`,
		cartID, productID, qty,
	); err != nil {
		return err
	}
	if err := touchCart(ctx, tx, cartID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// RemoveItem decrements the line by qty and deletes it once it reaches zero.
// Absent line: nothing to do.
func (s *PgStore) RemoveItem(ctx context.Context, cartID, productID string, qty int) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := lockOpenCart(ctx, tx, cartID); err != nil {
		return err
	}

	var current int
	err = tx.QueryRow(ctx, `
		SELECT quantity FROM cart_items
		WHERE cart_id=$1 AND product_id=$2 FOR UPDATE`, cartID, productID,
	).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return tx.Commit(ctx)
	}
	if err != nil {
		return err
	}

	if qty >= current {
		_, err = tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id=$1 AND product_id=$2`, cartID, productID)
	} else {
		_, err = tx.Exec(ctx, `
			UPDATE cart_items SET quantity = quantity - $3
			WHERE cart_id=$1 AND product_id=$2`, cartID, productID, qty)
	}
	if err != nil {
		return err
	}
	if err := touchCart(ctx, tx, cartID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// RemoveLine drops the whole (cart, product) line regardless of quantity.
func (s *PgStore) RemoveLine(ctx context.Context, cartID, productID string) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := lockOpenCart(ctx, tx, cartID); err != nil {
		return err
	}
	ct, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id=$1 AND product_id=$2`, cartID, productID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() > 0 {
		if err := touchCart(ctx, tx, cartID); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// SetItemQuantity overwrites the line quantity. Absent line: nothing to do.
func (s *PgStore) SetItemQuantity(ctx context.Context, cartID, productID string, qty int) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := lockOpenCart(ctx, tx, cartID); err != nil {
		return err
	}
	ct, err := tx.Exec(ctx, `
		UPDATE cart_items SET quantity=$3
		WHERE cart_id=$1 AND product_id=$2`, cartID, productID, qty)
	if err != nil {
		return err
	}
	if ct.RowsAffected() > 0 {
		if err := touchCart(ctx, tx, cartID); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// ListLines joins the ledger with the catalog, in insertion order.
func (s *PgStore) ListLines(ctx context.Context, cartID string) ([]PricedLine, error) {
	rows, err := s.DB.Query(ctx, pricedLinesSQL, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPricedLines(rows)
}

// CompleteCart reads the priced lines and flips the cart to completed in one
// transaction, so the returned total is exactly what was frozen.
func (s *PgStore) CompleteCart(ctx context.Context, cartID string) (int64, []PricedLine, error) {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, nil, err
	}
	defer tx.Rollback(ctx)

	if err := lockOpenCart(ctx, tx, cartID); err != nil {
		return 0, nil, err
	}

	rows, err := tx.Query(ctx, pricedLinesSQL, cartID)
	if err != nil {
		return 0, nil, err
	}
	lines, err := scanPricedLines(rows)
	rows.Close()
	if err != nil {
		return 0, nil, err
	}
	total := CartTotal(lines)

	if _, err := tx.Exec(ctx, `
		UPDATE carts SET status=$2, version=version+1, updated_at=now()
		WHERE id=$1`, cartID, string(StatusCompleted),
	); err != nil {
		return 0, nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, nil, err
	}
	return total, lines, nil
}

const pricedLinesSQL = `
	SELECT p.id, p.name, p.sku, p.description, p.price_cents, p.has_discount,
	       p.created_at, p.updated_at, ci.quantity
	FROM cart_items ci
	JOIN products p ON p.id = ci.product_id
	WHERE ci.cart_id=$1 ORDER BY ci.id`

func scanPricedLines(rows pgx.Rows) ([]PricedLine, error) {
	var out []PricedLine
	for rows.Next() {
		var l PricedLine
		var p catalog.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.SKU, &p.Description, &p.PriceCents,
			&p.HasDiscount, &p.CreatedAt, &p.UpdatedAt, &l.Quantity); err != nil {
			return nil, err
		}
		l.Product = p
		out = append(out, l)
	}
	return out, rows.Err()
}

func lockOpenCart(ctx context.Context, tx pgx.Tx, cartID string) error {
	var status string
	err := tx.QueryRow(ctx, `SELECT status FROM carts WHERE id=$1 FOR UPDATE`, cartID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrCartNotFound
	}
	if err != nil {
		return err
	}
	if Status(status) != StatusOpen {
		return ErrCartCompleted
	}
	return nil
}

func touchCart(ctx context.Context, tx pgx.Tx, cartID string) error {
	_, err := tx.Exec(ctx, `
		UPDATE carts SET version=version+1, updated_at=$2 WHERE id=$1`,
		cartID, time.Now().UTC())
	return err
}
