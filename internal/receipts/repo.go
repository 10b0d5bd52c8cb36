package receipts

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Receipt struct {
	CartID     string
	UserID     string
	TotalCents int64
	CreatedAt  time.Time
}

type PgRepo struct{ DB *pgxpool.Pool }

// Exists is the idempotency short-circuit for redelivered events.
func (r *PgRepo) Exists(ctx context.Context, cartID string) (bool, error) {
	var n int
	err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM receipts WHERE cart_id=$1`, cartID).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Record inserts the receipt once; a replayed event hits the conflict and is
// a no-op.
func (r *PgRepo) Record(ctx context.Context, rec Receipt) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO receipts(cart_id, user_id, total_cents)
		VALUES ($1,$2,$3)
		ON CONFLICT (cart_id) DO NOTHING`,
		rec.CartID, rec.UserID, rec.TotalCents)
	return err
}
