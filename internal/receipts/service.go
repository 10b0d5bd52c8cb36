package receipts

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/yacosta738/go-shopping-cart/internal/cart"
	kafkax "github.com/yacosta738/go-shopping-cart/internal/kafka"
	"github.com/yacosta738/go-shopping-cart/internal/redisx"
)

// Repo is what the consumer needs from persistence; *PgRepo is the real one.
type Repo interface {
	Exists(ctx context.Context, cartID string) (bool, error)
	Record(ctx context.Context, rec Receipt) error
}

// Service projects CartCheckedOut events into receipt rows.
type Service struct {
	Repo        Repo
	Redis       *redis.Client // optional event dedup
	ServiceName string
	Log         zerolog.Logger
}

// HandleCheckedOut is wired as the consumer handler for cart.checked_out.
func (s *Service) HandleCheckedOut(ctx context.Context, m kafkago.Message) error {
	var env cart.Envelope
	if err := kafkax.UnmarshalEnvelope(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != cart.EventCartCheckedOut {
		return nil
	}

	if s.Redis != nil {
		dkey := fmt.Sprintf(redisx.KeyDedup, "receipts", env.EventID)
		if seen, _ := redisx.Exists(ctx, s.Redis, dkey); seen {
			return nil
		}
		_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()
	}

	p, err := kafkax.UnwrapPayload[cart.CartCheckedOutPayload](env.Payload)
	if err != nil {
		return err
	}

	if done, err := s.Repo.Exists(ctx, p.CartID); err != nil {
		return err
	} else if done {
		return nil
	}

	if err := s.Repo.Record(ctx, Receipt{
		CartID:     p.CartID,
		UserID:     p.UserID,
		TotalCents: p.TotalCents,
	}); err != nil {
		return err
	}
	s.Log.Info().Str("cart_id", p.CartID).Int64("total_cents", p.TotalCents).Msg("receipt recorded")
	return nil
}
