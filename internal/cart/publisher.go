package cart

import (
	"context"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/yacosta738/go-shopping-cart/internal/kafka"
)

// KafkaPublisher wraps the async producer with the envelope plumbing for
// checkout events.
type KafkaPublisher struct {
	Producer *kafkax.Producer
	Service  string
}

func (p *KafkaPublisher) PublishCheckedOut(ctx context.Context, payload CartCheckedOutPayload) {
	ev := Envelope{
		EventID:       uuid.NewString(),
		EventType:     EventCartCheckedOut,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      p.Service,
		TraceID:       middleware.GetReqID(ctx),
		CorrelationID: payload.CartID,
		Payload:       kafkax.MustMarshal(payload),
	}
	p.Producer.Publish(PartitionKey(payload.CartID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(EventCartCheckedOut)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
