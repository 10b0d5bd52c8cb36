package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
)

func TestWithRetry(t *testing.T) {
	ctx := context.Background()
	msg := kafka.Message{Value: []byte("{}")}

	t.Run("first attempt succeeds", func(t *testing.T) {
		calls := 0
		err := withRetry(ctx, func(context.Context, kafka.Message) error {
			calls++
			return nil
		}, msg)
		if err != nil {
			t.Fatalf("expected nil, got %v", err)
		}
		if calls != 1 {
			t.Fatalf("expected 1 call, got %d", calls)
		}
	})

	t.Run("flaky handler recovers", func(t *testing.T) {
		calls := 0
		err := withRetry(ctx, func(context.Context, kafka.Message) error {
			calls++
			if calls < 3 {
				return errors.New("transient")
			}
			return nil
		}, msg)
		if err != nil {
			t.Fatalf("expected nil after recovery, got %v", err)
		}
		if calls != 3 {
			t.Fatalf("expected 3 calls, got %d", calls)
		}
	})

	t.Run("gives up after the last attempt", func(t *testing.T) {
		boom := errors.New("boom")
		calls := 0
		err := withRetry(ctx, func(context.Context, kafka.Message) error {
			calls++
			return boom
		}, msg)
		if !errors.Is(err, boom) {
			t.Fatalf("expected boom, got %v", err)
		}
		if calls != handlerAttempts {
			t.Fatalf("expected %d calls, got %d", handlerAttempts, calls)
		}
	})

	t.Run("cancellation cuts retries short", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		boom := errors.New("boom")
		calls := 0
		err := withRetry(cctx, func(context.Context, kafka.Message) error {
			calls++
			return boom
		}, msg)
		if !errors.Is(err, boom) {
			t.Fatalf("expected boom, got %v", err)
		}
		if calls != 1 {
			t.Fatalf("expected 1 call, got %d", calls)
		}
	})
}
