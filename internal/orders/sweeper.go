package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/FadilRifaldy/Final-Project-Backend/internal/kafka"
	"github.com/FadilRifaldy/Final-Project-Backend/internal/redisx"
)

// Sweeper enforces the auto-cancel policy: unpaid orders past their
// deadline get cancelled and their reservations released. The per-order
// conditional flip in the store makes each sweep idempotent; the redis
// lock just keeps multiple workers from doing the same scan.
type Sweeper struct {
	Store       Store
	Redis       *redis.Client
	Producer    *kafkax.Producer
	Log         *zap.Logger
	ServiceName string
	Interval    time.Duration
	Batch       int
}

func (s *Sweeper) Run(ctx context.Context) error {
	interval := s.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if !s.acquireLock(ctx) {
				continue
			}
			if n, err := s.SweepOnce(ctx, time.Now()); err != nil {
				s.Log.Error("sweep failed", zap.Error(err))
			} else if n > 0 {
				s.Log.Info("sweep released expired orders", zap.Int("cancelled", n))
			}
		}
	}
}

func (s *Sweeper) acquireLock(ctx context.Context) bool {
	if s.Redis == nil {
		return true
	}
	ok, err := s.Redis.SetNX(ctx, redisx.KeySweepLock, "1", redisx.TTLSweepLock).Result()
	if err != nil {
		s.Log.Warn("sweep lock unavailable", zap.Error(err))
		return false
	}
	return ok
}

// SweepOnce cancels up to Batch expired orders. A conflict on one order
// (reservation drift) is logged and skipped so the rest still get swept.
func (s *Sweeper) SweepOnce(ctx context.Context, now time.Time) (int, error) {
	batch := s.Batch
	if batch <= 0 {
		batch = 100
	}
	ids, err := s.Store.ExpiredPending(ctx, now, batch)
	if err != nil {
		return 0, err
	}

	var cancelled int
	for _, id := range ids {
		res, err := s.Store.CancelExpired(ctx, id, now)
		if err != nil {
			s.Log.Error("auto-cancel failed", zap.String("orderId", id), zap.Error(err))
			continue
		}
		if res == nil {
			// already swept by another worker, or paid in the meantime
			continue
		}
		cancelled++
		s.Log.Info("order auto-cancelled",
			zap.String("orderId", res.Order.ID),
			zap.String("orderNumber", res.Order.OrderNumber),
			zap.Int("items", len(res.Items)))
		s.publishCancelled(ctx, res)
	}
	return cancelled, nil
}

func (s *Sweeper) publishCancelled(ctx context.Context, res *CancelResult) {
	if s.Redis != nil {
		key := fmt.Sprintf(redisx.KeyOrderStatus, res.Order.ID)
		_ = s.Redis.Set(ctx, key, `{"status":"CANCELLED"}`, redisx.TTLStatusCache).Err()
	}
	if s.Producer == nil {
		return
	}
	ev := Envelope{
		EventID:       uuid.NewString(),
		EventType:     EventOrderCancelled,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.ServiceName,
		CorrelationID: res.Order.ID,
		Payload: kafkax.MustMarshal(OrderCancelledPayload{
			OrderID:     res.Order.ID,
			OrderNumber: res.Order.OrderNumber,
			Reason:      "PAYMENT_WINDOW_EXPIRED",
			Items:       res.Items,
		}),
	}
	s.Producer.Publish(PartitionKey(res.Order.ID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(EventOrderCancelled)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
