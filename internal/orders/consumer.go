package orders

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/FadilRifaldy/Final-Project-Backend/internal/redisx"
)

// StatusCache keeps the Redis order-status cache warm from order events,
// so status reads stay cheap across API instances. Dedup by event id.
type StatusCache struct {
	Redis       *redis.Client
	Log         *zap.Logger
	ServiceName string
}

func (s *StatusCache) HandleOrderEvent(ctx context.Context, m kafkago.Message) error {
	var env Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}

	var status Status
	switch env.EventType {
	case EventOrderCreated:
		status = StatusPendingPayment
	case EventOrderCancelled:
		status = StatusCancelled
	default:
		return nil
	}

	dkey := fmt.Sprintf(redisx.KeyDedup, s.ServiceName, env.EventID)
	if exists, _ := redisx.Exists(ctx, s.Redis, dkey); exists {
		return nil
	}
	_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()

	key := fmt.Sprintf(redisx.KeyOrderStatus, env.CorrelationID)
	body, _ := json.Marshal(map[string]Status{"status": status})
	if err := s.Redis.Set(ctx, key, body, redisx.TTLStatusCache).Err(); err != nil {
		return err
	}
	s.Log.Debug("order status cached",
		zap.String("orderId", env.CorrelationID),
		zap.String("status", string(status)))
	return nil
}
