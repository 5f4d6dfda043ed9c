package notifier

import (
	"context"
	"encoding/json"
	"fmt"

	kafkax "github.com/ardiansyah/go-shop-api/internal/kafka"
	"github.com/ardiansyah/go-shop-api/internal/orders"
	"github.com/ardiansyah/go-shop-api/internal/redisx"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Service consumes order lifecycle events, warms the order status cache and
// records the customer notification. Delivery itself (mail, push) sits behind
// this boundary.
type Service struct {
	Redis *redis.Client
	Log   *zap.Logger
	Name  string
}

// HandleOrderEvent is mounted as the consumer handler for both order topics.
func (s *Service) HandleOrderEvent(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}

	switch env.EventType {
	case orders.EventOrderCreated, orders.EventOrderCancelled:
	default:
		return nil // ignore
	}

	// dedup by event id: consumers may see redeliveries
	dkey := fmt.Sprintf(redisx.KeyDedup, s.Name, env.EventID)
	if exists, _ := redisx.Exists(ctx, s.Redis, dkey); exists {
		return nil
	}
	_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()

	if env.EventType == orders.EventOrderCreated {
		p, err := kafkax.UnwrapPayload[orders.OrderCreatedPayload](env.Payload)
		if err != nil {
			return err
		}
		s.cacheStatus(ctx, p.OrderID, orders.StatusPending)
		s.Log.Info("order confirmation sent",
			zap.String("order_id", p.OrderID),
			zap.String("order_number", p.OrderNumber),
			zap.String("user_id", p.UserID),
			zap.String("total_amount", p.TotalAmount))
		return nil
	}

	p, err := kafkax.UnwrapPayload[orders.OrderCancelledPayload](env.Payload)
	if err != nil {
		return err
	}
	s.cacheStatus(ctx, p.OrderID, orders.StatusCancelled)
	s.Log.Info("cancellation notice sent",
		zap.String("order_id", p.OrderID),
		zap.String("order_number", p.OrderNumber),
		zap.String("user_id", p.UserID))
	return nil
}

func (s *Service) cacheStatus(ctx context.Context, orderID string, status orders.Status) {
	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	b, _ := json.Marshal(map[string]any{"status": status})
	_ = s.Redis.Set(ctx, key, b, redisx.TTLStatusCache).Err()
}
