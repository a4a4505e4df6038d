package fees

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// InvalidationChannel is the pub/sub channel carrying fee rule change events.
const InvalidationChannel = "fee_rules:changed"

// Publisher announces fee rule mutations to all resolver caches.
type Publisher interface {
	PublishRulesChanged(ctx context.Context) error
}

// RedisPublisher publishes rule change events over redis pub/sub.
type RedisPublisher struct {
	client redis.UniversalClient
}

func NewRedisPublisher(client redis.UniversalClient) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) PublishRulesChanged(ctx context.Context) error {
	return p.client.Publish(ctx, InvalidationChannel, "changed").Err()
}

// SubscribeInvalidation subscribes to rule change events and invalidates the
// resolver cache on each one. It blocks until the context is canceled, so
// callers run it in a goroutine.
func SubscribeInvalidation(ctx context.Context, client redis.UniversalClient, resolver *Resolver, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	sub := client.Subscribe(ctx, InvalidationChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			resolver.Invalidate()
			logger.Debug("fee rule cache invalidated", zap.String("channel", msg.Channel))
		}
	}
}

// NoopPublisher discards rule change events. Used when redis is not wired,
// e.g. in tests; callers must invalidate the resolver directly.
type NoopPublisher struct{}

func (NoopPublisher) PublishRulesChanged(context.Context) error { return nil }
