package notify

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// eventsChannel carries every serialized Event between instances.
const eventsChannel = "waterwatch.events"

// Broker relays serialized events between process instances. A nil
// Broker on the Hub means single-instance, in-process delivery only.
type Broker interface {
	Publish(ctx context.Context, data []byte) error
	Listen(ctx context.Context, fn func(data []byte))
}

// RedisBroker fans events out over a Redis pub/sub channel so that
// every instance behind a load balancer delivers to its own sockets.
type RedisBroker struct {
	client *redis.Client
	logger *zap.Logger
}

func NewRedisBroker(ctx context.Context, redisURL string, logger *zap.Logger) (*RedisBroker, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &RedisBroker{client: client, logger: logger}, nil
}

func (b *RedisBroker) Publish(ctx context.Context, data []byte) error {
	return b.client.Publish(ctx, eventsChannel, data).Err()
}

// Listen blocks until ctx is cancelled, invoking fn for every message
// on the events channel. Callers run it in its own goroutine.
func (b *RedisBroker) Listen(ctx context.Context, fn func(data []byte)) {
	sub := b.client.Subscribe(ctx, eventsChannel)
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
			fn([]byte(msg.Payload))
		}
	}
}

func (b *RedisBroker) Close() error {
	return b.client.Close()
}
