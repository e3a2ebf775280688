package bus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ysv/peatio-core/internal/common/config"
)

// RedisBus implements Bus over redis pub/sub. Events are JSON envelopes
// published on per-event channels; the channel name mirrors the original
// topic-exchange routing key layout so broker-side tooling can still
// subscribe selectively.
type RedisBus struct {
	logger *zap.Logger
	client *redis.Client
	pubsub *redis.PubSub
}

var _ Bus = (*RedisBus)(nil)

// NewRedisBus creates a new redis-backed bus
func NewRedisBus(logger *zap.Logger, cfg config.BusRedisConfig) (*RedisBus, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisBus{
		logger: logger.Named("bus.redis"),
		client: client,
	}, nil
}

// Subscribe implements Bus.Subscribe. The consume loop is a single
// goroutine, so the handler observes events in redis delivery order.
func (b *RedisBus) Subscribe(ctx context.Context, pattern string, handler Handler) error {
	pubsub := b.client.PSubscribe(ctx, pattern)

	// Wait for the subscription to be established before returning so
	// callers can publish immediately after.
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %q: %w", pattern, err)
	}
	b.pubsub = pubsub

	go func() {
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var event Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					b.logger.Error("failed to unmarshal event",
						zap.String("channel", msg.Channel),
						zap.Error(err))
					continue
				}
				if err := event.Validate(); err != nil {
					b.logger.Warn("dropping invalid event",
						zap.String("channel", msg.Channel),
						zap.Error(err))
					continue
				}
				handler(&event)
			}
		}
	}()

	return nil
}

// Publish implements Bus.Publish
func (b *RedisBus) Publish(ctx context.Context, event *Event) error {
	if err := event.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := b.client.Publish(ctx, event.Channel(), data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Close implements Bus.Close
func (b *RedisBus) Close() error {
	if b.pubsub != nil {
		if err := b.pubsub.Close(); err != nil {
			b.logger.Error("failed to close subscription", zap.Error(err))
		}
	}
	return b.client.Close()
}
