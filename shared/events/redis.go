package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"insureportal-backend/shared/config"
	applog "insureportal-backend/shared/logger"
)

// RedisBridge publishes events to a redis channel and relays everything it
// receives on that channel into the local Hub, so every instance sees writes
// made by the others.
type RedisBridge struct {
	client  *redis.Client
	channel string
	hub     *Hub
	log     zerolog.Logger
}

// NewRedisClient connects to redis from configuration
func NewRedisClient(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       cfg.GetRedisDB(),
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	applog.Info().Str("host", cfg.RedisHost).Str("port", cfg.RedisPort).Int("db", cfg.GetRedisDB()).
		Msg("✅ Redis connection established")
	return client, nil
}

func NewRedisBridge(client *redis.Client, channel string, hub *Hub) *RedisBridge {
	return &RedisBridge{client: client, channel: channel, hub: hub, log: applog.With("redis-bridge")}
}

func (b *RedisBridge) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, b.channel, payload).Err()
}

// Run relays redis messages into the hub until ctx is cancelled.
func (b *RedisBridge) Run(ctx context.Context) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", b.channel, err)
	}
	b.log.Info().Str("channel", b.channel).Msg("📡 Listening for form events")

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				b.log.Warn().Err(err).Msg("Discarding malformed form event")
				continue
			}
			_ = b.hub.Publish(ctx, event)
		}
	}
}

// Close closes the redis client
func (b *RedisBridge) Close() error {
	return b.client.Close()
}
