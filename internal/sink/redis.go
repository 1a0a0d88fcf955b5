package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOptions configure the Redis pub/sub publisher.
type RedisOptions struct {
	Addr          string
	Password      string
	DB            int
	ChannelPrefix string
}

type redisClient interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Close() error
}

// RedisPublisher publishes envelopes on one channel per event kind.
type RedisPublisher struct {
	client redisClient
	prefix string
}

var _ Publisher = (*RedisPublisher)(nil)

// NewRedisPublisher connects and pings the server.
func NewRedisPublisher(ctx context.Context, opts RedisOptions) (*RedisPublisher, error) {
	if opts.Addr == "" {
		return nil, fmt.Errorf("redis addr required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return newRedisPublisher(client, opts.ChannelPrefix), nil
}

func newRedisPublisher(client redisClient, prefix string) *RedisPublisher {
	if prefix == "" {
		prefix = "alpharadar"
	}
	return &RedisPublisher{client: client, prefix: prefix}
}

// Channel returns the channel used for kind.
func (p *RedisPublisher) Channel(kind string) string {
	return p.prefix + ":" + kind
}

// Publish sends the envelope. Having no subscribers is not an error.
func (p *RedisPublisher) Publish(ctx context.Context, env Envelope) error {
	data, err := encode(env)
	if err != nil {
		return err
	}
	channel := p.Channel(env.Kind)
	if err := p.client.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", channel, err)
	}
	return nil
}

// Close closes the client.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
