package events

import (
	"context"
	"encoding/json"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
)

// RedisPublisher pushes status events onto a Redis pub/sub channel.
type RedisPublisher struct {
	client  *goredis.Client
	channel string
}

func NewRedisPublisher(addr, password string, db int, channel string) *RedisPublisher {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisPublisher{client: rdb, channel: channel}
}

var _ Publisher = (*RedisPublisher)(nil)

func (p *RedisPublisher) Publish(ctx context.Context, event StatusEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return p.client.Publish(ctx, p.channel, data).Err()
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
