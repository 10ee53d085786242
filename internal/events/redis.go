package events

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher appends events to a Redis stream.
type RedisPublisher struct {
	rdb    *redis.Client
	stream string
	maxLen int64
}

// NewRedisPublisher connects to Redis and verifies the connection.
func NewRedisPublisher(ctx context.Context, addr, password string, db int, stream string, maxLen int64) (*RedisPublisher, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return newRedisPublisher(rdb, stream, maxLen), nil
}

func newRedisPublisher(rdb *redis.Client, stream string, maxLen int64) *RedisPublisher {
	if stream == "" {
		stream = "coach:events"
	}
	return &RedisPublisher{rdb: rdb, stream: stream, maxLen: maxLen}
}

// Publish adds the event to the stream, trimming it to roughly maxLen entries.
func (p *RedisPublisher) Publish(ctx context.Context, event *Event) error {
	data, err := MarshalEvent(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = p.rdb.XAdd(ctx, streamArgs(p.stream, p.maxLen, event, data)).Err()
	if err != nil {
		return fmt.Errorf("failed to publish to stream %s: %w", p.stream, err)
	}
	return nil
}

func streamArgs(stream string, maxLen int64, event *Event, data string) *redis.XAddArgs {
	args := &redis.XAddArgs{
		Stream: stream,
		Values: map[string]interface{}{
			"type":      event.Type,
			"requestId": event.RequestID,
			"event":     data,
		},
	}
	if maxLen > 0 {
		args.MaxLen = maxLen
		args.Approx = true
	}
	return args
}

func (p *RedisPublisher) Close() error { return p.rdb.Close() }
func (p *RedisPublisher) Sink() string { return "redis" }
