package events

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// Handler processes one event. A returned error leaves the message
// unacknowledged: Redis entries are reclaimed after they sit idle, and the
// Kafka consumer stops so the offset is redelivered on the next run.
type Handler func(ctx context.Context, event *Event) error

// Consumer reads events back from a sink until its context is cancelled.
type Consumer interface {
	Run(ctx context.Context, handle Handler) error
	Close() error
}

const claimIdle = 30 * time.Second

// RedisConsumer reads the coach stream as a member of a consumer group.
type RedisConsumer struct {
	rdb      *redis.Client
	stream   string
	group    string
	consumer string
	logger   zerolog.Logger
}

// NewRedisConsumer connects to Redis and joins group on stream, creating
// both when missing.
func NewRedisConsumer(ctx context.Context, addr, password string, db int, stream, group string, logger zerolog.Logger) (*RedisConsumer, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	if stream == "" {
		stream = "coach:events"
	}

	err := rdb.XGroupCreateMkStream(ctx, stream, group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		rdb.Close()
		return nil, fmt.Errorf("failed to create consumer group %s: %w", group, err)
	}

	hostname, _ := os.Hostname()
	return &RedisConsumer{
		rdb:      rdb,
		stream:   stream,
		group:    group,
		consumer: fmt.Sprintf("consumer-%s-%d", hostname, os.Getpid()),
		logger:   logger,
	}, nil
}

func (c *RedisConsumer) Run(ctx context.Context, handle Handler) error {
	for {
		streams, err := c.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.group,
			Consumer: c.consumer,
			Streams:  []string{c.stream, ">"},
			Count:    100,
			Block:    time.Second,
		}).Result()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			c.logger.Warn().Err(err).Str("stream", c.stream).Msg("Stream read failed")
			time.Sleep(time.Second)
			continue
		}

		for _, s := range streams {
			c.process(ctx, s.Messages, handle)
		}
		c.reclaimPending(ctx, handle)
	}
}

func (c *RedisConsumer) process(ctx context.Context, messages []redis.XMessage, handle Handler) {
	for _, msg := range messages {
		event, err := decodeStreamMessage(msg)
		if err != nil {
			// Unreadable entries are acknowledged so they do not come back.
			c.logger.Error().Err(err).Str("id", msg.ID).Msg("Dropping malformed stream entry")
		} else if err := handle(ctx, event); err != nil {
			c.logger.Warn().Err(err).Str("id", msg.ID).Msg("Event handler failed")
			continue
		}
		if err := c.rdb.XAck(ctx, c.stream, c.group, msg.ID).Err(); err != nil {
			c.logger.Warn().Err(err).Str("id", msg.ID).Msg("Failed to ack stream entry")
		}
	}
}

// reclaimPending takes over entries another consumer read but never acked.
func (c *RedisConsumer) reclaimPending(ctx context.Context, handle Handler) {
	pending, err := c.rdb.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: c.stream,
		Group:  c.group,
		Start:  "-",
		End:    "+",
		Count:  100,
		Idle:   claimIdle,
	}).Result()
	if err != nil || len(pending) == 0 {
		return
	}

	ids := make([]string, 0, len(pending))
	for _, p := range pending {
		ids = append(ids, p.ID)
	}
	claimed, err := c.rdb.XClaim(ctx, &redis.XClaimArgs{
		Stream:   c.stream,
		Group:    c.group,
		Consumer: c.consumer,
		MinIdle:  claimIdle,
		Messages: ids,
	}).Result()
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to claim pending entries")
		return
	}
	c.process(ctx, claimed, handle)
}

func (c *RedisConsumer) Close() error { return c.rdb.Close() }

func decodeStreamMessage(msg redis.XMessage) (*Event, error) {
	data, ok := msg.Values["event"].(string)
	if !ok {
		return nil, errors.New("missing event field")
	}
	return UnmarshalEvent(data)
}

// kafkaReader is the part of kafka.Reader the consumer uses.
type kafkaReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConsumer reads the coach topic as a member of a consumer group.
type KafkaConsumer struct {
	reader kafkaReader
	logger zerolog.Logger
}

func NewKafkaConsumer(brokers []string, topic, group string, logger zerolog.Logger) (*KafkaConsumer, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka consumer requires at least one broker")
	}
	if topic == "" {
		topic = "coach.events"
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  group,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  time.Second,
	})
	return &KafkaConsumer{reader: reader, logger: logger}, nil
}

// Run stops at the first handler error without committing that message.
// The group reader does not fetch an uncommitted offset again in the same
// session, so a later commit would skip it; the message is redelivered when
// the group is joined again.
func (c *KafkaConsumer) Run(ctx context.Context, handle Handler) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("failed to fetch kafka message: %w", err)
		}

		event, err := UnmarshalEvent(string(msg.Value))
		if err != nil {
			c.logger.Error().Err(err).Int64("offset", msg.Offset).Msg("Dropping malformed kafka message")
		} else if err := handle(ctx, event); err != nil {
			return fmt.Errorf("event handler failed at offset %d: %w", msg.Offset, err)
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Warn().Err(err).Int64("offset", msg.Offset).Msg("Failed to commit offset")
		}
	}
}

func (c *KafkaConsumer) Close() error { return c.reader.Close() }
