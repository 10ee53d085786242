package events

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Publisher delivers events to a sink.
type Publisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
	Sink() string
}

// Config selects and configures the sink.
type Config struct {
	Provider string // none, log, redis, kafka

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisStream   string
	RedisMaxLen   int64

	KafkaBrokers []string
	KafkaTopic   string
}

// New builds the publisher named by cfg.Provider.
func New(ctx context.Context, cfg Config) (Publisher, error) {
	switch cfg.Provider {
	case "", "none":
		return Discard{}, nil
	case "log":
		return LogPublisher{}, nil
	case "redis":
		p, err := NewRedisPublisher(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisStream, cfg.RedisMaxLen)
		if err != nil {
			return nil, err
		}
		return p, nil
	case "kafka":
		p, err := NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown events provider %q", cfg.Provider)
	}
}

// Discard drops every event.
type Discard struct{}

func (Discard) Publish(context.Context, *Event) error { return nil }
func (Discard) Close() error                          { return nil }
func (Discard) Sink() string                          { return "none" }

// LogPublisher writes events to the debug log only.
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, event *Event) error {
	log.Debug().
		Str("type", event.Type).
		Str("requestId", event.RequestID).
		RawJSON("payload", event.Payload).
		Msg("Publishing event")
	return nil
}

func (LogPublisher) Close() error { return nil }
func (LogPublisher) Sink() string { return "log" }
