package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"debatecoach/config"
	"debatecoach/internal/events"
	"debatecoach/internal/observability/logging"

	"github.com/joho/godotenv"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to an optional YAML config file")
	group := flag.String("group", "coach-tail", "consumer group name")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	logger := logging.Init(logging.Config{Level: cfg.Logging.Level, Format: "console"})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var consumer events.Consumer
	switch cfg.Events.Provider {
	case "redis":
		r := cfg.Events.Redis
		consumer, err = events.NewRedisConsumer(ctx, r.Addr, r.Password, r.DB, r.Stream, *group, logger)
	case "kafka":
		consumer, err = events.NewKafkaConsumer(cfg.Events.Kafka.Brokers, cfg.Events.Kafka.Topic, *group, logger)
	default:
		fmt.Fprintf(os.Stderr, "events provider %q cannot be tailed; use redis or kafka\n", cfg.Events.Provider)
		os.Exit(2)
	}
	if err != nil {
		logger.Fatal().Err(err).Str("provider", cfg.Events.Provider).Msg("Failed to start consumer")
	}
	defer consumer.Close()

	logger.Info().Str("provider", cfg.Events.Provider).Str("group", *group).Msg("Tailing coach events")
	err = consumer.Run(ctx, func(_ context.Context, e *events.Event) error {
		fmt.Printf("%d %-24s %s %s\n", e.Timestamp, e.Type, e.RequestID, e.Payload)
		return nil
	})
	if err != nil && ctx.Err() == nil {
		logger.Error().Err(err).Msg("Consumer stopped")
	}
}
