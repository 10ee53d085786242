package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"debatecoach/config"
	"debatecoach/internal/events"
	"debatecoach/internal/observability/logging"
	"debatecoach/internal/observability/metrics"
	"debatecoach/internal/speech"
	"debatecoach/internal/uploads"
	"debatecoach/middlewares"
	"debatecoach/routes"
	"debatecoach/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to an optional YAML config file")
	flag.Parse()

	// A missing .env file is fine; the environment may already be set.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	logger := logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx := context.Background()

	generator, err := services.NewGeminiGenerator(ctx, cfg.Gemini.ApiKey, cfg.Gemini.Model, cfg.Gemini.Temperature)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize Gemini client")
	}
	defer generator.Close()
	services.InitCoachService(generator, cfg.Gemini.Timeout)

	transcriber, err := newTranscriber(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Str("provider", cfg.Speech.Provider).Msg("Failed to initialize speech provider")
	}
	defer transcriber.Close()

	store, err := uploads.NewStore(cfg.Speech.UploadDir, cfg.Speech.MaxUploadBytes)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to prepare upload directory")
	}
	services.InitSpeechService(transcriber, store, cfg.Speech.Timeout)

	publisher, err := events.New(ctx, events.Config{
		Provider:      cfg.Events.Provider,
		RedisAddr:     cfg.Events.Redis.Addr,
		RedisPassword: cfg.Events.Redis.Password,
		RedisDB:       cfg.Events.Redis.DB,
		RedisStream:   cfg.Events.Redis.Stream,
		RedisMaxLen:   cfg.Events.Redis.MaxLen,
		KafkaBrokers:  cfg.Events.Kafka.Brokers,
		KafkaTopic:    cfg.Events.Kafka.Topic,
	})
	if err != nil {
		logger.Fatal().Err(err).Str("provider", cfg.Events.Provider).Msg("Failed to initialize event publisher")
	}
	defer publisher.Close()
	services.InitEventPublisher(publisher)

	gin.SetMode(cfg.Server.Mode)
	router := setupRouter(cfg, logger)

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().
			Str("addr", srv.Addr).
			Str("model", cfg.Gemini.Model).
			Str("speechProvider", transcriber.Name()).
			Str("uploadDir", store.Dir()).
			Str("eventSink", publisher.Sink()).
			Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info().Msg("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server shutdown failed")
	}
}

func newTranscriber(ctx context.Context, cfg *config.Config) (speech.Transcriber, error) {
	if cfg.Speech.Provider == "whisper" {
		return speech.NewWhisper(cfg.Speech.OpenaiApiKey, cfg.Speech.LanguageCode, ""), nil
	}
	return speech.NewGoogle(ctx, cfg.Speech.LanguageCode, cfg.Speech.GoogleApiKey)
}

func setupRouter(cfg *config.Config, logger zerolog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middlewares.RequestID())
	router.Use(middlewares.RequestLogger(logger.With().Str("component", "http").Logger()))
	router.Use(middlewares.Metrics(metrics.DefaultMetrics))

	router.SetTrustedProxies([]string{"127.0.0.1", "localhost"})

	corsConfig := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", middlewares.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", middlewares.RequestIDHeader},
	}
	if len(cfg.Server.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.Server.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	router.Use(cors.New(corsConfig))

	routes.SetupHealthRoutes(router)
	routes.SetupCoachRoutes(router)

	return router
}
