package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-eval-console/internal/config"
	"github.com/noah-isme/gema-eval-console/internal/database"
	"github.com/noah-isme/gema-eval-console/internal/handler"
	"github.com/noah-isme/gema-eval-console/internal/middleware"
	"github.com/noah-isme/gema-eval-console/internal/observability"
	"github.com/noah-isme/gema-eval-console/internal/platform"
	"github.com/noah-isme/gema-eval-console/internal/router"
	"github.com/noah-isme/gema-eval-console/internal/service"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}
	logger = logger.With().Str("service", cfg.AppName).Str("env", cfg.AppEnv).Logger()

	observability.RegisterMetrics()

	client, err := platform.New(platform.Config{
		BaseURL:   cfg.PlatformBaseURL,
		CSRFToken: cfg.PlatformCSRFToken,
		Timeout:   cfg.PlatformTimeout,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create platform client")
	}

	var cache *redis.Client
	if cfg.RedisURL != "" {
		cache, err = database.ConnectRedis(context.Background(), cfg.RedisURL, 5*time.Second)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, config cache disabled")
			cache = nil
		} else {
			defer cache.Close()
		}
	}

	var publisher service.EventPublisher
	if cfg.NATSURL != "" {
		conn, err := database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			logger.Warn().Err(err).Msg("nats unavailable, config events disabled")
		} else {
			defer drainNATS(conn, logger)
			publisher = conn
		}
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	configService := service.NewEvaluationConfigService(client, cache, cfg.ConfigCacheTTL, publisher, cfg.NATSSubjectBase, logger)
	previewService := service.NewEvaluationPreviewService(client, logger)

	loadCtx, cancel := context.WithTimeout(context.Background(), cfg.PlatformTimeout)
	initial := configService.Load(loadCtx, false)
	cancel()
	logger.Info().Str("source", initial.Source).Bool("loaded", initial.Loaded).Msg("evaluation config initialised")

	evaluationHandler := handler.NewEvaluationHandler(configService, previewService, validate, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger, AccessLog: cfg.AppEnv == "development"})
	router.Register(app, cfg, router.Dependencies{
		EvaluationHandler: evaluationHandler,
		Logger:            logger,
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	waitForShutdown(app, logger)
}

func drainNATS(conn *nats.Conn, logger zerolog.Logger) {
	if err := conn.Drain(); err != nil {
		logger.Warn().Err(err).Msg("failed to drain nats connection")
	}
}

func waitForShutdown(app *fiber.App, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
