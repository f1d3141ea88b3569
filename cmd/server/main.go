package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/prophive/push-dispatcher/internal/api"
	"github.com/prophive/push-dispatcher/internal/auth"
	"github.com/prophive/push-dispatcher/internal/config"
	"github.com/prophive/push-dispatcher/internal/directory"
	"github.com/prophive/push-dispatcher/internal/dispatch"
	"github.com/prophive/push-dispatcher/internal/fcm"
	"github.com/prophive/push-dispatcher/internal/metrics"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	sa, err := config.LoadServiceAccount(cfg)
	if err != nil {
		logger.Error("failed to load service account", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	// Recipient directory
	pgResolver, err := directory.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer pgResolver.Close()
	logger.Info("connected to PostgreSQL")

	var resolver directory.Resolver = pgResolver
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("failed to parse redis URL", "error", err)
			os.Exit(1)
		}
		redisClient := redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		resolver = directory.NewCachedResolver(pgResolver, redisClient, cfg.RecipientCacheTTL, logger)
		logger.Info("recipient cache enabled", "ttl", cfg.RecipientCacheTTL)
	}

	// Credential exchange and delivery provider
	tokens, err := auth.NewTokenSource(sa, logger, auth.WithTokenURL(cfg.OAuthTokenURL))
	if err != nil {
		logger.Error("failed to create token source", "error", err)
		os.Exit(1)
	}

	fcmClient := fcm.NewClient(sa.ProjectID, logger,
		fcm.WithEndpoint(cfg.FCMEndpoint),
		fcm.WithTimeout(cfg.SendTimeout),
	)

	dispatcher := dispatch.New(resolver, tokens, fcmClient, cfg.MaxConcurrentSends, logger)

	metrics.RegisterDefault()

	router := api.NewRouter(dispatcher, logger)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
