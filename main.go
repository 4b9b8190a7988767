package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"courtbooking/internal/app"
	"courtbooking/internal/config"
	"courtbooking/internal/infrastructure/clients"
	"courtbooking/internal/observability"
)

func main() {
	log.Init(logrus.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load config")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	traceProvider, err := observability.ConfigureTraceProvider(ctx, cfg.TraceEndpoint)
	if err != nil {
		logrus.WithError(err).Fatal("failed to configure tracing")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := traceProvider.Shutdown(shutdownCtx); err != nil {
			logrus.WithError(err).Error("failed to flush traces")
		}
	}()

	db, err := sqlx.Open("postgres", cfg.PostgresURL)
	if err != nil {
		logrus.WithError(err).Fatal("failed to open database")
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})
	defer redisClient.Close()

	gateway := clients.NewPaymentsClient(clients.StripeConfig{
		SecretKey:     cfg.StripeSecretKey,
		WebhookSecret: cfg.StripeWebhookSecret,
		SuccessURL:    cfg.CheckoutSuccessURL,
		CancelURL:     cfg.CheckoutCancelURL,
	}, nil)

	watermillLogger := watermill.NewStdLogger(false, false)

	a, err := app.NewApp(cfg, watermillLogger, db, redisClient, gateway)
	if err != nil {
		logrus.WithError(err).Fatal("failed to create app")
	}

	logrus.Info("Server starting...")

	if err := a.Run(ctx); err != nil {
		logrus.WithError(err).Error("app stopped with error")
		os.Exit(1)
	}
}
