package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/roomflow/reservations/internal/notification/application"
	notifkafka "github.com/roomflow/reservations/internal/notification/infrastructure/kafka"
	"github.com/roomflow/reservations/internal/notification/infrastructure/sender"
	"github.com/roomflow/reservations/pkg/config"
	"github.com/roomflow/reservations/pkg/idempotency"
	"github.com/roomflow/reservations/pkg/logging"
	"github.com/roomflow/reservations/pkg/shutdown"
	"github.com/roomflow/reservations/pkg/tracing"
)

func main() {
	var cfg config.Notification
	if err := config.Load(&cfg); err != nil {
		logging.New().Error("config load failed", "err", err)
		os.Exit(1)
	}
	log := logging.NewWithLevel(cfg.LogLevel).With("service", config.NotificationService)

	if err := run(cfg, log); err != nil {
		log.Error("notification-service failed", "err", err)
		os.Exit(1)
	}
	log.Info("notification-service shutdown complete")
}

func run(cfg config.Notification, log *slog.Logger) error {
	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	tp, err := tracing.Init(ctx, config.NotificationService, cfg.OTLPEndpoint, log)
	if err != nil {
		return fmt.Errorf("otel init: %w", err)
	}
	defer func() { _ = tp.Shutdown(context.WithoutCancel(ctx)) }()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()

	svc := application.NewService(log, sender.NewLogSender(log), idempotency.NewStore(rdb, cfg.DedupeTTL))
	consumer := notifkafka.NewConsumer(log, notifkafka.Config{
		Brokers:      cfg.Brokers,
		Topic:        cfg.Topic,
		GroupID:      cfg.GroupID,
		ClientID:     cfg.ClientID,
		DialTimeout:  cfg.DialTimeout,
		RetryBackoff: cfg.RetryBackoff,
	}, svc)
	defer consumer.Close()

	if err := consumer.Connect(ctx); err != nil {
		return err
	}
	return consumer.Run(ctx)
}
