package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/roomflow/reservations/internal/availability/application"
	"github.com/roomflow/reservations/internal/availability/domain"
	availgrpc "github.com/roomflow/reservations/internal/availability/infrastructure/grpc"
	availredis "github.com/roomflow/reservations/internal/availability/infrastructure/redis"
	"github.com/roomflow/reservations/pkg/config"
	"github.com/roomflow/reservations/pkg/discovery"
	"github.com/roomflow/reservations/pkg/logging"
	"github.com/roomflow/reservations/pkg/shutdown"
	"github.com/roomflow/reservations/pkg/tracing"
)

func main() {
	var cfg config.Availability
	if err := config.Load(&cfg); err != nil {
		logging.New().Error("config load failed", "err", err)
		os.Exit(1)
	}
	log := logging.NewWithLevel(cfg.LogLevel).With("service", config.AvailabilityService)

	if err := run(cfg, log); err != nil {
		log.Error("availability-service failed", "err", err)
		os.Exit(1)
	}
	log.Info("availability-service shutdown complete")
}

func run(cfg config.Availability, log *slog.Logger) error {
	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	tp, err := tracing.Init(ctx, config.AvailabilityService, cfg.OTLPEndpoint, log)
	if err != nil {
		return fmt.Errorf("otel init: %w", err)
	}
	defer func() { _ = tp.Shutdown(context.WithoutCancel(ctx)) }()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()

	store := availredis.NewStore(log, rdb, cfg.RoomsKey)
	if cfg.SeedRooms {
		// an unreachable store is not fatal: CheckRoom fails closed until it returns
		if err := store.Seed(ctx, domain.DefaultRooms); err != nil {
			log.Warn("room seed failed", "err", err)
		}
	}

	svc := application.NewService(log, store)
	gs, err := availgrpc.Run(cfg.GRPCAddr, availgrpc.NewServer(log, svc))
	if err != nil {
		return fmt.Errorf("grpc listen %s: %w", cfg.GRPCAddr, err)
	}
	defer gs.GracefulStop()
	log.Info("grpc listening", "addr", cfg.GRPCAddr)

	dc, err := discovery.Connect(log, cfg.ConsulAddr)
	if err != nil {
		return err
	}
	if dc != nil {
		reg, err := discovery.Self(config.AvailabilityService, cfg.ServiceID, cfg.AdvertiseHost, cfg.GRPCAddr)
		if err != nil {
			return err
		}
		reg.GRPCHealth = true
		if err := dc.Register(reg); err != nil {
			log.Warn("consul registration failed", "err", err)
		} else {
			defer func() { _ = dc.Deregister(reg.ID) }()
		}
	}

	<-ctx.Done()
	return nil
}
