package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	availgrpc "github.com/roomflow/reservations/internal/availability/infrastructure/grpc"
	"github.com/roomflow/reservations/internal/reservation/application"
	reshttp "github.com/roomflow/reservations/internal/reservation/infrastructure/http"
	reskafka "github.com/roomflow/reservations/internal/reservation/infrastructure/kafka"
	"github.com/roomflow/reservations/internal/reservation/infrastructure/memory"
	"github.com/roomflow/reservations/internal/reservation/infrastructure/postgres"
	"github.com/roomflow/reservations/pkg/config"
	"github.com/roomflow/reservations/pkg/discovery"
	"github.com/roomflow/reservations/pkg/logging"
	"github.com/roomflow/reservations/pkg/notifier"
	"github.com/roomflow/reservations/pkg/shutdown"
	"github.com/roomflow/reservations/pkg/tracing"
)

func main() {
	var cfg config.Ledger
	if err := config.Load(&cfg); err != nil {
		logging.New().Error("config load failed", "err", err)
		os.Exit(1)
	}
	log := logging.NewWithLevel(cfg.LogLevel).With("service", config.LedgerService)

	if err := run(cfg, log); err != nil {
		log.Error("reservation-service failed", "err", err)
		os.Exit(1)
	}
	log.Info("reservation-service shutdown complete")
}

func run(cfg config.Ledger, log *slog.Logger) error {
	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	tp, err := tracing.Init(ctx, config.LedgerService, cfg.OTLPEndpoint, log)
	if err != nil {
		return fmt.Errorf("otel init: %w", err)
	}
	defer func() { _ = tp.Shutdown(context.WithoutCancel(ctx)) }()

	dc, err := discovery.Connect(log, cfg.ConsulAddr)
	if err != nil {
		return err
	}

	oracle, err := availgrpc.NewClient(log, discovery.ResolveOr(dc, config.AvailabilityService, cfg.OracleAddr))
	if err != nil {
		return fmt.Errorf("oracle client: %w", err)
	}
	defer oracle.Close()

	repo, closeRepo, err := openRepository(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeRepo()

	var pub application.EventPublisher
	if cfg.PublishEvents {
		n := notifier.New(log, notifier.NewKafkaConnector(log, notifier.KafkaConfig{
			Brokers:      cfg.Brokers,
			ClientID:     cfg.ClientID,
			MaxAttempts:  cfg.MaxAttempts,
			DialTimeout:  cfg.DialTimeout,
			WriteTimeout: cfg.WriteTimeout,
		}))
		defer func() {
			if err := n.Close(); err != nil {
				log.Warn("notifier close failed", "err", err)
			}
		}()
		pub = reskafka.NewPublisher(log, n, cfg.Topic)
	} else {
		log.Info("event publishing disabled")
	}

	svc := application.NewService(log, repo, oracle, pub, application.Options{
		ServiceName:    config.LedgerService,
		EventVersion:   config.EventVersion,
		OracleTimeout:  cfg.OracleTimeout,
		PublishTimeout: cfg.PublishTimeout,
	})
	handler := reshttp.NewHandler(log, svc)

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Mount("/", handler.Routes())
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	if dc != nil {
		reg, err := discovery.Self(config.LedgerService, cfg.ServiceID, cfg.AdvertiseHost, cfg.HTTPAddr)
		if err != nil {
			return err
		}
		reg.HealthURL = fmt.Sprintf("http://%s:%d/health", reg.Address, reg.Port)
		if err := dc.Register(reg); err != nil {
			log.Warn("consul registration failed", "err", err)
		} else {
			defer func() { _ = dc.Deregister(reg.ID) }()
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func openRepository(ctx context.Context, cfg config.Ledger, log *slog.Logger) (application.ReservationRepository, func(), error) {
	switch cfg.Store {
	case "memory":
		log.Warn("using in-memory reservation store, data is lost on restart")
		return memory.NewRepository(), func() {}, nil
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.PGURL)
		if err != nil {
			return nil, nil, fmt.Errorf("pg connect: %w", err)
		}
		repo := postgres.NewRepository(log, pool)
		if err := repo.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("pg migrate: %w", err)
		}
		return repo, pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown LEDGER_STORE %q", cfg.Store)
	}
}
