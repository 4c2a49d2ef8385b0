package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	availgrpc "github.com/roomflow/reservations/internal/availability/infrastructure/grpc"
	"github.com/roomflow/reservations/internal/gateway/application"
	gatewayhttp "github.com/roomflow/reservations/internal/gateway/infrastructure/http"
	"github.com/roomflow/reservations/internal/gateway/infrastructure/ledger"
	reskafka "github.com/roomflow/reservations/internal/reservation/infrastructure/kafka"
	"github.com/roomflow/reservations/pkg/config"
	"github.com/roomflow/reservations/pkg/discovery"
	"github.com/roomflow/reservations/pkg/logging"
	"github.com/roomflow/reservations/pkg/notifier"
	"github.com/roomflow/reservations/pkg/shutdown"
	"github.com/roomflow/reservations/pkg/tracing"
)

func main() {
	var cfg config.Gateway
	if err := config.Load(&cfg); err != nil {
		logging.New().Error("config load failed", "err", err)
		os.Exit(1)
	}
	if os.Getenv("KAFKA_CLIENT_ID") == "" {
		cfg.ClientID = config.GatewayService
	}
	log := logging.NewWithLevel(cfg.LogLevel).With("service", config.GatewayService)

	if err := run(cfg, log); err != nil {
		log.Error("gateway failed", "err", err)
		os.Exit(1)
	}
	log.Info("gateway shutdown complete")
}

func run(cfg config.Gateway, log *slog.Logger) error {
	mode, err := application.ParseMode(cfg.Mode)
	if err != nil {
		return err
	}

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	tp, err := tracing.Init(ctx, config.GatewayService, cfg.OTLPEndpoint, log)
	if err != nil {
		return fmt.Errorf("otel init: %w", err)
	}
	defer func() { _ = tp.Shutdown(context.WithoutCancel(ctx)) }()

	dc, err := discovery.Connect(log, cfg.ConsulAddr)
	if err != nil {
		return err
	}

	ledgerURL := cfg.LedgerURL
	if addr := discovery.ResolveOr(dc, config.LedgerService, ""); addr != "" {
		ledgerURL = "http://" + addr
	}
	services := map[string]string{"ledger": ledgerURL}

	var (
		oracle application.AvailabilityChecker
		pub    application.EventPublisher
	)
	if mode == application.ModeDirect {
		oracleAddr := discovery.ResolveOr(dc, config.AvailabilityService, cfg.OracleAddr)
		oc, err := availgrpc.NewClient(log, oracleAddr)
		if err != nil {
			return fmt.Errorf("oracle client: %w", err)
		}
		defer oc.Close()
		oracle = oc

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

		services["oracle"] = oracleAddr
		services["kafka"] = strings.Join(cfg.Brokers, ",")
	}

	orch := application.NewOrchestrator(log, ledger.NewClient(log, ledgerURL, cfg.LedgerTimeout), oracle, pub, application.Options{
		Mode:           mode,
		ServiceName:    config.GatewayService,
		EventVersion:   config.EventVersion,
		OracleTimeout:  cfg.OracleTimeout,
		PublishTimeout: cfg.PublishTimeout,
	})
	log.Info("gateway configured", "mode", mode, "ledger", ledgerURL)

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Mount("/", gatewayhttp.NewHandler(log, orch, services).Routes())
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: cfg.LedgerTimeout + 5*time.Second,
	}

	if dc != nil {
		reg, err := discovery.Self(config.GatewayService, cfg.ServiceID, cfg.AdvertiseHost, cfg.HTTPAddr)
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
