package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"tokenlottery/application"
	"tokenlottery/config"
	"tokenlottery/database"
	"tokenlottery/infrastructure"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Run initializes and starts the lottery engine
func Run(ctx context.Context) error {
	log.Info("Starting lottery engine...")

	cfg := config.Get()

	log.Info("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	log.Info("Running database migrations...")
	if err := database.RunMigrationsWithURL(cfg.GetDatabaseURL()); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.WithField("servers", cfg.NATSServers).Info("Connecting to NATS...")
	natsClient := infrastructure.NewNATSClient(cfg.NATSServers)
	if err := natsClient.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	defer natsClient.Close()

	eventPublisher := infrastructure.NewNATSEventPublisher(natsClient, infrastructure.NewEventSubjectMapper())
	if err := eventPublisher.EnsureEventStream(natsClient); err != nil {
		return fmt.Errorf("failed to ensure event stream: %w", err)
	}
	if err := natsClient.EnsureRandomnessStream(); err != nil {
		return fmt.Errorf("failed to ensure randomness stream: %w", err)
	}

	uowFactory := infrastructure.NewUnitOfWorkFactory(db, eventPublisher)
	clock := infrastructure.NewSlotClock(cfg.GenesisTime, cfg.SlotDuration)

	lotteryHandler := application.NewLotteryHandler(uowFactory, clock, application.TicketDefaults{
		Name:   cfg.TicketName,
		Symbol: cfg.TicketSymbol,
		URI:    cfg.TicketURI,
	})

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	commandServer := infrastructure.NewNATSCommandServer(lotteryHandler, infrastructure.NewCommandMetrics(registry))
	if err := commandServer.Register(natsClient); err != nil {
		return fmt.Errorf("failed to register command server: %w", err)
	}

	feedSubscriber := infrastructure.NewRandomnessFeedSubscriber(application.NewRandomnessFeedHandler(uowFactory))
	if err := feedSubscriber.Subscribe(ctx, natsClient); err != nil {
		return fmt.Errorf("failed to subscribe to randomness feed: %w", err)
	}

	if cfg.OperatorAuthority != "" {
		drawWorker := application.NewLotteryDrawWorker(uowFactory, lotteryHandler, clock, cfg.OperatorAuthority, cfg.DrawPollInterval)
		stopDrawWorker := drawWorker.Start(ctx)
		defer stopDrawWorker()
	} else {
		log.Info("OPERATOR_AUTHORITY not set, lottery draw worker disabled")
	}

	healthServer := health.NewServer()
	healthMonitor := infrastructure.NewHealthMonitor(healthServer, 10*time.Second, map[string]infrastructure.HealthCheck{
		"database": func(ctx context.Context) error { return db.Ping(ctx) },
		"nats": func(ctx context.Context) error {
			if !natsClient.IsConnected() {
				return fmt.Errorf("not connected to NATS")
			}
			return nil
		},
	})
	stopHealthMonitor := healthMonitor.Start(ctx)
	defer stopHealthMonitor()

	listener, err := net.Listen("tcp", cfg.GRPCHealthAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.GRPCHealthAddr, err)
	}
	grpcServer := grpc.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	go func() {
		if err := grpcServer.Serve(listener); err != nil {
			log.WithError(err).Error("gRPC health server stopped")
		}
	}()
	defer grpcServer.GracefulStop()

	metricsServer := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("Metrics server stopped")
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("Failed to shut down metrics server")
		}
	}()

	log.WithFields(log.Fields{
		"environment":  cfg.Environment,
		"health_addr":  cfg.GRPCHealthAddr,
		"metrics_addr": cfg.MetricsAddr,
	}).Info("Lottery engine is running")
	<-ctx.Done()

	log.Info("Shutting down lottery engine...")
	return nil
}
