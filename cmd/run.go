package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cardroom/application"
	"cardroom/config"
	"cardroom/database"
	"cardroom/domain/services"
	"cardroom/infrastructure"
	"cardroom/infrastructure/observability"
	"cardroom/transport"

	"github.com/coder/quartz"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ConfigureLogging applies the configured level and formatter to logrus
func ConfigureLogging(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithField("level", cfg.LogLevel).Warn("Unknown log level, using info")
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.IsProduction() {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

// Run initializes and starts the card room service
func Run(ctx context.Context) error {
	cfg := config.Get()
	ConfigureLogging(cfg)
	log.WithField("environment", cfg.Environment).Info("Starting card room...")

	// Apply schema before accepting connections
	if err := database.MigrateUp(cfg.GetDatabaseURL()); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Info("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	log.Info("Database connection established successfully")

	metricsProvider := observability.NewMetricsProvider(cfg)
	if err := metricsProvider.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsProvider.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("Failed to shut down metrics provider")
		}
	}()

	// Committed events fan out to connected clients and the optional external sinks
	hub := transport.NewHub()
	publisher := infrastructure.NewCompositePublisher().Add("hub", hub)

	if cfg.NATSServers != "" {
		natsClient := infrastructure.NewNATSClient(cfg.NATSServers)
		if err := natsClient.Connect(ctx); err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		defer natsClient.Close()
		natsPublisher := infrastructure.NewNATSEventPublisher(natsClient, infrastructure.NewEventSubjectMapper())
		if err := natsPublisher.EnsureDomainEventStream(natsClient); err != nil {
			return fmt.Errorf("failed to ensure event stream: %w", err)
		}
		publisher.Add("nats", natsPublisher)
		log.WithField("servers", cfg.NATSServers).Info("NATS event publishing enabled")
	}

	if cfg.RedisAddr != "" {
		redisClient, err := infrastructure.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		defer redisClient.Close()
		publisher.Add("redis_audit", infrastructure.NewRedisAuditPublisher(redisClient, cfg.AuditQueueName))
		log.WithFields(log.Fields{
			"addr":  cfg.RedisAddr,
			"queue": cfg.AuditQueueName,
		}).Info("Round audit queue enabled")
	}

	uowFactory := infrastructure.NewUnitOfWorkFactory(db, publisher)

	roomHandler := application.NewRoomHandler(uowFactory, cfg.StartingBalance, metricsProvider)
	roundHandler := application.NewRoundHandler(uowFactory, services.CryptoSeedSource, cfg.SeedCommitSecret, metricsProvider)
	refundWorker := application.NewRefundWorker(uowFactory, quartz.NewReal(), cfg.RefundCheckInterval, cfg.RoomIdleTimeout, metricsProvider)
	hub.SetLobbySource(roomHandler.ListRooms)

	sessions := infrastructure.NewSessionVerifier(cfg.JWTSecret, 0)
	server := transport.NewServer(roomHandler, roundHandler, sessions, hub, metricsProvider)
	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithFields(log.Fields{
			"interval":     cfg.RefundCheckInterval,
			"idle_timeout": cfg.RoomIdleTimeout,
		}).Info("Refund worker started")
		return refundWorker.Run(ctx)
	})
	g.Go(func() error {
		log.WithField("addr", cfg.ListenAddr).Info("Listening for connections")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("Shutting down card room...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("Shutdown completed")
	return nil
}
