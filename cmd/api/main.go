// cmd/api/main.go

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/joho/godotenv"

	"peerhive/internal/adapter/events"
	"peerhive/internal/adapter/storage"
	"peerhive/internal/config"
	"peerhive/internal/logging"
	"peerhive/internal/server"
	"peerhive/internal/server/handlers"
	"peerhive/internal/service/feed"
	identityService "peerhive/internal/service/identity"
	"peerhive/internal/service/mood"
)

// eventBus carries feed events between the service and live clients
type eventBus interface {
	feed.Publisher
	handlers.Subscriber
}

func main() {
	// A missing .env is fine; real deployments use the environment
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg.Log)

	if err := run(cfg, logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	// Setup context that is cancelled on shutdown signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize storage
	store, closeStore, err := initStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	// Initialize event bus
	bus, closeBus, err := initBus(cfg.NATS, logger)
	if err != nil {
		return err
	}
	defer closeBus()

	// Initialize services
	lexicon, err := mood.LoadLexicon(cfg.Feed.LexiconPath)
	if err != nil {
		return fmt.Errorf("load lexicon: %w", err)
	}

	feedService := feed.NewService(
		store,
		mood.NewClassifier(lexicon),
		mood.NewAggregator(lexicon),
		bus,
		feed.Config{
			MaxPostLength:    cfg.Feed.MaxPostLength,
			PostRate:         cfg.Feed.PostRate,
			PostBurst:        cfg.Feed.PostBurst,
			EventsTopic:      cfg.Feed.EventsTopic,
			DefaultListLimit: cfg.Feed.DefaultListLimit,
			MaxListLimit:     cfg.Feed.MaxListLimit,
		},
		logger,
	)

	tokens := identityService.NewTokenManager(cfg.Identity.TokenSecret, cfg.Identity.TokenIssuer)

	// Initialize HTTP server
	httpServer := server.NewServer(cfg, feedService, tokens, bus, logger)

	// Start HTTP server
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting HTTP server", "host", cfg.Server.Host, "port", cfg.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Wait for shutdown signal
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

// initStore opens the configured post store and applies its migrations
func initStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (feed.PostStore, func(), error) {
	switch cfg.Storage.Driver {
	case "sqlite":
		db, err := storage.OpenSQLite(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		if err := storage.MigrateSQLite(ctx, db, logger); err != nil {
			db.Close()
			return nil, nil, err
		}
		logger.Info("using sqlite storage", "path", cfg.Storage.SQLitePath)
		return storage.NewSQLiteStore(db), func() { db.Close() }, nil

	default:
		if err := storage.MigratePostgres(ctx, cfg.Database.DSN(), logger); err != nil {
			return nil, nil, err
		}
		db, err := initDatabase(ctx, cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using postgres storage", "host", cfg.Database.Host, "database", cfg.Database.Database)
		return storage.NewPostStore(db), db.Close, nil
	}
}

// Initialize database connection
func initDatabase(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	poolConfig.MaxConnLifetime = cfg.MaxLifetime

	db, err := pgxpool.ConnectConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	// Test connection
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return db, nil
}

// initBus connects to NATS, or falls back to the in-process bus when no URL is set
func initBus(cfg config.NATSConfig, logger *slog.Logger) (eventBus, func(), error) {
	if cfg.URL == "" {
		logger.Info("NATS_URL not set, using in-process event bus")
		return events.NewLocalBus(), func() {}, nil
	}

	bus, err := events.ConnectNATS(events.NATSConfig{
		URL:            cfg.URL,
		MaxReconnects:  cfg.MaxReconnects,
		ReconnectWait:  cfg.ReconnectWait,
		ConnectTimeout: cfg.ConnectTimeout,
	}, logger)
	if err != nil {
		return nil, nil, err
	}

	return bus, func() {
		if err := bus.Close(); err != nil {
			logger.Warn("NATS drain error", "error", err)
		}
	}, nil
}
