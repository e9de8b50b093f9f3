// cmd/api/main.go

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"problemhunter/internal/adapter/cache"
	"problemhunter/internal/adapter/llm"
	"problemhunter/internal/adapter/storage"
	"problemhunter/internal/config"
	"problemhunter/internal/server"
	"problemhunter/internal/service/aggregate"
	"problemhunter/internal/service/hunt"
	trendsvc "problemhunter/internal/service/trend"
	"problemhunter/internal/source"
)

func main() {
	// Load .env if present; real environments set variables directly
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if cfg.Environment == "development" {
		logger.SetFormatter(&logrus.TextFormatter{})
		logger.SetLevel(logrus.DebugLevel)
	}

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Initialize dependencies
	db, err := initDatabase(ctx, cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	if err := storage.EnsureSchema(ctx, db); err != nil {
		logger.Fatalf("Failed to ensure database schema: %v", err)
	}

	var natsConn *nats.Conn
	if cfg.NATS.Enabled {
		natsConn, err = initNATS(cfg.NATS, logger)
		if err != nil {
			logger.Fatalf("Failed to connect to NATS: %v", err)
		}
		defer natsConn.Close()
	}

	// Initialize storage adapters
	postStore := storage.NewPostStore(db)
	trendStore := storage.NewTrendStore(db)

	// Initialize services
	metrics := aggregate.NewMetrics()
	aggregator := aggregate.New(aggregate.Config{
		MaxWorkers:    cfg.Aggregator.MaxWorkers,
		SourceTimeout: cfg.Aggregator.SourceTimeout,
	}, metrics, logger)

	trendAnalyzer := trendsvc.NewAnalyzer(trendStore, logger)

	classifier, err := llm.NewClient(llm.Config{
		Endpoint: cfg.LLM.Endpoint,
		Model:    cfg.LLM.Model,
		APIKey:   cfg.LLM.APIKey,
		Timeout:  cfg.LLM.Timeout,
	})
	if err != nil {
		logger.Fatalf("Failed to initialize classifier: %v", err)
	}

	analysisCache, err := cache.New(cfg.Cache.Size)
	if err != nil {
		logger.Fatalf("Failed to initialize analysis cache: %v", err)
	}

	sources, err := buildSources(cfg.Sources)
	if err != nil {
		logger.Fatalf("Failed to initialize sources: %v", err)
	}
	if len(sources) == 0 {
		logger.Fatal("No sources enabled")
	}
	for _, s := range sources {
		logger.WithField("source", s.Name()).Info("source enabled")
	}

	hunter := hunt.New(
		aggregator,
		classifier,
		postStore,
		trendAnalyzer,
		analysisCache,
		natsConn,
		hunt.Config{
			BatchSize: cfg.Hunt.BatchSize,
			Backoff: hunt.BackoffConfig{
				Initial: cfg.Hunt.BackoffInitial,
				Max:     cfg.Hunt.BackoffMax,
				Factor:  cfg.Hunt.BackoffFactor,
			},
		},
		logger,
	)

	// Initialize HTTP server
	httpServer := server.NewServer(
		cfg.Server,
		trendAnalyzer,
		hunter,
		sources,
		postStore,
		aggregator,
		metrics.Registry,
		cfg.Hunt.DefaultLimit,
	)

	// Start HTTP server
	go func() {
		logger.Infof("Starting HTTP server on %s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("HTTP server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-shutdown
	logger.Info("Shutdown signal received")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// Graceful shutdown
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("HTTP server shutdown error: %v", err)
	}

	logger.Info("Shutdown complete")
}

// Initialize database connection
func initDatabase(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	connString := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database, cfg.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.MaxLifetime

	db, err := pgxpool.ConnectConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	// Test connection
	if err := db.Ping(ctx); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return db, nil
}

// Initialize NATS connection
func initNATS(cfg config.NATSConfig, logger *logrus.Logger) (*nats.Conn, error) {
	options := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.ConnectTimeout),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warnf("NATS disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Infof("NATS reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("NATS connection closed")
		}),
	}

	nc, err := nats.Connect(cfg.URL, options...)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to NATS: %w", err)
	}

	return nc, nil
}

// buildSources constructs the enabled source adapters
func buildSources(cfg config.SourcesConfig) ([]source.Source, error) {
	var sources []source.Source
	for _, name := range cfg.Enabled {
		switch name {
		case "hackernews":
			sources = append(sources, source.NewHackerNews())
		case "reddit_rss":
			sources = append(sources, source.NewRedditRSS(cfg.RedditSubs))
		case "github":
			sources = append(sources, source.NewGitHub(cfg.GitHubToken))
		case "stackoverflow":
			sources = append(sources, source.NewStackOverflow())
		case "twitter":
			tw, err := source.NewTwitter(cfg.TwitterToken)
			if err != nil {
				return nil, fmt.Errorf("twitter source: %w", err)
			}
			sources = append(sources, tw)
		default:
			return nil, fmt.Errorf("unknown source %q", name)
		}
	}
	return sources, nil
}
