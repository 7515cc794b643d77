// Package api implements app.Runner for the API server process.
package api

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
	"go.uber.org/zap"

	"github.com/chainsafe/wallet-indexer/pkg/addressstore"
	"github.com/chainsafe/wallet-indexer/pkg/alchemy"
	apphttp "github.com/chainsafe/wallet-indexer/pkg/app/http"
	"github.com/chainsafe/wallet-indexer/pkg/cache"
	"github.com/chainsafe/wallet-indexer/pkg/chainreader"
	"github.com/chainsafe/wallet-indexer/pkg/collector"
	"github.com/chainsafe/wallet-indexer/pkg/config"
	"github.com/chainsafe/wallet-indexer/pkg/indexer"
	"github.com/chainsafe/wallet-indexer/pkg/migrations/indexerdb"
	"github.com/chainsafe/wallet-indexer/pkg/pgutil"
	mghelper "github.com/chainsafe/wallet-indexer/pkg/pgutil/migrations"
	"github.com/chainsafe/wallet-indexer/pkg/sources"
	"github.com/chainsafe/wallet-indexer/pkg/sources/bridge"
	"github.com/chainsafe/wallet-indexer/pkg/sources/feed"
	"github.com/chainsafe/wallet-indexer/pkg/sources/privy"
	"github.com/chainsafe/wallet-indexer/pkg/txstore"
)

// Server holds cfg to init the api server.
type Server struct {
	cfg *config.Config
}

// NewServer initializes new api server.
func NewServer(cfg *config.Config) *Server {
	return &Server{cfg: cfg}
}

func (s *Server) Run() error {
	if s.cfg == nil {
		return fmt.Errorf("api server config is nil")
	}
	cfg := s.cfg

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("setup logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting API server",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
	)

	db, err := pgutil.ConnectDB(ctx, &cfg.Database)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	logger.Info("Connected to database",
		zap.String("host", cfg.Database.Host),
		zap.String("database", cfg.Database.Database),
	)

	if err := s.migrate(ctx, db, logger); err != nil {
		return err
	}

	feedCache, closeCache, err := cache.New(cfg.Cache)
	if err != nil {
		return fmt.Errorf("setup cache: %w", err)
	}
	defer func() { _ = closeCache() }()

	reader, err := s.openReader(logger)
	if err != nil {
		return err
	}

	addressStore := addressstore.NewStore(db, logger)
	txStore := txstore.NewStore(db, logger)

	collectorService := collector.NewLog(
		collector.NewService(s.sources(feedCache, logger), addressStore, logger),
		logger,
	)
	indexerService := indexer.NewLog(
		indexer.NewService(reader, addressStore, txStore, cfg.Indexer.BatchSize, logger),
		logger,
	)

	periodic := indexer.NewPeriodic(collectorService, indexerService, cfg.Indexer.RunTimeout, logger)
	// Stopped explicitly after ServeAndWait returns; the defer is a safety net.
	defer periodic.Stop()

	if cfg.Indexer.RunOnStartup {
		periodic.RunAsync()
	}
	if cfg.Indexer.Interval > 0 {
		periodic.Start(cfg.Indexer.Interval)
	}

	router := setupRouter(&cfg.Server, &cfg.Monitoring, collectorService, indexerService, logger)

	err = apphttp.ServeAndWait(ctx, router, logger, &cfg.Server)

	periodic.Stop()

	return err
}

func (s *Server) migrate(ctx context.Context, db *bun.DB, logger *zap.Logger) error {
	if !s.cfg.Database.AutoMigrate {
		return nil
	}
	migrator := migrate.NewMigrator(db, indexerdb.Migrations)
	if err := mghelper.Apply(ctx, migrator, logger); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// openReader returns a nil Reader when no provider key is configured so the API
// keeps serving stored data.
func (s *Server) openReader(logger *zap.Logger) (chainreader.Reader, error) {
	rates, err := chainreader.RatesFromConfig(s.cfg.Indexer)
	if err != nil {
		return nil, err
	}

	client, err := alchemy.NewClient(s.cfg.Alchemy, logger)
	if errors.Is(err, alchemy.ErrMissingAPIKey) {
		logger.Warn("Transfer-history provider disabled", zap.Error(err))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("create alchemy client: %w", err)
	}
	return chainreader.New(client, rates, logger), nil
}

func (s *Server) sources(c cache.Cache, logger *zap.Logger) []sources.Source {
	return []sources.Source{
		privy.New(s.cfg.Sources.Privy, logger),
		bridge.New(s.cfg.Sources.Bridge, logger),
		feed.New(s.cfg.Sources.Feed, c, logger),
	}
}
