package main

import (
	"context"
	"flag"
	"log"

	"github.com/uptrace/bun/migrate"
	"go.uber.org/zap"

	"github.com/chainsafe/wallet-indexer/pkg/config"
	"github.com/chainsafe/wallet-indexer/pkg/migrations/indexerdb"
	"github.com/chainsafe/wallet-indexer/pkg/pgutil"
	mghelper "github.com/chainsafe/wallet-indexer/pkg/pgutil/migrations"
)

func main() {
	cfgPath := flag.String("config", "", "Path to configuration file")
	flag.Usage = mghelper.Usage
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("error reading configuration: %s", err.Error())
	}

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("error setting up logger: %s", err.Error())
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	db, err := pgutil.ConnectDB(ctx, &cfg.Database)
	if err != nil {
		logger.Fatal("error connecting to database", zap.Error(err))
	}
	defer db.Close()

	logger.Info("Running migrations for indexer database", zap.String("database", cfg.Database.Database))

	migrator := migrate.NewMigrator(db, indexerdb.Migrations)
	if err := mghelper.RunMigrations(ctx, migrator, logger, flag.Args()...); err != nil {
		mghelper.Exitf("%s", err.Error())
	}
}
