package pgutil

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/chainsafe/wallet-indexer/pkg/config"
)

// ConnectDB creates a connection pool to the configured database and verifies it with a ping.
func ConnectDB(ctx context.Context, cfg *config.DatabaseConfig) (*bun.DB, error) {
	sqldb := sql.OpenDB(newConnector(cfg))

	if cfg.MaxOpenConns > 0 {
		sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxIdleTime > 0 {
		sqldb.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}

	db := bun.NewDB(sqldb, pgdialect.New())

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close() // Close connection to prevent resource leak
		return nil, fmt.Errorf("failed to connect to database %s: %w", describe(cfg), err)
	}

	return db, nil
}

func newConnector(cfg *config.DatabaseConfig) *pgdriver.Connector {
	if cfg.URL != "" {
		return pgdriver.NewConnector(pgdriver.WithDSN(cfg.URL))
	}

	// Functional options escape special characters in credentials
	return pgdriver.NewConnector(
		pgdriver.WithNetwork("tcp"),
		pgdriver.WithAddr(fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)),
		pgdriver.WithUser(cfg.User),
		pgdriver.WithPassword(cfg.Password),
		pgdriver.WithDatabase(cfg.Database),
		pgdriver.WithInsecure(cfg.SSLMode == "disable" || cfg.SSLMode == ""),
	)
}

func describe(cfg *config.DatabaseConfig) string {
	if cfg.URL != "" {
		return "from url"
	}
	return cfg.Database
}
