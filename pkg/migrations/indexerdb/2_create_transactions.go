package indexerdb

import (
	"context"

	mghelper "github.com/chainsafe/wallet-indexer/pkg/pgutil/migrations"
	"github.com/chainsafe/wallet-indexer/pkg/txstore"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		if err := mghelper.CreateSchema(ctx, db, &txstore.TransactionDao{}); err != nil {
			return err
		}
		if err := mghelper.CreateModelIndexes(ctx, db, &txstore.TransactionDao{}, "address", "timestamp", "direction"); err != nil {
			return err
		}
		// GetByAddress filters on address and sorts on timestamp
		return mghelper.CreateModelCompositeIndex(ctx, db, &txstore.TransactionDao{}, "address", "timestamp")
	}, func(ctx context.Context, db *bun.DB) error {
		return mghelper.DropTables(ctx, db, &txstore.TransactionDao{})
	})
}
