package indexerdb

import (
	"context"

	mghelper "github.com/chainsafe/wallet-indexer/pkg/pgutil/migrations"
	"github.com/chainsafe/wallet-indexer/pkg/txstore"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		return mghelper.CreateModelIndexes(ctx, db, &txstore.TransactionDao{}, "chain")
	}, func(ctx context.Context, db *bun.DB) error {
		return mghelper.DropModelIndexes(ctx, db, &txstore.TransactionDao{}, "chain")
	})
}
