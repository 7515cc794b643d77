package indexerdb

import (
	"context"

	"github.com/chainsafe/wallet-indexer/pkg/addressstore"
	mghelper "github.com/chainsafe/wallet-indexer/pkg/pgutil/migrations"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		if err := mghelper.CreateSchema(ctx, db, &addressstore.AddressDao{}); err != nil {
			return err
		}
		return mghelper.CreateModelIndexes(ctx, db, &addressstore.AddressDao{}, "source", "chain")
	}, func(ctx context.Context, db *bun.DB) error {
		return mghelper.DropTables(ctx, db, &addressstore.AddressDao{})
	})
}
