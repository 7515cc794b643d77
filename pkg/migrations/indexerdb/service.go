// Package indexerdb holds all the migrations for the wallet indexer database
package indexerdb

import (
	"github.com/uptrace/bun/migrate"
)

// Migrations is the collection of all migrations for the wallet indexer database
var Migrations = migrate.NewMigrations()
