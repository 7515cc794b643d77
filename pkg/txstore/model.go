package txstore

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"

	"github.com/chainsafe/wallet-indexer/pkg/address"
	"github.com/chainsafe/wallet-indexer/pkg/transaction"
)

// TransactionDao is a data access object that maps directly to the 'transactions' table in PostgreSQL.
type TransactionDao struct {
	bun.BaseModel `bun:"table:transactions,alias:t"`
	ID            string          `bun:"id,pk,type:varchar(128)"`
	Address       string          `bun:"address,notnull,type:varchar(128)"`
	Source        string          `bun:"source,notnull,type:varchar(16)"`
	Chain         string          `bun:"chain,notnull,type:varchar(16)"`
	Direction     string          `bun:"direction,notnull,type:varchar(16)"`
	FromAddress   string          `bun:"from_address,notnull,type:varchar(128)"`
	ToAddress     string          `bun:"to_address,notnull,type:varchar(128)"`
	Value         string          `bun:"value,notnull,type:varchar(80)"`
	ValueInEth    decimal.Decimal `bun:"value_in_eth,notnull,type:numeric(78,18)"`
	ValueInUsd    decimal.Decimal `bun:"value_in_usd,notnull,type:numeric(78,18)"`
	Timestamp     int64           `bun:"timestamp,notnull"`
	BlockNumber   int64           `bun:"block_number,notnull"`
	CreatedAt     time.Time       `bun:"created_at,notnull"`
	UpdatedAt     time.Time       `bun:"updated_at,notnull"`
}

func toTransactionDao(tx *transaction.Transaction) *TransactionDao {
	return &TransactionDao{
		ID:          tx.ID,
		Address:     address.Normalize(tx.Address),
		Source:      string(tx.Source),
		Chain:       string(tx.Chain),
		Direction:   string(tx.Direction),
		FromAddress: address.Normalize(tx.FromAddress),
		ToAddress:   address.Normalize(tx.ToAddress),
		Value:       tx.Value,
		ValueInEth:  tx.ValueInEth,
		ValueInUsd:  tx.ValueInUsd,
		Timestamp:   tx.Timestamp,
		BlockNumber: tx.BlockNumber,
		CreatedAt:   tx.CreatedAt,
		UpdatedAt:   tx.UpdatedAt,
	}
}

func toTransaction(dao *TransactionDao) *transaction.Transaction {
	return &transaction.Transaction{
		ID:          dao.ID,
		Address:     dao.Address,
		Source:      address.Source(dao.Source),
		Chain:       address.Chain(dao.Chain),
		Direction:   transaction.Direction(dao.Direction),
		FromAddress: dao.FromAddress,
		ToAddress:   dao.ToAddress,
		Value:       dao.Value,
		ValueInEth:  dao.ValueInEth,
		ValueInUsd:  dao.ValueInUsd,
		Timestamp:   dao.Timestamp,
		BlockNumber: dao.BlockNumber,
		CreatedAt:   dao.CreatedAt,
		UpdatedAt:   dao.UpdatedAt,
	}
}
