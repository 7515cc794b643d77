package txstore

import (
	"context"
	"errors"

	"github.com/chainsafe/wallet-indexer/pkg/address"
	"github.com/chainsafe/wallet-indexer/pkg/transaction"
)

// ChunkSize is the number of transactions written per database round trip.
const ChunkSize = 100

var (
	// ErrTransactionNotFound is returned when a transaction lookup finds no matching record.
	ErrTransactionNotFound = errors.New("transaction not found")
	// ErrInvalidCursor is returned when a pagination cursor cannot be decoded.
	ErrInvalidCursor = errors.New("invalid pagination cursor")
)

// Store defines the interface for transaction persistence
type Store interface {
	// BatchUpsert writes the transactions keyed by hash. Existing rows keep their created_at.
	BatchUpsert(ctx context.Context, txs []*transaction.Transaction) error
	Get(ctx context.Context, id string) (*transaction.Transaction, error)
	// GetAll returns one page ordered by timestamp, newest first.
	GetAll(ctx context.Context, limit int, cursor string, opts ...QueryOption) (*transaction.Page, error)
	// GetByAddress returns every transaction of the watched address, newest first.
	GetByAddress(ctx context.Context, addr string, opts ...QueryOption) ([]*transaction.Transaction, error)
}

// QueryOptions defines options for querying transactions
type QueryOptions struct {
	Direction *transaction.Direction
	Chain     *address.Chain
}

// QueryOption is a functional option for querying transactions
type QueryOption func(*QueryOptions)

// WithDirection sets the direction filter
func WithDirection(direction transaction.Direction) QueryOption {
	return func(opts *QueryOptions) {
		opts.Direction = &direction
	}
}

// WithChain sets the chain filter
func WithChain(chain address.Chain) QueryOption {
	return func(opts *QueryOptions) {
		opts.Chain = &chain
	}
}
