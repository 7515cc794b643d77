package addressstore

import (
	"context"
	"errors"
	"time"

	"github.com/chainsafe/wallet-indexer/pkg/address"
)

// ErrAddressNotFound is returned when an address lookup finds no matching record.
var ErrAddressNotFound = errors.New("address not found")

// Store defines the interface for watched address persistence
type Store interface {
	// Upsert inserts the address if absent and returns the stored record.
	// An existing record is returned unchanged.
	Upsert(ctx context.Context, addr *address.Address) (*address.Address, error)
	Get(ctx context.Context, addr string) (*address.Address, error)
	List(ctx context.Context, opts ...QueryOption) ([]*address.Address, error)
	UpdateSource(ctx context.Context, addr string, source address.Source, updatedAt time.Time) error
	UpdateLastIndexedAt(ctx context.Context, addr string, indexedAt time.Time) error
}

// QueryOptions defines options for listing addresses
type QueryOptions struct {
	Source *address.Source
	Chain  *address.Chain
}

// QueryOption is a functional option for listing addresses
type QueryOption func(*QueryOptions)

// WithSource sets the source filter
func WithSource(source address.Source) QueryOption {
	return func(opts *QueryOptions) {
		opts.Source = &source
	}
}

// WithChain sets the chain filter
func WithChain(chain address.Chain) QueryOption {
	return func(opts *QueryOptions) {
		opts.Chain = &chain
	}
}
