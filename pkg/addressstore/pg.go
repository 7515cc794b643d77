package addressstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/chainsafe/wallet-indexer/pkg/address"
)

type pgStore struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewStore creates a new postgres implementation of the address store
func NewStore(db *bun.DB, logger *zap.Logger) *pgStore {
	return &pgStore{db: db, logger: logger}
}

func (s *pgStore) Upsert(ctx context.Context, addr *address.Address) (*address.Address, error) {
	dao := toAddressDao(addr)

	res, err := s.db.NewInsert().
		Model(dao).
		On("CONFLICT (address) DO NOTHING").
		Returning("NULL").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to insert address: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return toAddress(dao), nil
	}

	// Conflict: the first writer owns the record
	return s.Get(ctx, dao.Address)
}

func (s *pgStore) Get(ctx context.Context, addr string) (*address.Address, error) {
	dao := new(AddressDao)
	err := s.db.NewSelect().
		Model(dao).
		Where("address = ?", address.Normalize(addr)).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAddressNotFound
		}
		return nil, fmt.Errorf("failed to get address: %w", err)
	}
	return toAddress(dao), nil
}

func (s *pgStore) List(ctx context.Context, opts ...QueryOption) ([]*address.Address, error) {
	options := &QueryOptions{}
	for _, opt := range opts {
		opt(options)
	}

	var daos []AddressDao
	query := s.db.NewSelect().Model(&daos)
	if options.Source != nil {
		query = query.Where("source = ?", string(*options.Source))
	}
	if options.Chain != nil {
		query = query.Where("chain = ?", string(*options.Chain))
	}

	if err := query.Order("created_at ASC", "address ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list addresses: %w", err)
	}

	addrs := make([]*address.Address, len(daos))
	for i := range daos {
		addrs[i] = toAddress(&daos[i])
	}
	return addrs, nil
}

func (s *pgStore) UpdateSource(ctx context.Context, addr string, source address.Source, updatedAt time.Time) error {
	res, err := s.db.NewUpdate().
		Model((*AddressDao)(nil)).
		Set("source = ?", string(source)).
		Set("updated_at = ?", updatedAt).
		Where("address = ?", address.Normalize(addr)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update address source: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrAddressNotFound
	}
	return nil
}

func (s *pgStore) UpdateLastIndexedAt(ctx context.Context, addr string, indexedAt time.Time) error {
	res, err := s.db.NewUpdate().
		Model((*AddressDao)(nil)).
		Set("last_indexed_at = ?", indexedAt).
		Set("updated_at = ?", indexedAt).
		Where("address = ?", address.Normalize(addr)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update last indexed timestamp: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		s.logger.Debug("last indexed timestamp not updated, address missing", zap.String("address", addr))
	}
	return nil
}
