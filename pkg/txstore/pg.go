package txstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/chainsafe/wallet-indexer/pkg/address"
	"github.com/chainsafe/wallet-indexer/pkg/transaction"
)

// upsertColumns are overwritten when a hash is seen again. created_at is never touched.
var upsertColumns = []string{
	"address",
	"source",
	"chain",
	"direction",
	"from_address",
	"to_address",
	"value",
	"value_in_eth",
	"value_in_usd",
	"timestamp",
	"block_number",
	"updated_at",
}

type pgStore struct {
	db     *bun.DB
	logger *zap.Logger
	nowFn  func() time.Time
}

// NewStore creates a new postgres implementation of the transaction store
func NewStore(db *bun.DB, logger *zap.Logger) *pgStore {
	return &pgStore{db: db, logger: logger, nowFn: time.Now}
}

func (s *pgStore) BatchUpsert(ctx context.Context, txs []*transaction.Transaction) error {
	if len(txs) == 0 {
		return nil
	}

	now := s.nowFn().UTC()
	daos := dedupe(txs)

	var inserted, updated int
	for _, c := range chunk(daos, ChunkSize) {
		ins, upd, err := s.upsertChunk(ctx, c, now)
		if err != nil {
			return err
		}
		inserted += ins
		updated += upd
	}

	s.logger.Info("transactions upserted",
		zap.Int("received", len(txs)),
		zap.Int("inserted", inserted),
		zap.Int("updated", updated),
	)
	return nil
}

func (s *pgStore) upsertChunk(ctx context.Context, daos []*TransactionDao, now time.Time) (int, int, error) {
	ids := make([]string, len(daos))
	for i, dao := range daos {
		ids[i] = dao.ID
	}

	var inserted, updated int
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var existing []TransactionDao
		err := tx.NewSelect().
			Model(&existing).
			Column("id", "created_at").
			Where("id IN (?)", bun.In(ids)).
			Scan(ctx)
		if err != nil {
			return fmt.Errorf("failed to load existing transactions: %w", err)
		}

		createdAt := make(map[string]time.Time, len(existing))
		for i := range existing {
			createdAt[existing[i].ID] = existing[i].CreatedAt
		}

		for _, dao := range daos {
			if stored, ok := createdAt[dao.ID]; ok {
				dao.CreatedAt = stored
				updated++
			} else {
				if dao.CreatedAt.IsZero() {
					dao.CreatedAt = now
				}
				inserted++
			}
			dao.UpdatedAt = now
		}

		query := tx.NewInsert().
			Model(&daos).
			On("CONFLICT (id) DO UPDATE")
		for _, col := range upsertColumns {
			query = query.Set("? = EXCLUDED.?", bun.Ident(col), bun.Ident(col))
		}
		if _, err := query.Returning("NULL").Exec(ctx); err != nil {
			return fmt.Errorf("failed to upsert transactions: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return inserted, updated, nil
}

func (s *pgStore) Get(ctx context.Context, id string) (*transaction.Transaction, error) {
	dao := new(TransactionDao)
	err := s.db.NewSelect().Model(dao).Where("id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return toTransaction(dao), nil
}

func (s *pgStore) GetAll(
	ctx context.Context,
	limit int,
	cursor string,
	opts ...QueryOption,
) (*transaction.Page, error) {
	offset, err := decodeCursor(cursor)
	if err != nil {
		return nil, err
	}

	var daos []TransactionDao
	query := applyOptions(s.db.NewSelect().Model(&daos), opts).
		Order("timestamp DESC", "id DESC").
		Limit(limit).
		Offset(offset)
	if err := query.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	page := &transaction.Page{Transactions: toTransactions(daos)}
	if limit > 0 && len(daos) == limit {
		page.NextCursor = strconv.Itoa(offset + limit)
	}
	return page, nil
}

func (s *pgStore) GetByAddress(
	ctx context.Context,
	addr string,
	opts ...QueryOption,
) ([]*transaction.Transaction, error) {
	var daos []TransactionDao
	query := applyOptions(s.db.NewSelect().Model(&daos), opts).
		Where("address = ?", address.Normalize(addr)).
		Order("timestamp DESC", "id DESC")
	if err := query.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list transactions by address: %w", err)
	}
	return toTransactions(daos), nil
}

func applyOptions(query *bun.SelectQuery, opts []QueryOption) *bun.SelectQuery {
	options := &QueryOptions{}
	for _, opt := range opts {
		opt(options)
	}
	if options.Direction != nil {
		query = query.Where("direction = ?", string(*options.Direction))
	}
	if options.Chain != nil {
		query = query.Where("chain = ?", string(*options.Chain))
	}
	return query
}

func toTransactions(daos []TransactionDao) []*transaction.Transaction {
	txs := make([]*transaction.Transaction, len(daos))
	for i := range daos {
		txs[i] = toTransaction(&daos[i])
	}
	return txs
}

// dedupe collapses repeated hashes, the last occurrence supplying the values.
// The result is sorted by hash so that concurrent upserts lock rows in the same order.
func dedupe(txs []*transaction.Transaction) []*TransactionDao {
	out := make([]*TransactionDao, 0, len(txs))
	pos := make(map[string]int, len(txs))
	for _, tx := range txs {
		dao := toTransactionDao(tx)
		if i, ok := pos[dao.ID]; ok {
			out[i] = dao
			continue
		}
		pos[dao.ID] = len(out)
		out = append(out, dao)
	}
	slices.SortFunc(out, func(a, b *TransactionDao) int {
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

// chunk splits items into consecutive slices of at most size elements.
func chunk[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = len(items)
	}
	chunks := make([][]T, 0, (len(items)+size-1)/max(size, 1))
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		chunks = append(chunks, items[start:end])
	}
	return chunks
}

func decodeCursor(cursor string) (int, error) {
	if cursor == "" {
		return 0, nil
	}
	offset, err := strconv.Atoi(cursor)
	if err != nil || offset < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCursor, cursor)
	}
	return offset, nil
}
