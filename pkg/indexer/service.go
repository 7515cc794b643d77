// Package indexer fetches transfer history for watched addresses and stores it.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/chainsafe/wallet-indexer/internal/metrics"
	"github.com/chainsafe/wallet-indexer/pkg/address"
	"github.com/chainsafe/wallet-indexer/pkg/addressstore"
	"github.com/chainsafe/wallet-indexer/pkg/chainreader"
	"github.com/chainsafe/wallet-indexer/pkg/transaction"
	"github.com/chainsafe/wallet-indexer/pkg/txstore"
)

const defaultBatchSize = 10

var (
	// ErrProviderNotConfigured is returned when no transfer-history provider is wired.
	ErrProviderNotConfigured = errors.New("transfer-history provider is not configured")
	// ErrFetchFailed wraps provider failures while indexing an address.
	ErrFetchFailed = errors.New("failed to fetch transactions")
)

// Summary reports the outcome of a full index pass.
type Summary struct {
	Addresses    int `json:"addresses"`
	Transactions int `json:"transactions"`
}

// Filter narrows transaction reads. Nil fields match every transaction.
type Filter struct {
	Direction *transaction.Direction
	Chain     *address.Chain
}

// AddressStore is the narrow address store interface the indexer needs.
type AddressStore interface {
	Get(ctx context.Context, addr string) (*address.Address, error)
	List(ctx context.Context, opts ...addressstore.QueryOption) ([]*address.Address, error)
	UpdateLastIndexedAt(ctx context.Context, addr string, indexedAt time.Time) error
}

// TransactionStore is the narrow transaction store interface the indexer needs.
type TransactionStore interface {
	BatchUpsert(ctx context.Context, txs []*transaction.Transaction) error
	Get(ctx context.Context, id string) (*transaction.Transaction, error)
	GetAll(ctx context.Context, limit int, cursor string, opts ...txstore.QueryOption) (*transaction.Page, error)
	GetByAddress(ctx context.Context, addr string, opts ...txstore.QueryOption) ([]*transaction.Transaction, error)
}

// Service defines the indexing and transaction read operations.
type Service interface {
	IndexAddress(ctx context.Context, addr *address.Address) (int, error)
	IndexStoredAddress(ctx context.Context, addr string) (int, error)
	IndexAll(ctx context.Context) Summary
	GetTransaction(ctx context.Context, id string) (*transaction.Transaction, error)
	ListTransactions(ctx context.Context, limit int, cursor string, filter Filter) (*transaction.Page, error)
	TransactionsByAddress(ctx context.Context, addr string, filter Filter) ([]*transaction.Transaction, error)
}

type indexerService struct {
	reader    chainreader.Reader
	addresses AddressStore
	txs       TransactionStore
	chains    []address.Chain
	batchSize int
	logger    *zap.Logger
	nowFn     func() time.Time
}

// NewService creates an indexer. A nil reader yields ErrProviderNotConfigured on
// every index call while reads keep working.
func NewService(
	reader chainreader.Reader,
	addresses AddressStore,
	txs TransactionStore,
	batchSize int,
	logger *zap.Logger,
) Service {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &indexerService{
		reader:    reader,
		addresses: addresses,
		txs:       txs,
		chains:    address.SupportedChains,
		batchSize: batchSize,
		logger:    logger,
		nowFn:     time.Now,
	}
}

// IndexAddress fetches every supported chain for addr, stores the merged result
// and marks the address as indexed. Any chain failure aborts the address.
func (s *indexerService) IndexAddress(ctx context.Context, addr *address.Address) (int, error) {
	if s.reader == nil {
		return 0, ErrProviderNotConfigured
	}

	perChain := make([][]*transaction.Transaction, len(s.chains))
	g, gctx := errgroup.WithContext(ctx)
	for i, chain := range s.chains {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("panic fetching %s transactions: %v", chain, r)
				}
			}()

			txs, err := s.reader.FetchChainTransactions(gctx, addr.Address, chain)
			if err != nil {
				return err
			}
			perChain[i] = txs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, fmt.Errorf("%w for %s: %w", ErrFetchFailed, addr.Address, err)
	}

	now := s.nowFn().UTC()
	var merged []*transaction.Transaction
	for i, txs := range perChain {
		for _, tx := range txs {
			tx.Source = addr.Source
			tx.UpdatedAt = now
		}
		metrics.TransactionsIndexed.WithLabelValues(string(s.chains[i])).Add(float64(len(txs)))
		merged = append(merged, txs...)
	}

	if len(merged) > 0 {
		if err := s.txs.BatchUpsert(ctx, merged); err != nil {
			return 0, fmt.Errorf("failed to store transactions for %s: %w", addr.Address, err)
		}
		s.logger.Debug("Saved transactions", zap.String("address", addr.Address), zap.Int("count", len(merged)))
	} else {
		s.logger.Debug("No transactions found", zap.String("address", addr.Address))
	}

	if err := s.addresses.UpdateLastIndexedAt(ctx, addr.Address, now); err != nil {
		return 0, fmt.Errorf("failed to update last indexed time for %s: %w", addr.Address, err)
	}

	return len(merged), nil
}

// IndexStoredAddress indexes an address that is already in the address store.
func (s *indexerService) IndexStoredAddress(ctx context.Context, addr string) (int, error) {
	stored, err := s.addresses.Get(ctx, addr)
	if err != nil {
		return 0, err
	}
	return s.IndexAddress(ctx, stored)
}

// IndexAll indexes every stored address in sequential batches. Addresses inside
// a batch run concurrently and a failing address only contributes zero.
func (s *indexerService) IndexAll(ctx context.Context) Summary {
	logger := s.logger.With(zap.String("run_id", uuid.NewString()))

	if s.reader == nil {
		logger.Error("Cannot index transactions", zap.Error(ErrProviderNotConfigured))
		return Summary{}
	}

	addrs, err := s.addresses.List(ctx)
	if err != nil {
		logger.Error("Failed to load addresses", zap.Error(err))
		return Summary{}
	}
	if len(addrs) == 0 {
		logger.Warn("No addresses found to index")
		return Summary{}
	}

	start := time.Now()
	defer func() { metrics.IndexRunDuration.Observe(time.Since(start).Seconds()) }()

	batches := batch(addrs, s.batchSize)
	logger.Info("Starting transaction indexing",
		zap.Int("addresses", len(addrs)),
		zap.Int("batches", len(batches)),
	)

	total := 0
	for i, b := range batches {
		if err := ctx.Err(); err != nil {
			logger.Warn("Indexing interrupted",
				zap.Int("completed_batches", i),
				zap.Int("transactions", total),
				zap.Error(err),
			)
			break
		}

		logger.Info("Processing batch",
			zap.Int("batch", i+1),
			zap.Int("of", len(batches)),
			zap.Int("size", len(b)),
		)
		total += s.indexBatch(ctx, logger, b)
	}

	logger.Info("Transaction indexing completed",
		zap.Int("addresses", len(addrs)),
		zap.Int("transactions", total),
		zap.Duration("duration", time.Since(start)),
	)
	return Summary{Addresses: len(addrs), Transactions: total}
}

func (s *indexerService) indexBatch(ctx context.Context, logger *zap.Logger, addrs []*address.Address) int {
	counts := make([]int, len(addrs))

	var wg sync.WaitGroup
	for i, addr := range addrs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			counts[i] = s.safeIndex(ctx, logger, addr)
		}()
	}
	wg.Wait()

	sum := 0
	for _, c := range counts {
		sum += c
	}
	return sum
}

func (s *indexerService) safeIndex(ctx context.Context, logger *zap.Logger, addr *address.Address) (n int) {
	defer func() {
		if r := recover(); r != nil {
			metrics.AddressIndexFailures.Inc()
			logger.Error("Indexing address panicked", zap.String("address", addr.Address), zap.Any("panic", r))
			n = 0
		}
	}()

	n, err := s.IndexAddress(ctx, addr)
	if err != nil {
		metrics.AddressIndexFailures.Inc()
		logger.Error("Failed to index address", zap.String("address", addr.Address), zap.Error(err))
		return 0
	}
	return n
}

// GetTransaction returns the stored transaction with the given hash.
func (s *indexerService) GetTransaction(ctx context.Context, id string) (*transaction.Transaction, error) {
	return s.txs.Get(ctx, id)
}

// ListTransactions returns one page of stored transactions, newest first.
func (s *indexerService) ListTransactions(
	ctx context.Context,
	limit int,
	cursor string,
	filter Filter,
) (*transaction.Page, error) {
	page, err := s.txs.GetAll(ctx, limit, cursor, filter.options()...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return page, nil
}

// TransactionsByAddress returns every stored transaction of addr, newest first.
func (s *indexerService) TransactionsByAddress(
	ctx context.Context,
	addr string,
	filter Filter,
) ([]*transaction.Transaction, error) {
	txs, err := s.txs.GetByAddress(ctx, addr, filter.options()...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions for %s: %w", addr, err)
	}
	return txs, nil
}

func (f Filter) options() []txstore.QueryOption {
	var opts []txstore.QueryOption
	if f.Direction != nil {
		opts = append(opts, txstore.WithDirection(*f.Direction))
	}
	if f.Chain != nil {
		opts = append(opts, txstore.WithChain(*f.Chain))
	}
	return opts
}

func batch[T any](items []T, size int) [][]T {
	var out [][]T
	for start := 0; start < len(items); start += size {
		out = append(out, items[start:min(start+size, len(items))])
	}
	return out
}
