// Package collector gathers watched addresses from every source into the address store.
package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/chainsafe/wallet-indexer/internal/metrics"
	"github.com/chainsafe/wallet-indexer/pkg/address"
	"github.com/chainsafe/wallet-indexer/pkg/addressstore"
	"github.com/chainsafe/wallet-indexer/pkg/sources"
)

// Result summarizes one collection pass.
type Result struct {
	Total int `json:"total"`
	New   int `json:"new"`
}

// Store is the narrow address store interface the collector needs.
type Store interface {
	Get(ctx context.Context, addr string) (*address.Address, error)
	Upsert(ctx context.Context, addr *address.Address) (*address.Address, error)
	UpdateSource(ctx context.Context, addr string, source address.Source, updatedAt time.Time) error
	List(ctx context.Context, opts ...addressstore.QueryOption) ([]*address.Address, error)
}

// Filter narrows an address listing. Nil fields match every address.
type Filter struct {
	Source *address.Source
	Chain  *address.Chain
}

// Service defines the address collection operations.
type Service interface {
	CollectAddresses(ctx context.Context) Result
	ListAddresses(ctx context.Context, filter Filter) ([]*address.Address, error)
}

type collectorService struct {
	sources []sources.Source
	store   Store
	logger  *zap.Logger
	nowFn   func() time.Time
}

// NewService creates a collector over srcs. Results are concatenated in srcs order.
func NewService(srcs []sources.Source, store Store, logger *zap.Logger) Service {
	return &collectorService{
		sources: srcs,
		store:   store,
		logger:  logger,
		nowFn:   time.Now,
	}
}

// CollectAddresses fetches every source concurrently and merges the results into
// the store. It never fails: source and per-address storage errors are logged.
func (s *collectorService) CollectAddresses(ctx context.Context) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Unexpected panic collecting addresses", zap.Any("panic", r))
			res = Result{}
		}
	}()

	s.logger.Info("Starting address collection", zap.Int("sources", len(s.sources)))

	all := s.fetchAll(ctx)
	if len(all) == 0 {
		s.logger.Warn("No addresses were collected from any source")
		return Result{}
	}

	var newCount, errCount int
	for _, addr := range all {
		created, err := s.save(ctx, addr)
		if err != nil {
			errCount++
			s.logger.Error("Failed to save address",
				zap.String("address", addr.Address),
				zap.String("source", string(addr.Source)),
				zap.Error(err),
			)
			continue
		}
		if created {
			newCount++
		}
	}

	if errCount > 0 {
		s.logger.Warn("Some addresses could not be saved", zap.Int("failed", errCount))
	}
	metrics.AddressesNew.Add(float64(newCount))

	s.logger.Info("Address collection completed",
		zap.Int("total", len(all)),
		zap.Int("new", newCount),
	)
	return Result{Total: len(all), New: newCount}
}

func (s *collectorService) fetchAll(ctx context.Context) []*address.Address {
	results := make([][]*address.Address, len(s.sources))

	var wg sync.WaitGroup
	for i, src := range s.sources {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = s.fetchOne(ctx, src)
		}()
	}
	wg.Wait()

	var all []*address.Address
	for _, r := range results {
		all = append(all, r...)
	}
	return all
}

func (s *collectorService) fetchOne(ctx context.Context, src sources.Source) (out []*address.Address) {
	name := string(src.Name())
	defer func() {
		if r := recover(); r != nil {
			metrics.SourceFailures.WithLabelValues(name).Inc()
			s.logger.Error("Address source panicked", zap.String("source", name), zap.Any("panic", r))
			out = nil
		}
	}()

	out = src.Fetch(ctx)
	metrics.AddressesCollected.WithLabelValues(name).Add(float64(len(out)))
	s.logger.Info("Collected addresses from source", zap.String("source", name), zap.Int("count", len(out)))
	return out
}

// save inserts addr when unknown, or moves an existing record to addr's source.
func (s *collectorService) save(ctx context.Context, addr *address.Address) (bool, error) {
	existing, err := s.store.Get(ctx, addr.Address)
	if err != nil && !errors.Is(err, addressstore.ErrAddressNotFound) {
		return false, fmt.Errorf("failed to look up address: %w", err)
	}

	if existing == nil {
		if _, err := s.store.Upsert(ctx, addr); err != nil {
			return false, fmt.Errorf("failed to insert address: %w", err)
		}
		return true, nil
	}

	if existing.Source != addr.Source {
		if err := s.store.UpdateSource(ctx, addr.Address, addr.Source, s.nowFn().UTC()); err != nil {
			return false, fmt.Errorf("failed to update address source: %w", err)
		}
	}
	return false, nil
}

// ListAddresses returns the stored addresses matching filter.
func (s *collectorService) ListAddresses(ctx context.Context, filter Filter) ([]*address.Address, error) {
	var opts []addressstore.QueryOption
	if filter.Source != nil {
		opts = append(opts, addressstore.WithSource(*filter.Source))
	}
	if filter.Chain != nil {
		opts = append(opts, addressstore.WithChain(*filter.Chain))
	}

	addrs, err := s.store.List(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to list addresses: %w", err)
	}
	return addrs, nil
}
