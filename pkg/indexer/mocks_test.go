package indexer

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/chainsafe/wallet-indexer/pkg/address"
	"github.com/chainsafe/wallet-indexer/pkg/addressstore"
	"github.com/chainsafe/wallet-indexer/pkg/collector"
	"github.com/chainsafe/wallet-indexer/pkg/transaction"
	"github.com/chainsafe/wallet-indexer/pkg/txstore"
)

type mockAddressStore struct {
	mock.Mock
}

func (m *mockAddressStore) Get(ctx context.Context, addr string) (*address.Address, error) {
	args := m.Called(ctx, addr)
	a, _ := args.Get(0).(*address.Address)
	return a, args.Error(1)
}

func (m *mockAddressStore) List(ctx context.Context, opts ...addressstore.QueryOption) ([]*address.Address, error) {
	args := m.Called(ctx)
	addrs, _ := args.Get(0).([]*address.Address)
	return addrs, args.Error(1)
}

func (m *mockAddressStore) UpdateLastIndexedAt(ctx context.Context, addr string, indexedAt time.Time) error {
	return m.Called(ctx, addr, indexedAt).Error(0)
}

// fakeTxStore keeps transactions in memory keyed by hash.
type fakeTxStore struct {
	mu      sync.Mutex
	byID    map[string]*transaction.Transaction
	batches int

	BatchUpsertErr error
	GetAllFunc     func(limit int, cursor string, opts ...txstore.QueryOption) (*transaction.Page, error)
	GetByAddrFunc  func(addr string, opts ...txstore.QueryOption) ([]*transaction.Transaction, error)
}

func newFakeTxStore() *fakeTxStore {
	return &fakeTxStore{byID: map[string]*transaction.Transaction{}}
}

func (f *fakeTxStore) BatchUpsert(_ context.Context, txs []*transaction.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.BatchUpsertErr != nil {
		return f.BatchUpsertErr
	}
	f.batches++
	for _, tx := range txs {
		f.byID[tx.ID] = tx
	}
	return nil
}

func (f *fakeTxStore) Get(_ context.Context, id string) (*transaction.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tx, ok := f.byID[id]
	if !ok {
		return nil, txstore.ErrTransactionNotFound
	}
	return tx, nil
}

func (f *fakeTxStore) GetAll(_ context.Context, limit int, cursor string, opts ...txstore.QueryOption) (*transaction.Page, error) {
	return f.GetAllFunc(limit, cursor, opts...)
}

func (f *fakeTxStore) GetByAddress(_ context.Context, addr string, opts ...txstore.QueryOption) ([]*transaction.Transaction, error) {
	return f.GetByAddrFunc(addr, opts...)
}

func (f *fakeTxStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byID)
}

type fakeReader struct {
	FetchFunc func(addr string, chain address.Chain) ([]*transaction.Transaction, error)
}

func (f *fakeReader) FetchChainTransactions(
	_ context.Context,
	addr string,
	chain address.Chain,
) ([]*transaction.Transaction, error) {
	return f.FetchFunc(addr, chain)
}

type mockCollector struct {
	mock.Mock
}

func (m *mockCollector) CollectAddresses(ctx context.Context) collector.Result {
	return m.Called(ctx).Get(0).(collector.Result)
}

type mockService struct {
	mock.Mock
}

func (m *mockService) IndexAddress(ctx context.Context, addr *address.Address) (int, error) {
	args := m.Called(ctx, addr)
	return args.Int(0), args.Error(1)
}

func (m *mockService) IndexStoredAddress(ctx context.Context, addr string) (int, error) {
	args := m.Called(ctx, addr)
	return args.Int(0), args.Error(1)
}

func (m *mockService) IndexAll(ctx context.Context) Summary {
	return m.Called(ctx).Get(0).(Summary)
}

func (m *mockService) GetTransaction(ctx context.Context, id string) (*transaction.Transaction, error) {
	args := m.Called(ctx, id)
	tx, _ := args.Get(0).(*transaction.Transaction)
	return tx, args.Error(1)
}

func (m *mockService) ListTransactions(
	ctx context.Context,
	limit int,
	cursor string,
	filter Filter,
) (*transaction.Page, error) {
	args := m.Called(ctx, limit, cursor, filter)
	page, _ := args.Get(0).(*transaction.Page)
	return page, args.Error(1)
}

func (m *mockService) TransactionsByAddress(
	ctx context.Context,
	addr string,
	filter Filter,
) ([]*transaction.Transaction, error) {
	args := m.Called(ctx, addr, filter)
	txs, _ := args.Get(0).([]*transaction.Transaction)
	return txs, args.Error(1)
}
