package collector

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/chainsafe/wallet-indexer/pkg/address"
	"github.com/chainsafe/wallet-indexer/pkg/addressstore"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Get(ctx context.Context, addr string) (*address.Address, error) {
	args := m.Called(ctx, addr)
	a, _ := args.Get(0).(*address.Address)
	return a, args.Error(1)
}

func (m *mockStore) Upsert(ctx context.Context, addr *address.Address) (*address.Address, error) {
	args := m.Called(ctx, addr)
	a, _ := args.Get(0).(*address.Address)
	return a, args.Error(1)
}

func (m *mockStore) UpdateSource(ctx context.Context, addr string, source address.Source, updatedAt time.Time) error {
	return m.Called(ctx, addr, source, updatedAt).Error(0)
}

func (m *mockStore) List(ctx context.Context, opts ...addressstore.QueryOption) ([]*address.Address, error) {
	var options addressstore.QueryOptions
	for _, opt := range opts {
		opt(&options)
	}
	args := m.Called(ctx, options)
	addrs, _ := args.Get(0).([]*address.Address)
	return addrs, args.Error(1)
}

type fakeSource struct {
	name      address.Source
	FetchFunc func(ctx context.Context) []*address.Address
}

func (f *fakeSource) Name() address.Source { return f.name }

func (f *fakeSource) Fetch(ctx context.Context) []*address.Address {
	return f.FetchFunc(ctx)
}

func staticSource(name address.Source, addrs ...string) *fakeSource {
	return &fakeSource{name: name, FetchFunc: func(context.Context) []*address.Address {
		out := make([]*address.Address, len(addrs))
		for i, a := range addrs {
			out[i] = address.New(a, name, address.ChainEthereum)
		}
		return out
	}}
}

type mockService struct {
	mock.Mock
}

func (m *mockService) CollectAddresses(ctx context.Context) Result {
	return m.Called(ctx).Get(0).(Result)
}

func (m *mockService) ListAddresses(ctx context.Context, filter Filter) ([]*address.Address, error) {
	args := m.Called(ctx, filter)
	addrs, _ := args.Get(0).([]*address.Address)
	return addrs, args.Error(1)
}
