package txstore

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/chainsafe/wallet-indexer/pkg/address"
	"github.com/chainsafe/wallet-indexer/pkg/pgutil"
	mghelper "github.com/chainsafe/wallet-indexer/pkg/pgutil/migrations"
	"github.com/chainsafe/wallet-indexer/pkg/transaction"
)

const watched = "0x00000000000000000000000000000000000000aa"

func setupStore(t *testing.T) (context.Context, *pgStore) {
	t.Helper()

	ctx := context.Background()
	db := pgutil.SetupTestDB(t)

	if err := mghelper.CreateSchema(ctx, db, &TransactionDao{}); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	return ctx, NewStore(db, zap.NewNop())
}

func newTx(id string, ts int64, direction transaction.Direction) *transaction.Transaction {
	return &transaction.Transaction{
		ID:          id,
		Address:     watched,
		Source:      address.SourceJSON,
		Chain:       address.ChainEthereum,
		Direction:   direction,
		FromAddress: watched,
		ToAddress:   "0x00000000000000000000000000000000000000bb",
		Value:       "0x0de0b6b3a7640000",
		ValueInEth:  decimal.NewFromInt(1),
		ValueInUsd:  decimal.NewFromInt(3000),
		Timestamp:   ts,
		BlockNumber: ts / 1000,
	}
}

func TestTxPGStore_BatchUpsertEmptyIsNoop(t *testing.T) {
	ctx, s := setupStore(t)
	require.NoError(t, s.BatchUpsert(ctx, nil))

	page, err := s.GetAll(ctx, 10, "")
	require.NoError(t, err)
	assert.Empty(t, page.Transactions)
	assert.Empty(t, page.NextCursor)
}

func TestTxPGStore_BatchUpsertChunksLargeInput(t *testing.T) {
	ctx, s := setupStore(t)

	txs := make([]*transaction.Transaction, 250)
	for i := range txs {
		txs[i] = newTx(fmt.Sprintf("0x%064x", i), int64(1_700_000_000_000+i), transaction.DirectionSent)
	}
	require.NoError(t, s.BatchUpsert(ctx, txs))
	pgutil.AssertRowCount(t, s.db, "transactions", 250)

	// idempotent
	require.NoError(t, s.BatchUpsert(ctx, txs))
	pgutil.AssertRowCount(t, s.db, "transactions", 250)
}

func TestTxPGStore_BatchUpsertPreservesCreatedAt(t *testing.T) {
	ctx, s := setupStore(t)

	first := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.nowFn = func() time.Time { return first }
	require.NoError(t, s.BatchUpsert(ctx, []*transaction.Transaction{newTx("0xabc", 1000, transaction.DirectionSent)}))

	second := first.Add(time.Hour)
	s.nowFn = func() time.Time { return second }
	updatedTx := newTx("0xabc", 2000, transaction.DirectionReceived)
	updatedTx.CreatedAt = second
	require.NoError(t, s.BatchUpsert(ctx, []*transaction.Transaction{updatedTx}))

	got, err := s.Get(ctx, "0xabc")
	require.NoError(t, err)
	assert.True(t, got.CreatedAt.Equal(first), "created_at must not change on update")
	assert.True(t, got.UpdatedAt.Equal(second))
	assert.Equal(t, int64(2000), got.Timestamp)
	assert.Equal(t, transaction.DirectionReceived, got.Direction)
	pgutil.AssertRowCount(t, s.db, "transactions", 1)
}

func TestTxPGStore_BatchUpsertDuplicateHashesInOneBatch(t *testing.T) {
	ctx, s := setupStore(t)

	a := newTx("0xdup", 1000, transaction.DirectionSent)
	b := newTx("0xdup", 1000, transaction.DirectionReceived)
	require.NoError(t, s.BatchUpsert(ctx, []*transaction.Transaction{a, b}))

	got, err := s.Get(ctx, "0xdup")
	require.NoError(t, err)
	assert.Equal(t, transaction.DirectionReceived, got.Direction)
}

func TestTxPGStore_GetAllPaginates(t *testing.T) {
	ctx, s := setupStore(t)

	var txs []*transaction.Transaction
	for i := 0; i < 5; i++ {
		txs = append(txs, newTx(fmt.Sprintf("0x%d", i), int64(1000*(i+1)), transaction.DirectionSent))
	}
	require.NoError(t, s.BatchUpsert(ctx, txs))

	var (
		all    []*transaction.Transaction
		cursor string
		pages  int
	)
	for {
		page, err := s.GetAll(ctx, 2, cursor)
		require.NoError(t, err)
		pages++
		all = append(all, page.Transactions...)
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	assert.Equal(t, 3, pages)
	require.Len(t, all, 5)
	for i := 1; i < len(all); i++ {
		assert.Greater(t, all[i-1].Timestamp, all[i].Timestamp)
	}
}

func TestTxPGStore_GetAllInvalidCursor(t *testing.T) {
	ctx, s := setupStore(t)
	_, err := s.GetAll(ctx, 2, "nope")
	assert.ErrorIs(t, err, ErrInvalidCursor)
}

func TestTxPGStore_FiltersAndLookups(t *testing.T) {
	ctx, s := setupStore(t)

	other := newTx("0xother", 5000, transaction.DirectionSent)
	other.Address = "0x00000000000000000000000000000000000000cc"
	require.NoError(t, s.BatchUpsert(ctx, []*transaction.Transaction{
		newTx("0xs1", 1000, transaction.DirectionSent),
		newTx("0xr1", 3000, transaction.DirectionReceived),
		newTx("0xs2", 2000, transaction.DirectionSent),
		other,
	}))

	byAddr, err := s.GetByAddress(ctx, watched)
	require.NoError(t, err)
	require.Len(t, byAddr, 3)
	assert.Equal(t, "0xr1", byAddr[0].ID)
	assert.Equal(t, "0xs1", byAddr[2].ID)

	sent, err := s.GetByAddress(ctx, watched, WithDirection(transaction.DirectionSent))
	require.NoError(t, err)
	assert.Len(t, sent, 2)

	page, err := s.GetAll(ctx, 10, "", WithDirection(transaction.DirectionReceived))
	require.NoError(t, err)
	require.Len(t, page.Transactions, 1)
	assert.Equal(t, "0xr1", page.Transactions[0].ID)
	assert.True(t, page.Transactions[0].ValueInUsd.Equal(decimal.NewFromInt(3000)))

	_, err = s.Get(ctx, "0xmissing")
	assert.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestTxPGStore_ConcurrentOverlappingUpserts(t *testing.T) {
	ctx, s := setupStore(t)

	forward := make([]*transaction.Transaction, 50)
	for i := range forward {
		forward[i] = newTx(fmt.Sprintf("0x%064x", i), int64(1000+i), transaction.DirectionSent)
	}
	backward := make([]*transaction.Transaction, len(forward))
	for i, tx := range forward {
		reversed := *tx
		reversed.Direction = transaction.DirectionReceived
		backward[len(forward)-1-i] = &reversed
	}

	for round := 0; round < 5; round++ {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return s.BatchUpsert(gctx, forward) })
		g.Go(func() error { return s.BatchUpsert(gctx, backward) })
		require.NoError(t, g.Wait(), "round %d", round)
	}
	pgutil.AssertRowCount(t, s.db, "transactions", len(forward))
}

func TestTxPGStore_ChainFilter(t *testing.T) {
	ctx, s := setupStore(t)

	onBase := newTx("0xbase", 2000, transaction.DirectionSent)
	onBase.Chain = address.ChainBase
	require.NoError(t, s.BatchUpsert(ctx, []*transaction.Transaction{
		newTx("0xeth", 1000, transaction.DirectionSent),
		onBase,
	}))

	page, err := s.GetAll(ctx, 10, "", WithChain(address.ChainBase))
	require.NoError(t, err)
	require.Len(t, page.Transactions, 1)
	assert.Equal(t, "0xbase", page.Transactions[0].ID)

	byAddr, err := s.GetByAddress(ctx, watched, WithChain(address.ChainEthereum), WithDirection(transaction.DirectionSent))
	require.NoError(t, err)
	require.Len(t, byAddr, 1)
	assert.Equal(t, "0xeth", byAddr[0].ID)
}
