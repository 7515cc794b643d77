// Package chainreader turns provider asset transfers into normalized transactions.
package chainreader

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/chainsafe/wallet-indexer/pkg/address"
	"github.com/chainsafe/wallet-indexer/pkg/alchemy"
	"github.com/chainsafe/wallet-indexer/pkg/config"
	"github.com/chainsafe/wallet-indexer/pkg/transaction"
)

// TransferFetcher is the subset of the provider client the reader needs.
type TransferFetcher interface {
	GetAssetTransfers(ctx context.Context, chain address.Chain, params alchemy.AssetTransfersParams) ([]alchemy.Transfer, error)
}

// Reader reads the transfer history of an address on one chain.
type Reader interface {
	FetchChainTransactions(ctx context.Context, addr string, chain address.Chain) ([]*transaction.Transaction, error)
}

var categories = map[address.Chain][]alchemy.Category{
	address.ChainEthereum: {alchemy.CategoryExternal, alchemy.CategoryInternal},
	address.ChainBase:     {alchemy.CategoryExternal},
}

type reader struct {
	fetcher  TransferFetcher
	usdRates map[address.Chain]decimal.Decimal
	logger   *zap.Logger
	nowFn    func() time.Time
}

// New creates a Reader backed by fetcher. usdRates holds the fixed USD price of
// one native unit per chain; chains without a rate are valued at zero.
func New(fetcher TransferFetcher, usdRates map[address.Chain]decimal.Decimal, logger *zap.Logger) *reader {
	return &reader{
		fetcher:  fetcher,
		usdRates: usdRates,
		logger:   logger.Named("chainreader"),
		nowFn:    time.Now,
	}
}

// RatesFromConfig parses the configured per-chain USD rates.
func RatesFromConfig(cfg config.IndexerConfig) (map[address.Chain]decimal.Decimal, error) {
	eth, err := decimal.NewFromString(cfg.EthereumUSDRate)
	if err != nil {
		return nil, fmt.Errorf("invalid ethereum usd rate %q: %w", cfg.EthereumUSDRate, err)
	}
	base, err := decimal.NewFromString(cfg.BaseUSDRate)
	if err != nil {
		return nil, fmt.Errorf("invalid base usd rate %q: %w", cfg.BaseUSDRate, err)
	}
	return map[address.Chain]decimal.Decimal{
		address.ChainEthereum: eth,
		address.ChainBase:     base,
	}, nil
}

// FetchChainTransactions returns the sent transfers followed by the received
// transfers of addr on chain.
func (r *reader) FetchChainTransactions(
	ctx context.Context,
	addr string,
	chain address.Chain,
) ([]*transaction.Transaction, error) {
	addr = address.Normalize(addr)

	sent, err := r.fetch(ctx, addr, chain, transaction.DirectionSent)
	if err != nil {
		return nil, err
	}
	received, err := r.fetch(ctx, addr, chain, transaction.DirectionReceived)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("fetched chain transactions",
		zap.String("address", addr),
		zap.String("chain", string(chain)),
		zap.Int("sent", len(sent)),
		zap.Int("received", len(received)),
	)
	return append(sent, received...), nil
}

func (r *reader) fetch(
	ctx context.Context,
	addr string,
	chain address.Chain,
	direction transaction.Direction,
) ([]*transaction.Transaction, error) {
	params := alchemy.AssetTransfersParams{
		Category:     categories[chain],
		WithMetadata: true,
	}
	if direction == transaction.DirectionSent {
		params.FromAddress = addr
	} else {
		params.ToAddress = addr
	}

	transfers, err := r.fetcher.GetAssetTransfers(ctx, chain, params)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s transfers on %s: %w", direction, chain, err)
	}

	now := r.nowFn().UTC()
	txs := make([]*transaction.Transaction, 0, len(transfers))
	for i := range transfers {
		t := &transfers[i]
		if t.Hash == "" || t.From == "" || t.To == "" {
			continue
		}
		txs = append(txs, r.toTransaction(t, addr, chain, direction, now))
	}
	return txs, nil
}

func (r *reader) toTransaction(
	t *alchemy.Transfer,
	addr string,
	chain address.Chain,
	direction transaction.Direction,
	now time.Time,
) *transaction.Transaction {
	value := "0"
	if t.RawContract != nil && t.RawContract.Value != "" {
		value = t.RawContract.Value
	}

	valueInEth := decimal.Zero
	if t.Value.Valid {
		valueInEth = t.Value.Decimal
	}

	return &transaction.Transaction{
		ID:          t.Hash,
		Address:     addr,
		Source:      address.SourceJSON,
		Chain:       chain,
		Direction:   direction,
		FromAddress: address.Normalize(t.From),
		ToAddress:   address.Normalize(t.To),
		Value:       value,
		ValueInEth:  valueInEth,
		ValueInUsd:  valueInEth.Mul(r.usdRates[chain]),
		Timestamp:   blockTimestamp(t.Metadata, now),
		BlockNumber: blockNumber(t.BlockNum),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func blockTimestamp(meta *alchemy.TransferMetadata, now time.Time) int64 {
	if meta != nil && meta.BlockTimestamp != "" {
		if ts, err := time.Parse(time.RFC3339Nano, meta.BlockTimestamp); err == nil {
			return ts.UnixMilli()
		}
	}
	return now.UnixMilli()
}

// blockNumber accepts 0x-prefixed hex or plain decimal and returns 0 otherwise.
func blockNumber(raw string) int64 {
	if n, err := hexutil.DecodeUint64(raw); err == nil {
		return int64(n)
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	return 0
}
