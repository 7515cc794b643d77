// Package bridge reads customer liquidation addresses from the liquidation-address provider.
package bridge

import (
	"context"

	"go.uber.org/zap"

	"github.com/chainsafe/wallet-indexer/pkg/address"
	"github.com/chainsafe/wallet-indexer/pkg/config"
	"github.com/chainsafe/wallet-indexer/pkg/sources"
)

type customer struct {
	ID                 string `json:"id"`
	LiquidationAddress string `json:"liquidationAddress"`
	Chain              string `json:"chain"`
}

type customersResponse struct {
	Data []customer `json:"data"`
}

// Source implements sources.Source for the liquidation-address provider.
type Source struct {
	client *sources.APIClient
	apiKey string
	logger *zap.Logger
}

var _ sources.Source = (*Source)(nil)

// New creates the liquidation-address source. An empty API key disables it.
func New(cfg config.APISourceConfig, logger *zap.Logger) *Source {
	logger = logger.Named("bridge")
	return &Source{
		client: sources.NewAPIClient(cfg.BaseURL, cfg.Timeout, map[string]string{
			"x-api-key":    cfg.APIKey,
			"Content-Type": "application/json",
		}, logger),
		apiKey: cfg.APIKey,
		logger: logger,
	}
}

func (s *Source) Name() address.Source { return address.SourceBridge }

// Fetch returns every customer liquidation address. A customer without a chain is
// assumed to be on ethereum. Errors yield an empty result.
func (s *Source) Fetch(ctx context.Context) []*address.Address {
	if s.apiKey == "" {
		s.logger.Warn("BRIDGE_API_KEY is not set, skipping liquidation-address source")
		return []*address.Address{}
	}

	s.logger.Info("fetching liquidation addresses")

	var resp customersResponse
	if err := s.client.GetJSON(ctx, "/customers", &resp); err != nil {
		s.logger.Error("failed to fetch liquidation addresses, returning empty result", zap.Error(err))
		return []*address.Address{}
	}

	entries := make([]sources.Entry, 0, len(resp.Data))
	for _, c := range resp.Data {
		chain := c.Chain
		if chain == "" {
			chain = string(address.ChainEthereum)
		}
		entries = append(entries, sources.Entry{Address: c.LiquidationAddress, Chain: chain})
	}

	addrs := sources.Normalize(address.SourceBridge, entries)
	s.logger.Info("found liquidation addresses", zap.Int("count", len(addrs)))
	return addrs
}
