// Package privy reads embedded and linked wallets from the identity-wallet provider.
package privy

import (
	"context"
	"net/url"

	"go.uber.org/zap"

	"github.com/chainsafe/wallet-indexer/pkg/address"
	"github.com/chainsafe/wallet-indexer/pkg/config"
	"github.com/chainsafe/wallet-indexer/pkg/sources"
)

// maxPages bounds cursor following on the users listing.
const maxPages = 100

type wallet struct {
	Address string `json:"address"`
	Chain   string `json:"chain"`
	Network string `json:"network"`
}

type user struct {
	ID             string `json:"id"`
	LinkedAccounts *struct {
		Wallets []wallet `json:"wallets"`
	} `json:"linkedAccounts"`
}

type usersResponse struct {
	Data       []user `json:"data"`
	NextCursor string `json:"next_cursor"`
}

// Source implements sources.Source for the identity-wallet provider.
type Source struct {
	client *sources.APIClient
	apiKey string
	logger *zap.Logger
}

var _ sources.Source = (*Source)(nil)

// New creates the identity-wallet source. An empty API key disables it.
func New(cfg config.APISourceConfig, logger *zap.Logger) *Source {
	logger = logger.Named("privy")
	return &Source{
		client: sources.NewAPIClient(cfg.BaseURL, cfg.Timeout, map[string]string{
			"Authorization": "Bearer " + cfg.APIKey,
			"Content-Type":  "application/json",
		}, logger),
		apiKey: cfg.APIKey,
		logger: logger,
	}
}

func (s *Source) Name() address.Source { return address.SourcePrivy }

// Fetch returns every wallet on a supported chain. Errors yield an empty result.
func (s *Source) Fetch(ctx context.Context) []*address.Address {
	if s.apiKey == "" {
		s.logger.Warn("PRIVY_API_KEY is not set, skipping identity-wallet source")
		return []*address.Address{}
	}

	s.logger.Info("fetching wallet addresses")

	var (
		entries []sources.Entry
		cursor  string
	)
	for page := 0; page < maxPages; page++ {
		path := "/users"
		if cursor != "" {
			path += "?cursor=" + url.QueryEscape(cursor)
		}

		var resp usersResponse
		if err := s.client.GetJSON(ctx, path, &resp); err != nil {
			s.logger.Error("failed to fetch wallet addresses, returning empty result", zap.Error(err))
			return []*address.Address{}
		}

		for _, u := range resp.Data {
			if u.LinkedAccounts == nil {
				continue
			}
			for _, w := range u.LinkedAccounts.Wallets {
				entries = append(entries, sources.Entry{Address: w.Address, Chain: w.Chain, Network: w.Network})
			}
		}

		if resp.NextCursor == "" {
			break
		}
		cursor = resp.NextCursor
	}

	addrs := sources.Normalize(address.SourcePrivy, entries)
	s.logger.Info("found wallet addresses", zap.Int("count", len(addrs)), zap.Int("wallets", len(entries)))
	return addrs
}
