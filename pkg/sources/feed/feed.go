// Package feed reads addresses from a static JSON document with conditional
// requests and a TTL cache in front of the network.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/chainsafe/wallet-indexer/internal/metrics"
	"github.com/chainsafe/wallet-indexer/pkg/address"
	apphttp "github.com/chainsafe/wallet-indexer/pkg/app/http"
	"github.com/chainsafe/wallet-indexer/pkg/cache"
	"github.com/chainsafe/wallet-indexer/pkg/config"
	"github.com/chainsafe/wallet-indexer/pkg/sources"
)

const maxFeedSize = 10 << 20

type feedEntry struct {
	Address string `json:"address"`
	Chain   string `json:"chain"`
	Network string `json:"network"`
}

type document struct {
	Addresses *[]feedEntry `json:"addresses"`
}

// Source implements sources.Source for the static JSON feed.
type Source struct {
	url     string
	ttl     time.Duration
	client  *sources.APIClient
	cache   cache.Cache
	maxBody int64
	logger  *zap.Logger

	// validators and body of the last 2xx response
	mu           sync.Mutex
	etag         string
	lastModified string
	lastBody     string
}

var _ sources.Source = (*Source)(nil)

// New creates the static feed source backed by c.
func New(cfg config.FeedSourceConfig, c cache.Cache, logger *zap.Logger) *Source {
	logger = logger.Named("feed")
	return &Source{
		url:     cfg.URL,
		ttl:     cfg.CacheTTL,
		client:  sources.NewAPIClient(cfg.URL, cfg.Timeout, nil, logger),
		cache:   c,
		maxBody: maxFeedSize,
		logger:  logger,
	}
}

func (s *Source) Name() address.Source { return address.SourceJSON }

func (s *Source) cacheKey() string { return "feed:" + s.url }

// Fetch returns the feed addresses, from cache while the TTL holds.
func (s *Source) Fetch(ctx context.Context) []*address.Address {
	body, err := s.cache.GetString(ctx, s.cacheKey())
	switch {
	case err == nil:
		metrics.FeedCacheHits.WithLabelValues("hit").Inc()
		s.logger.Debug("serving feed from cache")
		return s.parse(body)
	case !errors.Is(err, cache.ErrCacheMiss):
		s.logger.Warn("feed cache read failed, fetching upstream", zap.Error(err))
	}

	body, err = s.fetch(ctx)
	if err != nil {
		s.logger.Error("failed to fetch feed, returning empty result", zap.String("url", s.url), zap.Error(err))
		return []*address.Address{}
	}

	if err := s.cache.SetString(ctx, s.cacheKey(), body, s.ttl); err != nil {
		s.logger.Warn("feed cache write failed", zap.Error(err))
	}
	return s.parse(body)
}

// fetch performs the conditional GET. Validators are only sent while a previous
// body is held so that a 304 can always be answered.
func (s *Source) fetch(ctx context.Context) (string, error) {
	req, err := s.client.NewRequest(ctx, "")
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	lastBody := s.lastBody
	if lastBody != "" {
		if s.etag != "" {
			req.Header.Set("If-None-Match", s.etag)
		}
		if s.lastModified != "" {
			req.Header.Set("If-Modified-Since", s.lastModified)
		}
	}
	s.mu.Unlock()

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified && lastBody != "" {
		metrics.FeedCacheHits.WithLabelValues("not_modified").Inc()
		s.logger.Info("feed not modified, reusing last snapshot")
		return lastBody, nil
	}

	raw, err := apphttp.ReadBody(resp.Body, s.maxBody)
	if err != nil {
		return "", fmt.Errorf("read feed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &sources.HTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	metrics.FeedCacheHits.WithLabelValues("miss").Inc()

	body := string(raw)
	s.mu.Lock()
	s.etag = resp.Header.Get("ETag")
	s.lastModified = resp.Header.Get("Last-Modified")
	s.lastBody = body
	s.mu.Unlock()

	return body, nil
}

func (s *Source) parse(body string) []*address.Address {
	var doc document
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		s.logger.Error("failed to decode feed, returning empty result", zap.Error(err))
		return []*address.Address{}
	}
	if doc.Addresses == nil {
		s.logger.Warn("feed has no addresses array")
		return []*address.Address{}
	}

	entries := make([]sources.Entry, 0, len(*doc.Addresses))
	for _, e := range *doc.Addresses {
		entries = append(entries, sources.Entry{Address: e.Address, Chain: e.Chain, Network: e.Network})
	}

	addrs := sources.Normalize(address.SourceJSON, entries)
	s.logger.Info("found feed addresses", zap.Int("count", len(addrs)))
	return addrs
}
