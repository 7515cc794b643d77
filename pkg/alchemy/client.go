// Package alchemy is a JSON-RPC client for the asset transfer history API.
package alchemy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/chainsafe/wallet-indexer/internal/metrics"
	"github.com/chainsafe/wallet-indexer/pkg/address"
	apphttp "github.com/chainsafe/wallet-indexer/pkg/app/http"
	"github.com/chainsafe/wallet-indexer/pkg/config"
)

const (
	methodGetAssetTransfers = "alchemy_getAssetTransfers"
	defaultMaxCount         = "0x3e8"
	maxResponseSize         = 32 << 20
)

var (
	// ErrMissingAPIKey is returned when the client is built without credentials.
	ErrMissingAPIKey = errors.New("ALCHEMY_API_KEY is required to fetch blockchain transactions")
	// ErrUnsupportedChain is returned for a chain without a configured endpoint.
	ErrUnsupportedChain = errors.New("unsupported chain")
)

// Client calls alchemy_getAssetTransfers on per-chain endpoints.
type Client struct {
	httpClient *http.Client
	endpoints  map[address.Chain]string
	apiKey     string
	limiter    *rate.Limiter
	maxPages   int
	maxBody    int64
	requestID  atomic.Int64
	logger     *zap.Logger
}

// NewClient builds a client for every supported chain. It fails fast without an API key.
func NewClient(cfg config.AlchemyConfig, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	maxPages := cfg.MaxPages
	if maxPages <= 0 {
		maxPages = 1
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		endpoints: map[address.Chain]string{
			address.ChainEthereum: endpoint(cfg.EthereumURL, cfg.APIKey),
			address.ChainBase:     endpoint(cfg.BaseURL, cfg.APIKey),
		},
		apiKey:   cfg.APIKey,
		limiter:  rate.NewLimiter(limit, max(cfg.Burst, 1)),
		maxPages: maxPages,
		maxBody:  maxResponseSize,
		logger:   logger.Named("alchemy"),
	}, nil
}

func endpoint(base, apiKey string) string {
	return strings.TrimRight(base, "/") + "/" + apiKey
}

// GetAssetTransfers returns every transfer matching params, following page keys
// up to the configured page limit.
func (c *Client) GetAssetTransfers(
	ctx context.Context,
	chain address.Chain,
	params AssetTransfersParams,
) ([]Transfer, error) {
	target, ok := c.endpoints[chain]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedChain, chain)
	}
	if params.FromBlock == "" {
		params.FromBlock = "0x0"
	}
	if params.ToBlock == "" {
		params.ToBlock = "latest"
	}
	if params.MaxCount == "" {
		params.MaxCount = defaultMaxCount
	}

	var transfers []Transfer
	for page := 1; ; page++ {
		var result AssetTransfersResult
		if err := c.call(ctx, chain, target, methodGetAssetTransfers, []any{params}, &result); err != nil {
			return nil, err
		}
		transfers = append(transfers, result.Transfers...)

		if result.PageKey == "" {
			break
		}
		if page >= c.maxPages {
			c.logger.Warn("transfer history truncated at page limit",
				zap.String("chain", string(chain)),
				zap.String("from", params.FromAddress),
				zap.String("to", params.ToAddress),
				zap.Int("pages", page),
			)
			break
		}
		params.PageKey = result.PageKey
	}

	return transfers, nil
}

func (c *Client) call(
	ctx context.Context,
	chain address.Chain,
	target, method string,
	params []any,
	out any,
) (err error) {
	defer func() {
		status := "ok"
		if err != nil {
			status = "error"
		}
		metrics.ProviderRequests.WithLabelValues(string(chain), status).Inc()
	}()

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	body, err := json.Marshal(Request{
		JSONRPC: "2.0",
		ID:      c.requestID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", c.redact(err))
	}
	defer resp.Body.Close()

	respBody, err := apphttp.ReadBody(resp.Body, c.maxBody)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("http status %d: %s", resp.StatusCode, truncate(string(respBody)))
	}

	var rpcResp Response
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	if rpcResp.Error != nil {
		return rpcResp.Error
	}
	if err := json.Unmarshal(rpcResp.Result, out); err != nil {
		return fmt.Errorf("unmarshal result: %w", err)
	}
	return nil
}

// redact strips the API key from the request URL carried by transport errors.
func (c *Client) redact(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		uerr.URL = strings.ReplaceAll(uerr.URL, c.apiKey, "REDACTED")
	}
	return err
}

func truncate(s string) string {
	const limit = 200
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "... (" + strconv.Itoa(len(s)) + " bytes)"
}
