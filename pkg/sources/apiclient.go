package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	apphttp "github.com/chainsafe/wallet-indexer/pkg/app/http"
)

const (
	maxResponseSize = 10 << 20
	logBodyLimit    = 200
)

// HTTPError is returned for non-2xx upstream responses.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("upstream returned status %d: %s", e.StatusCode, e.Body)
}

// APIClient is a JSON HTTP client bound to a base URL with static headers.
// Requests and responses are logged at debug level, failures at error level.
type APIClient struct {
	baseURL string
	headers map[string]string
	client  *http.Client
	maxBody int64
	logger  *zap.Logger
}

// NewAPIClient creates an APIClient.
func NewAPIClient(baseURL string, timeout time.Duration, headers map[string]string, logger *zap.Logger) *APIClient {
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		headers: headers,
		client:  &http.Client{Timeout: timeout},
		maxBody: maxResponseSize,
		logger:  logger,
	}
}

// NewRequest builds a GET request for path relative to the base URL.
func (c *APIClient) NewRequest(ctx context.Context, path string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

// Do sends req. The caller owns the response body.
func (c *APIClient) Do(req *http.Request) (*http.Response, error) {
	start := time.Now()
	c.logger.Debug("upstream request",
		zap.String("method", req.Method),
		zap.String("url", req.URL.Redacted()),
	)

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("upstream request failed",
			zap.String("url", req.URL.Redacted()),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return nil, err
	}

	c.logger.Debug("upstream response",
		zap.String("url", req.URL.Redacted()),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)
	return resp, nil
}

// GetJSON fetches path and decodes a 2xx JSON body into out.
func (c *APIClient) GetJSON(ctx context.Context, path string, out any) error {
	req, err := c.NewRequest(ctx, path)
	if err != nil {
		return err
	}
	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := apphttp.ReadBody(resp.Body, c.maxBody)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		herr := &HTTPError{StatusCode: resp.StatusCode, Body: truncate(string(body))}
		c.logger.Error("upstream error response",
			zap.String("url", req.URL.Redacted()),
			zap.Int("status", resp.StatusCode),
			zap.String("body", herr.Body),
		)
		return herr
	}

	c.logger.Debug("upstream response body", zap.String("body", truncate(string(body))))

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func truncate(s string) string {
	if len(s) <= logBodyLimit {
		return s
	}
	return s[:logBodyLimit] + "..."
}
