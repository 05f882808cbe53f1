package coingecko

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"coin-ledger-go/internal/config"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	apiKeyHeader = "x-cg-demo-api-key"
	pricePath    = "/simple/price"
)

// ErrPriceMissing means the response did not carry a price for the requested coin.
var ErrPriceMissing = errors.New("price missing from response")

// PriceClient defines the interface for the CoinGecko REST API client.
type PriceClient interface {
	Ping(ctx context.Context) error
	UnitPrice(ctx context.Context, coinID string) (decimal.Decimal, map[string]any, error)
}

// Client is a client for the CoinGecko REST API.
// It implements the PriceClient interface.
type Client struct {
	client     *resty.Client
	apiKey     string
	vsCurrency string
	logger     *zap.Logger
	limiter    *rate.Limiter
	maxRetries int
	retryBase  time.Duration
}

// ensure Client implements the interface
var _ PriceClient = (*Client)(nil)

// NewClient creates a new CoinGecko client quoting prices in vsCurrency.
func NewClient(cfg *config.Oracle, vsCurrency string, logger *zap.Logger) *Client {
	client := resty.New().SetBaseURL(strings.TrimRight(cfg.BaseURL, "/"))

	maxRetries := cfg.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}

	limit := rate.Limit(cfg.RateLimit)
	if cfg.RateLimit <= 0 {
		limit = rate.Inf
	}
	burst := cfg.RateLimitBurst
	if burst < 1 {
		burst = 1
	}

	return &Client{
		client:     client,
		apiKey:     cfg.ApiKey,
		vsCurrency: strings.ToLower(vsCurrency),
		logger:     logger.Named("coingecko"),
		limiter:    rate.NewLimiter(limit, burst),
		maxRetries: maxRetries,
		retryBase:  time.Second,
	}
}

// Ping checks that the API is reachable.
func (c *Client) Ping(ctx context.Context) error {
	req := c.client.R().SetContext(ctx)
	if _, err := c.doRequest(ctx, http.MethodGet, "/ping", req); err != nil {
		return fmt.Errorf("failed to ping coingecko: %w", err)
	}
	return nil
}

// UnitPrice fetches the price of one coinID in the client's vs currency.
// The raw response is returned as well, e.g. {"bitcoin": {"usd": 67187.33}}.
func (c *Client) UnitPrice(ctx context.Context, coinID string) (decimal.Decimal, map[string]any, error) {
	coinID = strings.ToLower(strings.TrimSpace(coinID))

	req := c.client.R().
		SetContext(ctx).
		SetQueryParam("ids", coinID).
		SetQueryParam("vs_currencies", c.vsCurrency).
		SetHeader("Accept", "application/json")

	resp, err := c.doRequest(ctx, http.MethodGet, pricePath, req)
	if err != nil {
		return decimal.Zero, nil, fmt.Errorf("failed to get price for %s: %w", coinID, err)
	}

	// Decode through json.Number so the price keeps every digit the API sent.
	var prices map[string]map[string]json.Number
	if err := json.Unmarshal(resp.Body(), &prices); err != nil {
		return decimal.Zero, nil, fmt.Errorf("malformed price response for %s: %w", coinID, err)
	}

	quote, ok := prices[coinID][c.vsCurrency]
	if !ok {
		return decimal.Zero, nil, fmt.Errorf("%w: %s/%s", ErrPriceMissing, coinID, c.vsCurrency)
	}
	price, err := decimal.NewFromString(quote.String())
	if err != nil {
		return decimal.Zero, nil, fmt.Errorf("malformed price %q for %s: %w", quote, coinID, err)
	}

	raw := make(map[string]any, len(prices))
	for id, byCurrency := range prices {
		inner := make(map[string]any, len(byCurrency))
		for currency, value := range byCurrency {
			inner[currency] = value
		}
		raw[id] = inner
	}

	c.logger.Debug("Fetched price", zap.String("coin", coinID), zap.String("price", price.String()))
	return price, raw, nil
}

// doRequest handles the actual request execution with rate limiting and retry logic.
func (c *Client) doRequest(ctx context.Context, method, url string, req *resty.Request) (*resty.Response, error) {
	var resp *resty.Response
	var err error

	if c.apiKey != "" {
		req.SetHeader(apiKeyHeader, c.apiKey)
	}

	for i := 0; i < c.maxRetries; i++ {
		// Wait for the rate limiter
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		c.logger.Debug("Executing request", zap.String("method", method), zap.String("url", c.client.BaseURL+url))
		resp, err = req.Execute(method, url)

		if err == nil && !resp.IsError() {
			return resp, nil // Success
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		// Analyze error and decide whether to retry
		shouldRetry := false
		var retryAfter time.Duration

		if err == nil && resp != nil {
			statusCode := resp.StatusCode()
			if statusCode == http.StatusTooManyRequests {
				shouldRetry = true
				if seconds, convErr := strconv.Atoi(resp.Header().Get("Retry-After")); convErr == nil {
					retryAfter = time.Duration(seconds) * time.Second
				}
			} else if statusCode >= 500 { // Server errors
				shouldRetry = true
			}
			if !shouldRetry {
				return nil, fmt.Errorf("request failed with status %s: %s", resp.Status(), resp.String())
			}
			err = fmt.Errorf("status %s", resp.Status())
		} else { // Network or other client-side errors
			shouldRetry = true
		}

		if !shouldRetry || i == c.maxRetries-1 {
			break
		}

		if retryAfter == 0 {
			// Exponential backoff: base, 2*base, 4*base
			retryAfter = time.Duration(math.Pow(2, float64(i))) * c.retryBase
		}

		c.logger.Warn("Request failed, retrying...",
			zap.Int("attempt", i+1),
			zap.Duration("retry_after", retryAfter),
			zap.Error(err),
		)

		select {
		case <-time.After(retryAfter):
			continue
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", c.maxRetries, err)
}
