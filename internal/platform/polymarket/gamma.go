package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/alanyoungcy/deadlinewatch/internal/domain"
)

// DefaultGammaHost is the public Gamma API root.
const DefaultGammaHost = "https://gamma-api.polymarket.com"

// GammaClient is the REST client for the Polymarket Gamma API market listing.
// The API sits behind caches that serve stale pages, so every request carries
// a cache-busting parameter and a no-cache directive.
type GammaClient struct {
	baseURL    string
	httpClient *http.Client
	now        func() time.Time

	mu     sync.Mutex
	lastTS int64
}

// NewGammaClient creates a new Gamma API client.
//
// baseURL is the Gamma API root, e.g. "https://gamma-api.polymarket.com".
// timeout bounds each request; zero means 30 seconds.
func NewGammaClient(baseURL string, timeout time.Duration) *GammaClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &GammaClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		now: time.Now,
	}
}

// FetchPage returns one page of markets starting at offset.
func (g *GammaClient) FetchPage(ctx context.Context, limit, offset int) ([]domain.RawMarket, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))
	params.Set("_ts", strconv.FormatInt(g.cacheBuster(), 10))

	body, err := g.doGet(ctx, "/markets?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("polymarket/gamma: get markets offset=%d: %w", offset, err)
	}

	var apiMarkets []APIMarket
	if err := json.Unmarshal(body, &apiMarkets); err != nil {
		return nil, fmt.Errorf("polymarket/gamma: decode markets: %w: %v", domain.ErrMalformedPayload, err)
	}

	markets := make([]domain.RawMarket, 0, len(apiMarkets))
	for i := range apiMarkets {
		markets = append(markets, apiMarkets[i].ToDomainMarket())
	}
	return markets, nil
}

// cacheBuster returns the current time in milliseconds, bumped when needed so
// that consecutive values always increase.
func (g *GammaClient) cacheBuster() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	ts := g.now().UnixMilli()
	if ts <= g.lastTS {
		ts = g.lastTS + 1
	}
	g.lastTS = ts
	return ts
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// doGet sends an unauthenticated GET request to the Gamma API.
func (g *GammaClient) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: http request: %w", domain.ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", domain.ErrTransport, err)
	}

	if err := CheckHTTPStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}
	return body, nil
}

// CheckHTTPStatus maps a non-2xx status to an error wrapping
// domain.ErrUpstreamStatus and, where the code says more, a narrower sentinel.
func CheckHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	bodyStr := string(body)
	if len(bodyStr) > 512 {
		bodyStr = bodyStr[:512]
	}
	var detail error
	switch statusCode {
	case http.StatusNotFound:
		detail = domain.ErrNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		detail = domain.ErrUnauthorized
	case http.StatusTooManyRequests:
		detail = domain.ErrRateLimited
	default:
		return fmt.Errorf("%w: HTTP %d: %s", domain.ErrUpstreamStatus, statusCode, bodyStr)
	}
	return fmt.Errorf("%w: %w: HTTP %d: %s", domain.ErrUpstreamStatus, detail, statusCode, bodyStr)
}
