package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Default client tuning. The remote catalog API is a shared community
// service; the rate limit errs on the side of politeness.
const (
	defaultRateLimit  = 1500 * time.Millisecond
	defaultMaxRetries = 3
	defaultPageCache  = 256
	requestTimeout    = 15 * time.Second
	userAgent         = "ArtisanToolbox/1.0"
)

// ClientStats tracks request counters for a sync run.
type ClientStats struct {
	Requests  int `json:"api_requests"`
	CacheHits int `json:"cache_hits"`
	Retries   int `json:"retries"`
	Errors    int `json:"api_errors"`
}

// Client fetches the paginated item catalog from the remote JSON API with
// rate limiting, retry with exponential backoff, and an in-memory LRU page
// cache.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	rateLimit  time.Duration
	maxRetries int

	mu          sync.Mutex
	lastRequest time.Time
	cache       *lru.Cache[int, ItemsPage]
	stats       ClientStats
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithRateLimit overrides the minimum interval between requests.
func WithRateLimit(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.rateLimit = d
		}
	}
}

// WithHTTPClient substitutes the underlying HTTP client, mainly for tests.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a catalog API client for the given base URL.
func NewClient(baseURL string, logger *slog.Logger, opts ...ClientOption) (*Client, error) {
	cache, err := lru.New[int, ItemsPage](defaultPageCache)
	if err != nil {
		return nil, fmt.Errorf("creating page cache: %w", err)
	}

	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
		logger:     logger,
		rateLimit:  defaultRateLimit,
		maxRetries: defaultMaxRetries,
		cache:      cache,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ItemsPage is one page of the remote item catalog.
type ItemsPage struct {
	Items      []ItemImport `json:"data"`
	Page       int          `json:"page"`
	TotalPages int          `json:"total_pages"`
}

// Stats returns a snapshot of the request counters.
func (c *Client) Stats() ClientStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// FetchItemsPage retrieves one catalog page. Cached pages are served
// without a network round trip unless useCache is false.
func (c *Client) FetchItemsPage(ctx context.Context, page int, useCache bool) (*ItemsPage, error) {
	if useCache {
		c.mu.Lock()
		cached, ok := c.cache.Get(page)
		if ok {
			c.stats.CacheHits++
		}
		c.mu.Unlock()
		if ok {
			return &cached, nil
		}
	}

	body, err := c.get(ctx, fmt.Sprintf("%s/items?page=%d", c.baseURL, page))
	if err != nil {
		return nil, err
	}

	var result ItemsPage
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parsing items page %d: %w", page, err)
	}
	if result.Page == 0 {
		result.Page = page
	}

	c.mu.Lock()
	c.cache.Add(page, result)
	c.mu.Unlock()

	return &result, nil
}

// FetchAllItems walks the paginated catalog until the last page or
// maxPages, whichever comes first.
func (c *Client) FetchAllItems(ctx context.Context, maxPages int, useCache bool) ([]ItemImport, error) {
	if maxPages <= 0 {
		maxPages = 200
	}

	var items []ItemImport
	for page := 1; page <= maxPages; page++ {
		result, err := c.FetchItemsPage(ctx, page, useCache)
		if err != nil {
			return nil, fmt.Errorf("fetching page %d: %w", page, err)
		}
		items = append(items, result.Items...)

		if result.TotalPages > 0 && page >= result.TotalPages {
			break
		}
		if len(result.Items) == 0 {
			break
		}
	}

	return items, nil
}

// get performs a rate-limited GET with retries. Rate-limit responses and
// server errors are retried with exponential backoff; client errors are
// not.
func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			c.mu.Lock()
			c.stats.Retries++
			c.mu.Unlock()

			backoff := min(time.Duration(1<<attempt)*time.Second, 10*time.Second)
			c.logger.Debug("retrying request", "url", url, "attempt", attempt, "backoff", backoff)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		if err := c.waitRateLimit(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("building request: %w", err)
		}
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Accept", "application/json")

		c.mu.Lock()
		c.stats.Requests++
		c.mu.Unlock()

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("requesting %s: %w", url, err)
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			if readErr != nil {
				lastErr = fmt.Errorf("reading response: %w", readErr)
				continue
			}
			return body, nil
		case resp.StatusCode == http.StatusTooManyRequests,
			resp.StatusCode >= 500:
			lastErr = fmt.Errorf("server returned %d for %s", resp.StatusCode, url)
			continue
		default:
			c.mu.Lock()
			c.stats.Errors++
			c.mu.Unlock()
			return nil, fmt.Errorf("server returned %d for %s", resp.StatusCode, url)
		}
	}

	c.mu.Lock()
	c.stats.Errors++
	c.mu.Unlock()
	return nil, fmt.Errorf("giving up after %d retries: %w", c.maxRetries, lastErr)
}

// waitRateLimit blocks until the minimum interval since the last request
// has elapsed.
func (c *Client) waitRateLimit(ctx context.Context) error {
	c.mu.Lock()
	wait := c.rateLimit - time.Since(c.lastRequest)
	c.lastRequest = time.Now().Add(max(wait, 0))
	c.mu.Unlock()

	if wait <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return nil
	}
}
