package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/POLIGRAPH/poligraph/internal/config"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// Result is one ranked hit from the web-search provider.
type Result struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Snippet string `json:"description"`
}

// Client queries an external web-search provider for claim evidence. Calls
// are rate limited and responses cached by query so repeated verification of
// trending claims does not burn provider quota.
type Client struct {
	apiKey   string
	endpoint string
	http     *http.Client
	limiter  *rate.Limiter
	cache    *gocache.Cache
	logger   *slog.Logger
}

// NewClient constructs a search client. An empty API key produces a client
// whose Available() is false; callers treat that as the degraded
// zero-external-evidence mode rather than an error.
func NewClient(cfg config.SearchConfig, logger *slog.Logger) *Client {
	return &Client{
		apiKey:   cfg.APIKey,
		endpoint: cfg.Endpoint,
		http:     &http.Client{Timeout: cfg.Timeout},
		limiter:  rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		cache:    gocache.New(cfg.CacheTTL, 2*cfg.CacheTTL),
		logger:   logger,
	}
}

// Available reports whether a search provider is configured.
func (c *Client) Available() bool {
	return c.apiKey != ""
}

// Search returns ranked results for the query, at most count items.
func (c *Client) Search(ctx context.Context, query string, count int) ([]Result, error) {
	if !c.Available() {
		return nil, fmt.Errorf("no search provider configured")
	}

	if cached, found := c.cache.Get(query); found {
		results := cached.([]Result)
		c.logger.Debug("search cache hit", "query", query, "results", len(results))
		return capResults(results, count), nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	reqURL := fmt.Sprintf("%s?q=%s&count=%d", c.endpoint, url.QueryEscape(query), count)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", c.apiKey)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("search provider returned status %d: %s", resp.StatusCode, string(body))
	}

	var payload struct {
		Web struct {
			Results []Result `json:"results"`
		} `json:"web"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	results := payload.Web.Results
	c.logger.Debug("search completed",
		"query", query,
		"results", len(results),
		"duration_ms", time.Since(start).Milliseconds())

	c.cache.Set(query, results, gocache.DefaultExpiration)

	return capResults(results, count), nil
}

func capResults(results []Result, count int) []Result {
	if count > 0 && len(results) > count {
		return results[:count]
	}
	return results
}
