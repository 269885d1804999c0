// Package breed checks proposed cat breeds against an external reference list.
package breed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"spycats/internal/metrics"
)

const (
	DefaultURL       = "https://api.thecatapi.com/v1/breeds"
	defaultTimeout   = 5 * time.Second
	defaultCacheTTL  = time.Hour

	catalogKey = "catalog"
)

type Verdict int

const (
	Unavailable Verdict = iota
	Accepted
	Rejected
)

func (v Verdict) String() string {
	switch v {
	case Accepted:
		return "accepted"
	case Rejected:
		return "rejected"
	default:
		return "unavailable"
	}
}

// Validator decides whether a breed name is known. A non-nil error always
// comes with Unavailable and describes why the reference list could not be read.
type Validator interface {
	Check(ctx context.Context, name string) (Verdict, error)
}

type Config struct {
	URL       string
	APIKey    string
	Timeout   time.Duration
	// CacheTTL is how long a fetched catalog answers checks before a refetch.
	CacheTTL time.Duration
}

// Client validates breeds against TheCatAPI breed catalog.
type Client struct {
	url    string
	apiKey string
	http   *http.Client
	cache  *expirable.LRU[string, map[string]struct{}]
	group  singleflight.Group
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultCacheTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		url:    cfg.URL,
		apiKey: cfg.APIKey,
		http:   &http.Client{Timeout: cfg.Timeout},
		cache:  expirable.NewLRU[string, map[string]struct{}](1, nil, cfg.CacheTTL),
		logger: logger,
	}
}

func (c *Client) Check(ctx context.Context, name string) (Verdict, error) {
	v, err := c.check(ctx, name)
	metrics.BreedChecks.WithLabelValues(v.String()).Inc()
	return v, err
}

func (c *Client) check(ctx context.Context, name string) (Verdict, error) {
	catalog, err := c.catalog(ctx)
	if err != nil {
		c.logger.Warn("breed catalog unavailable", "url", c.url, "error", err)
		return Unavailable, err
	}
	_, known := catalog[name]
	return verdictOf(known), nil
}

// catalog returns the cached breed set, refilling it once for all concurrent
// callers when it has expired. The refill is detached from the caller's
// cancellation; the HTTP client timeout bounds it.
func (c *Client) catalog(ctx context.Context) (map[string]struct{}, error) {
	if catalog, ok := c.cache.Get(catalogKey); ok {
		return catalog, nil
	}
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(catalogKey, func() (any, error) {
		catalog, err := c.fetch(fetchCtx)
		if err != nil {
			return nil, err
		}
		c.cache.Add(catalogKey, catalog)
		return catalog, nil
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(map[string]struct{}), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("fetch breeds: %w", ctx.Err())
	}
}

func verdictOf(known bool) Verdict {
	if known {
		return Accepted
	}
	return Rejected
}

type catalogEntry struct {
	Name string `json:"name"`
}

func (c *Client) fetch(ctx context.Context) (map[string]struct{}, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.BreedCatalogFetches.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("fetch breeds: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		metrics.BreedCatalogFetches.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("fetch breeds: status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	var entries []catalogEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		metrics.BreedCatalogFetches.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("decode breeds: %w", err)
	}
	if len(entries) == 0 {
		metrics.BreedCatalogFetches.WithLabelValues("error").Inc()
		return nil, errors.New("breed catalog is empty")
	}
	catalog := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		catalog[e.Name] = struct{}{}
	}
	metrics.BreedCatalogFetches.WithLabelValues("ok").Inc()
	return catalog, nil
}

// Static is a fixed reference list, used when no network lookup is wanted.
type Static map[string]struct{}

func NewStatic(names ...string) Static {
	s := make(Static, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

func (s Static) Check(_ context.Context, name string) (Verdict, error) {
	_, ok := s[name]
	return verdictOf(ok), nil
}
