// Package attribution queries the external entity-attribution service
// for (chain, address) pairs, enforcing a shared rate limit and caching
// results with request coalescing across concurrent callers.
package attribution

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

	"golang.org/x/time/rate"

	"chainwatch/internal/config"
	"chainwatch/internal/logger"
	"chainwatch/internal/types"
)

const (
	defaultTimeout        = 10 * time.Second
	defaultCacheTTL        = time.Hour
	defaultRequestsPerSec = 20
	networkRetryDelay     = time.Second
	defaultRetryAfter     = 2 * time.Second
)

// Client looks up entity attribution for a (chain, address) pair.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	log        logger.Logger
	limiter    *rate.Limiter
	cacheTTL   time.Duration

	mu    sync.Mutex
	cache map[string]cacheEntry
	// inFlight coalesces concurrent lookups for the same key so late
	// callers await the one outstanding request instead of duplicating it.
	inFlight map[string]*inFlightCall
}

type cacheEntry struct {
	attribution *types.Attribution // nil means "no entity known"
	expiresAt   time.Time
}

type inFlightCall struct {
	done   chan struct{}
	result *types.Attribution
	err    error
}

// New builds a Client from configuration. A zero RequestsPerSecond or
// CacheTTLSeconds falls back to the documented defaults.
func New(cfg config.AttributionConfig, log logger.Logger) *Client {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = defaultRequestsPerSec
	}
	ttl := defaultCacheTTL
	if cfg.CacheTTLSeconds > 0 {
		ttl = time.Duration(cfg.CacheTTLSeconds) * time.Second
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: defaultTimeout},
		log:        log,
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		cacheTTL:   ttl,
		cache:      make(map[string]cacheEntry),
		inFlight:   make(map[string]*inFlightCall),
	}
}

func cacheKey(chain types.ChainType, address string) string {
	return string(chain) + ":" + address
}

// Lookup returns the attribution for (chain, address), or nil if the
// service has no entity on file. A cache hit never consumes a rate-limit
// token; concurrent lookups for the same key share one in-flight request.
func (c *Client) Lookup(ctx context.Context, chain types.ChainType, address string) (*types.Attribution, error) {
	key := cacheKey(chain, address)

	if cached, ok := c.cachedResult(key); ok {
		return cached, nil
	}

	c.mu.Lock()
	if call, ok := c.inFlight[key]; ok {
		c.mu.Unlock()
		<-call.done
		return call.result, call.err
	}

	call := &inFlightCall{done: make(chan struct{})}
	c.inFlight[key] = call
	c.mu.Unlock()

	result, err := c.fetch(ctx, chain, address)

	call.result, call.err = result, err
	close(call.done)

	c.mu.Lock()
	delete(c.inFlight, key)
	if err == nil {
		c.cache[key] = cacheEntry{attribution: result, expiresAt: time.Now().Add(c.cacheTTL)}
	}
	c.mu.Unlock()

	return result, err
}

func (c *Client) cachedResult(key string) (*types.Attribution, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.cache[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		delete(c.cache, key)
		return nil, false
	}
	return entry.attribution, true
}

// fetch performs the rate-limited HTTP round trip with the documented
// retry policy: one retry after a fixed delay on network failure, one
// retry honoring Retry-After on a 429, then give up and log once.
func (c *Client) fetch(ctx context.Context, chain types.ChainType, address string) (*types.Attribution, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	result, err := c.doRequest(ctx, chain, address)
	if err == nil {
		return result, nil
	}

	if retryAfter, ok := err.(*rateLimitedError); ok {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryAfter.wait):
		}
		result, retryErr := c.doRequest(ctx, chain, address)
		if retryErr != nil {
			c.log.Warn("attribution lookup failed after rate-limit retry",
				logger.String("chain", string(chain)), logger.String("address", address), logger.Error(retryErr))
			return nil, nil
		}
		return result, nil
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(networkRetryDelay):
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	result, retryErr := c.doRequest(ctx, chain, address)
	if retryErr != nil {
		c.log.Warn("attribution lookup failed after retry",
			logger.String("chain", string(chain)), logger.String("address", address), logger.Error(retryErr))
		return nil, nil
	}
	return result, nil
}

type rateLimitedError struct {
	wait time.Duration
}

func (e *rateLimitedError) Error() string { return "attribution service rate limited the request" }

func (c *Client) doRequest(ctx context.Context, chain types.ChainType, address string) (*types.Attribution, error) {
	reqURL := fmt.Sprintf("%s/attribution?%s", c.baseURL, url.Values{
		"chain":   {string(chain)},
		"address": {address},
	}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		wait := defaultRetryAfter
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if secs, err := strconv.Atoi(ra); err == nil {
				wait = time.Duration(secs) * time.Second
			}
		}
		return nil, &rateLimitedError{wait: wait}
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("attribution service returned %d: %s", resp.StatusCode, string(body))
	}

	var payload struct {
		EntityName string `json:"entity_name"`
		EntityID   string `json:"entity_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	if payload.EntityID == "" {
		return nil, nil
	}

	return &types.Attribution{EntityName: payload.EntityName, EntityID: payload.EntityID}, nil
}
