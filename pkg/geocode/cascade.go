package geocode

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/openfido/census-cli/internal/resilience"
	"github.com/openfido/census-cli/internal/store"
)

// ResultCache persists geocode outcomes across runs. Implemented by the
// SQLite store; nil disables caching.
type ResultCache interface {
	Get(ctx context.Context, hash string, ttlDays int) (*store.CachedResult, error)
	Put(ctx context.Context, hash string, r store.CachedResult) error
}

// CascadeClient tries providers in order until one returns a match,
// caching results (including negative ones) in a local store.
type CascadeClient struct {
	providers        []Provider
	cache            ResultCache
	cacheTTLDays     int
	retries          int
	batchConcurrency int
}

// CascadeOption configures the CascadeClient.
type CascadeOption func(*CascadeClient)

// WithCache attaches a persistent result cache.
func WithCache(c ResultCache, ttlDays int) CascadeOption {
	return func(cc *CascadeClient) {
		cc.cache = c
		cc.cacheTTLDays = ttlDays
	}
}

// WithRetries sets the per-provider attempt count for transient failures.
func WithRetries(n int) CascadeOption {
	return func(cc *CascadeClient) {
		if n > 0 {
			cc.retries = n
		}
	}
}

// WithBatchConcurrency sets the max parallel calls for BatchGeocode.
func WithBatchConcurrency(n int) CascadeOption {
	return func(cc *CascadeClient) {
		if n > 0 {
			cc.batchConcurrency = n
		}
	}
}

// NewCascadeClient creates a CascadeClient over the given providers.
func NewCascadeClient(providers []Provider, opts ...CascadeOption) *CascadeClient {
	c := &CascadeClient{
		providers:        providers,
		retries:          3,
		batchConcurrency: 4,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Geocode implements Client by trying each provider in order.
func (c *CascadeClient) Geocode(ctx context.Context, address string) (*Result, error) {
	key := cacheKey(address)

	if c.cache != nil {
		if cached, err := c.cache.Get(ctx, key, c.cacheTTLDays); err == nil && cached != nil {
			return &Result{
				Latitude:  cached.Latitude,
				Longitude: cached.Longitude,
				Source:    cached.Source,
				Matched:   cached.Matched,
			}, nil
		}
	}

	for _, p := range c.providers {
		if !p.Available() {
			continue
		}
		cfg := resilience.DefaultRetryConfig("geocode." + p.Name())
		cfg.MaxAttempts = c.retries
		result, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (*Result, error) {
			return p.Geocode(ctx, address)
		})
		if err != nil {
			zap.L().Debug("geocode: provider error, trying next",
				zap.String("provider", p.Name()),
				zap.Error(err),
			)
			continue
		}
		if result != nil && result.Matched {
			c.storeCache(ctx, key, store.CachedResult{
				Latitude:  result.Latitude,
				Longitude: result.Longitude,
				Source:    result.Source,
				Matched:   true,
			})
			return result, nil
		}
	}

	// All providers missed. Cache the negative result too.
	noMatch := &Result{Matched: false, Source: "cascade"}
	c.storeCache(ctx, key, store.CachedResult{Source: noMatch.Source, Matched: false})
	return noMatch, nil
}

// BatchGeocode implements Client with bounded-parallel lookups. Individual
// failures yield unmatched results rather than failing the batch.
func (c *CascadeClient) BatchGeocode(ctx context.Context, addresses []string) ([]Result, error) {
	if len(addresses) == 0 {
		return nil, nil
	}

	results := make([]Result, len(addresses))

	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(c.batchConcurrency)

	for i, addr := range addresses {
		eg.Go(func() error {
			r, err := c.Geocode(gCtx, addr)
			if err != nil || r == nil {
				results[i] = Result{Matched: false, Source: "cascade"}
				return nil //nolint:nilerr // individual failures don't fail the batch
			}
			results[i] = *r
			return nil
		})
	}

	_ = eg.Wait()
	return results, nil
}

// ReverseGeocode implements Client via the first provider that supports
// reverse lookups.
func (c *CascadeClient) ReverseGeocode(ctx context.Context, lat, lng float64) (*ReverseResult, error) {
	key := reverseCacheKey(lat, lng)

	if c.cache != nil {
		if cached, err := c.cache.Get(ctx, key, c.cacheTTLDays); err == nil && cached != nil {
			return &ReverseResult{
				Address: cached.Display,
				Source:  cached.Source,
				Matched: cached.Matched,
			}, nil
		}
	}

	for _, p := range c.providers {
		rp, ok := p.(ReverseProvider)
		if !ok || !p.Available() {
			continue
		}
		cfg := resilience.DefaultRetryConfig("geocode." + p.Name())
		cfg.MaxAttempts = c.retries
		result, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (*ReverseResult, error) {
			return rp.ReverseGeocode(ctx, lat, lng)
		})
		if err != nil {
			zap.L().Debug("geocode: reverse provider error, trying next",
				zap.String("provider", p.Name()),
				zap.Error(err),
			)
			continue
		}
		if result != nil {
			c.storeCache(ctx, key, store.CachedResult{
				Latitude:  lat,
				Longitude: lng,
				Display:   result.Address,
				Source:    result.Source,
				Matched:   result.Matched,
			})
			return result, nil
		}
	}

	return &ReverseResult{Matched: false, Source: "cascade"}, nil
}

func (c *CascadeClient) storeCache(ctx context.Context, key string, r store.CachedResult) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Put(ctx, key, r); err != nil {
		zap.L().Debug("geocode: cache store failed", zap.Error(err))
	}
}
