// Package geocode resolves free-text addresses to coordinates (and back)
// via the Census Geocoder and Nominatim, with a local result cache.
package geocode

import (
	"context"
	"crypto/sha256"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Result holds the forward-geocoding output for an address.
type Result struct {
	Latitude  float64
	Longitude float64
	Source    string // "census" or "nominatim"
	Matched   bool
}

// ReverseResult holds the reverse-geocoding output for a coordinate.
type ReverseResult struct {
	Address string
	Source  string
	Matched bool
}

// Client resolves addresses to points and points to addresses.
type Client interface {
	// Geocode resolves a single one-line address.
	Geocode(ctx context.Context, address string) (*Result, error)

	// BatchGeocode resolves multiple addresses, preserving input order.
	BatchGeocode(ctx context.Context, addresses []string) ([]Result, error)

	// ReverseGeocode resolves a coordinate to a formatted address.
	ReverseGeocode(ctx context.Context, lat, lng float64) (*ReverseResult, error)
}

// Provider is a single forward-geocoding backend.
type Provider interface {
	Name() string
	Geocode(ctx context.Context, address string) (*Result, error)
	Available() bool
}

// ReverseProvider is a backend that can also reverse geocode.
type ReverseProvider interface {
	Provider
	ReverseGeocode(ctx context.Context, lat, lng float64) (*ReverseResult, error)
}

// providerBase carries the HTTP plumbing shared by providers.
type providerBase struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	userAgent  string
}

func newProviderBase(userAgent string, timeout time.Duration, rps float64) providerBase {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	if rps <= 0 {
		rps = 1
	}
	return providerBase{
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		userAgent:  userAgent,
	}
}

// cacheKey returns SHA-256 hex of the normalized address for cache lookup.
func cacheKey(address string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(address), " "))
	h := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("%x", h)
}

// reverseCacheKey keys reverse lookups by coordinate, truncated to ~1m
// precision so re-runs over the same points hit the cache.
func reverseCacheKey(lat, lng float64) string {
	h := sha256.Sum256(fmt.Appendf(nil, "rev|%.5f|%.5f", lat, lng))
	return fmt.Sprintf("%x", h)
}
