package cache

import (
	"context"

	"github.com/nao1215/urlscan/internal/feature"
	"github.com/nao1215/urlscan/internal/model"
)

// KeyPrefix is prepended to every cache key.
const KeyPrefix = "urlscan:scan:"

// Cache stores scan reports by URL.
type Cache interface {
	// Get returns the cached report for rawURL. The bool is false on a miss.
	Get(ctx context.Context, rawURL string) (*model.ScanReport, bool, error)

	// Set stores the report for rawURL.
	Set(ctx context.Context, rawURL string, report *model.ScanReport) error

	// Close releases the connection.
	Close() error
}

// Key returns the cache key of a URL.
func Key(rawURL string) string {
	return KeyPrefix + feature.Fingerprint(rawURL)
}

// Noop is a Cache that never stores anything.
type Noop struct{}

// Get always misses.
func (Noop) Get(context.Context, string) (*model.ScanReport, bool, error) {
	return nil, false, nil
}

// Set discards the report.
func (Noop) Set(context.Context, string, *model.ScanReport) error {
	return nil
}

// Close does nothing.
func (Noop) Close() error {
	return nil
}
