// Package cache stores serialized analysis results.
//
// The engine caches successful adapter results keyed by a hash of the
// adapter name, mode and parameters. Adapters are deterministic, so a hit
// is interchangeable with a recomputation. Three backends are provided:
//
//   - [NullCache]: caching disabled
//   - [FileCache]: one JSON file per entry, used by the CLI
//   - [RedisCache]: shared cache for server deployments
//
// Cache failures never fail an analysis; callers treat errors as misses.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with optional expiry.
type Cache interface {
	// Get returns the stored value and whether it was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data. A ttl of zero stores without expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes a key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases resources.
	Close() error
}

// Default TTLs.
const (
	// TTLResult applies to adapter results.
	TTLResult = 7 * 24 * time.Hour
	// TTLReport applies to combined reports.
	TTLReport = 24 * time.Hour
)

// Keyer derives cache keys.
type Keyer interface {
	// ResultKey identifies one adapter run.
	ResultKey(adapter, mode string, params []byte) string
	// ReportKey identifies a report over values with an optional adapter run.
	ReportKey(values []float64, adapter, mode string, params []byte) string
}

// DefaultKeyer produces "result:<sha256>" and "report:<sha256>" keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// ResultKey implements Keyer.
func (DefaultKeyer) ResultKey(adapter, mode string, params []byte) string {
	return hashKey("result", adapter, mode, canonical(params))
}

// ReportKey implements Keyer.
func (DefaultKeyer) ReportKey(values []float64, adapter, mode string, params []byte) string {
	return hashKey("report", values, adapter, mode, canonical(params))
}
