// internal/simulator/catalog.go
package simulator

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"go.uber.org/zap"

	"github.com/FairForge/kvbench/internal/store"
)

// DefaultCatalogLimit is how many partition keys are fetched at startup
const DefaultCatalogLimit = 10000

// ErrCatalogUnavailable aborts a run before any worker starts
var ErrCatalogUnavailable = errors.New("partition key catalog unavailable")

// Catalog is the read-only set of existing keys used as read targets
type Catalog struct {
	keys []string
}

// NewCatalog builds a catalog from keys, dropping blank ones
func NewCatalog(keys []string) (*Catalog, error) {
	filtered := make([]string, 0, len(keys))
	for _, k := range keys {
		if strings.TrimSpace(k) != "" {
			filtered = append(filtered, k)
		}
	}
	if len(filtered) == 0 {
		return nil, fmt.Errorf("%w: no partition keys found", ErrCatalogUnavailable)
	}
	return &Catalog{keys: filtered}, nil
}

// FetchCatalog scans the store once for up to limit keys
func FetchCatalog(ctx context.Context, s store.Store, limit int, logger *zap.Logger) (*Catalog, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if limit <= 0 {
		limit = DefaultCatalogLimit
	}

	logger.Info("fetching partition keys to read", zap.Int("limit", limit))
	keys, err := s.ScanKeys(ctx, limit)
	if err != nil {
		logger.Error("unable to fetch partition keys", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrCatalogUnavailable, err)
	}

	catalog, err := NewCatalog(keys)
	if err != nil {
		return nil, err
	}
	logger.Info("fetched partition keys", zap.Int("keys", catalog.Len()))
	return catalog, nil
}

// Len returns the number of keys
func (c *Catalog) Len() int {
	return len(c.keys)
}

// Random picks a key uniformly
func (c *Catalog) Random(rng *rand.Rand) string {
	return c.keys[rng.Intn(len(c.keys))]
}
