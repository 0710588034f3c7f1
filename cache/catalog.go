package cache

import (
	"context"
	"time"

	"go.pilab.hu/portal/domain"
	"go.pilab.hu/portal/internal/metrics"
	"go.pilab.hu/portal/log"
)

// CatalogFetcher is the remote catalog contract.
type CatalogFetcher interface {
	PoliciesByCategory(ctx context.Context, category domain.Category) ([]domain.InsurancePolicy, error)
}

// Catalog is a read-through cache in front of a CatalogFetcher. A nil
// store disables caching. Store failures degrade to a remote fetch.
type Catalog struct {
	fetcher CatalogFetcher
	store   CatalogStore
	ttl     time.Duration
	logger  log.Logger
}

// NewCatalog wraps fetcher with store.
func NewCatalog(fetcher CatalogFetcher, store CatalogStore, ttl time.Duration, logger log.Logger) *Catalog {
	if logger == nil {
		logger = log.Nop()
	}
	return &Catalog{fetcher: fetcher, store: store, ttl: ttl, logger: logger}
}

// PoliciesByCategory implements CatalogFetcher.
func (c *Catalog) PoliciesByCategory(ctx context.Context, category domain.Category) ([]domain.InsurancePolicy, error) {
	if c.store != nil {
		policies, ok, err := c.store.Get(ctx, category)
		switch {
		case err != nil:
			c.logger.Warn(ctx, "catalog cache read failed", map[string]interface{}{"category": string(category), "error": err.Error()})
		case ok:
			metrics.CatalogCacheTotal.WithLabelValues("hit").Inc()
			return policies, nil
		}
		metrics.CatalogCacheTotal.WithLabelValues("miss").Inc()
	}

	policies, err := c.fetcher.PoliciesByCategory(ctx, category)
	if err != nil {
		return nil, err
	}

	if c.store != nil {
		if err := c.store.Set(ctx, category, policies, c.ttl); err != nil {
			c.logger.Warn(ctx, "catalog cache write failed", map[string]interface{}{"category": string(category), "error": err.Error()})
		}
	}
	return policies, nil
}

// Invalidate drops the cached catalog for category.
func (c *Catalog) Invalidate(ctx context.Context, category domain.Category) error {
	if c.store == nil {
		return nil
	}
	return c.store.Delete(ctx, category)
}
