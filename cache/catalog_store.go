// Package cache keeps product catalogs close to the client.
package cache

import (
	"context"
	"time"

	"go.pilab.hu/portal/domain"
)

// CatalogStore holds catalog snapshots per category.
type CatalogStore interface {
	Get(ctx context.Context, category domain.Category) ([]domain.InsurancePolicy, bool, error)
	Set(ctx context.Context, category domain.Category, policies []domain.InsurancePolicy, ttl time.Duration) error
	Delete(ctx context.Context, category domain.Category) error
	Clear(ctx context.Context) error
}
