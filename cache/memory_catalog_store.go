package cache

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"go.pilab.hu/portal/domain"
)

// MemoryCatalogStore implements CatalogStore using ttlcache.
type MemoryCatalogStore struct {
	cache *ttlcache.Cache[domain.Category, []domain.InsurancePolicy]
}

// NewMemoryCatalogStore creates an in-memory store with automatic cleanup.
// Call Close to stop the cleanup goroutine.
func NewMemoryCatalogStore() *MemoryCatalogStore {
	c := ttlcache.New(
		ttlcache.WithDisableTouchOnHit[domain.Category, []domain.InsurancePolicy](),
	)
	go c.Start()

	return &MemoryCatalogStore{cache: c}
}

// Get implements CatalogStore.Get.
func (s *MemoryCatalogStore) Get(_ context.Context, category domain.Category) ([]domain.InsurancePolicy, bool, error) {
	item := s.cache.Get(category)
	if item == nil {
		return nil, false, nil
	}
	return clonePolicies(item.Value()), true, nil
}

// Set implements CatalogStore.Set.
func (s *MemoryCatalogStore) Set(_ context.Context, category domain.Category, policies []domain.InsurancePolicy, ttl time.Duration) error {
	s.cache.Set(category, clonePolicies(policies), ttl)
	return nil
}

// Delete implements CatalogStore.Delete.
func (s *MemoryCatalogStore) Delete(_ context.Context, category domain.Category) error {
	s.cache.Delete(category)
	return nil
}

// Clear implements CatalogStore.Clear.
func (s *MemoryCatalogStore) Clear(_ context.Context) error {
	s.cache.DeleteAll()
	return nil
}

// Close stops the cleanup goroutine.
func (s *MemoryCatalogStore) Close() error {
	s.cache.Stop()
	return nil
}

func clonePolicies(in []domain.InsurancePolicy) []domain.InsurancePolicy {
	if in == nil {
		return nil
	}
	return append(make([]domain.InsurancePolicy, 0, len(in)), in...)
}
