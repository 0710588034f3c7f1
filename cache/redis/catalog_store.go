package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"go.pilab.hu/portal/cache"
	"go.pilab.hu/portal/domain"
)

// CatalogStore implements cache.CatalogStore on Redis. Each category is a
// JSON string with its own expiry.
type CatalogStore struct {
	client *redis.Client
	prefix string
}

// NewCatalogStore creates a new [CatalogStore] instance.
func NewCatalogStore(client *redis.Client, prefix string) *CatalogStore {
	return &CatalogStore{
		client: client,
		prefix: prefix,
	}
}

var _ cache.CatalogStore = (*CatalogStore)(nil)

func (r *CatalogStore) redisKey(category string) string {
	return fmt.Sprintf("%s:catalog:%s", r.prefix, category)
}

// Get retrieves a catalog snapshot.
func (r *CatalogStore) Get(ctx context.Context, category domain.Category) ([]domain.InsurancePolicy, bool, error) {
	raw, err := r.client.Get(ctx, r.redisKey(string(category))).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get catalog from Redis: %w", err)
	}

	var policies []domain.InsurancePolicy
	if err := json.Unmarshal(raw, &policies); err != nil {
		// A corrupt entry is dropped and treated as a miss.
		_ = r.client.Del(ctx, r.redisKey(string(category))).Err()
		return nil, false, nil
	}
	return policies, true, nil
}

// Set stores a catalog snapshot with the given expiry.
func (r *CatalogStore) Set(ctx context.Context, category domain.Category, policies []domain.InsurancePolicy, ttl time.Duration) error {
	raw, err := json.Marshal(policies)
	if err != nil {
		return fmt.Errorf("failed to marshal catalog: %w", err)
	}
	if err := r.client.Set(ctx, r.redisKey(string(category)), raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set catalog in Redis: %w", err)
	}
	return nil
}

// Delete removes one category.
func (r *CatalogStore) Delete(ctx context.Context, category domain.Category) error {
	if err := r.client.Del(ctx, r.redisKey(string(category))).Err(); err != nil {
		return fmt.Errorf("failed to delete catalog from Redis: %w", err)
	}
	return nil
}

// Clear removes every catalog under the prefix.
func (r *CatalogStore) Clear(ctx context.Context) error {
	pattern := r.redisKey("*")
	var cursor uint64

	for {
		keys, next, err := r.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return fmt.Errorf("failed to scan catalog keys: %w", err)
		}
		if len(keys) > 0 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("failed to delete catalog keys: %w", err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}
