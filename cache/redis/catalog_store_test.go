package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.pilab.hu/portal/domain"
)

func newTestStore(t *testing.T) (*CatalogStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCatalogStore(client, "portal"), mr
}

func TestCatalogStore_SetGetExpire(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()
	policies := []domain.InsurancePolicy{{ID: "p1", Name: "Home Shield", Type: domain.PolicyTypeHome, PremiumPerMonth: 45}}

	_, ok, err := s.Get(ctx, domain.CategoryHome)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, domain.CategoryHome, policies, time.Minute))
	got, ok, err := s.Get(ctx, domain.CategoryHome)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, policies, got)
	assert.True(t, mr.Exists("portal:catalog:home"))

	mr.FastForward(2 * time.Minute)
	_, ok, err = s.Get(ctx, domain.CategoryHome)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCatalogStore_CorruptEntryIsAMiss(t *testing.T) {
	s, mr := newTestStore(t)
	require.NoError(t, mr.Set("portal:catalog:auto", "{not json"))

	_, ok, err := s.Get(context.Background(), domain.CategoryAuto)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, mr.Exists("portal:catalog:auto"))
}

func TestCatalogStore_DeleteAndClear(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()
	for _, c := range domain.Categories {
		require.NoError(t, s.Set(ctx, c, nil, time.Minute))
	}
	require.NoError(t, mr.Set("other:key", "x"))

	require.NoError(t, s.Delete(ctx, domain.CategoryLife))
	assert.False(t, mr.Exists("portal:catalog:life"))

	require.NoError(t, s.Clear(ctx))
	assert.False(t, mr.Exists("portal:catalog:auto"))
	assert.False(t, mr.Exists("portal:catalog:home"))
	assert.True(t, mr.Exists("other:key"))
}

func TestCatalogStore_ServerDown(t *testing.T) {
	s, mr := newTestStore(t)
	mr.Close()

	_, _, err := s.Get(context.Background(), domain.CategoryHome)
	assert.Error(t, err)
}
