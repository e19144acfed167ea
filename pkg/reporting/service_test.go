package reporting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tib-ai/triage/pkg/catalog"
	"github.com/tib-ai/triage/pkg/records"
)

type fakeStore struct {
	levelCounts []records.LevelCount
	calls       int
	err         error
}

func (f *fakeStore) ListDiseases(context.Context) ([]records.Disease, error) {
	return []records.Disease{{ID: 1, Name: "Dengue"}}, f.err
}

func (f *fakeStore) ListSeverities(context.Context) ([]records.Severity, error) {
	return []records.Severity{{ID: 1, Level: 1, Name: "Critical"}}, f.err
}

func (f *fakeStore) CountBySeverity(_ context.Context, _ *uint) ([]records.LevelCount, error) {
	f.calls++
	return f.levelCounts, f.err
}

func (f *fakeStore) LocationSeverities(context.Context) ([]records.LocationSeverity, error) {
	f.calls++
	return nil, f.err
}

func (f *fakeStore) DiseaseLocations(context.Context, uint) (int64, []records.LocationCount, error) {
	f.calls++
	return 0, nil, f.err
}

func (f *fakeStore) DiseaseLocationMatrix(context.Context) ([]records.DiseaseLocationCount, error) {
	f.calls++
	return nil, f.err
}

func (f *fakeStore) StatsSnapshot(context.Context) (*records.StatsSnapshot, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return emptySnapshot(), nil
}

// memoryCache mirrors RedisCache semantics with a generation counter.
type memoryCache struct {
	gen     int
	entries map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string][]byte{}}
}

func (m *memoryCache) k(key string) string {
	return fmt.Sprintf("%d:%s", m.gen, key)
}

func (m *memoryCache) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	raw, ok := m.entries[m.k(key)]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (m *memoryCache) Set(_ context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[m.k(key)] = raw
	return nil
}

func (m *memoryCache) Invalidate(context.Context) error {
	m.gen++
	return nil
}

func TestServiceCachesUntilInvalidated(t *testing.T) {
	store := &fakeStore{levelCounts: []records.LevelCount{{Level: 2, Count: 1}}}
	svc := NewService(store, catalog.Default(), newMemoryCache(), StatsOptions{})
	ctx := context.Background()

	first, err := svc.SeverityBreakdown(ctx, nil)
	require.NoError(t, err)
	store.levelCounts = []records.LevelCount{{Level: 2, Count: 2}}

	second, err := svc.SeverityBreakdown(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, store.calls)

	require.NoError(t, svc.Invalidate(ctx))
	third, err := svc.SeverityBreakdown(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), third[1].Count)
	assert.Equal(t, 2, store.calls)
}

func TestServiceWithoutCache(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store, catalog.Default(), nil, StatsOptions{Placeholders: true, Rand: fixedInts{}})
	ctx := context.Background()

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(87), stats.TotalPatients)
	assert.Equal(t, "89%", stats.Accuracy)

	_, err = svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, store.calls)
	assert.NoError(t, svc.Invalidate(ctx))
}

func TestServiceUnknownDiseaseIsNotFound(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store, catalog.Default(), nil, StatsOptions{})
	ctx := context.Background()

	unknown := uint(9)
	_, err := svc.SeverityBreakdown(ctx, &unknown)
	assert.True(t, errors.Is(err, records.ErrNotFound))

	_, err = svc.RegionForDisease(ctx, 9)
	assert.True(t, errors.Is(err, records.ErrNotFound))
	assert.Zero(t, store.calls)

	regions, err := svc.RegionForDisease(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, regions.Regions)
	assert.Zero(t, regions.TotalPatients)
}

func TestServiceStoreFailure(t *testing.T) {
	svc := NewService(&fakeStore{err: errors.New("db down")}, catalog.Default(), nil, StatsOptions{})

	_, err := svc.RegionOverview(context.Background())
	require.Error(t, err)
	assert.False(t, errors.Is(err, records.ErrNotFound))
}

func TestServiceFallsBackWhenRedisUnavailable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { client.Close() })

	store := &fakeStore{levelCounts: []records.LevelCount{{Level: 1, Count: 4}}}
	svc := NewService(store, catalog.Default(), NewRedisCache(client, "", time.Minute), StatsOptions{})

	buckets, err := svc.SeverityBreakdown(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(4), buckets[0].Count)
	assert.Error(t, svc.Invalidate(context.Background()))
}
