package analytics_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nulzo/model-router-api/internal/analytics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubStore struct {
	mu      sync.Mutex
	entries []analytics.RequestLogEntry
	stats   []analytics.DailyStat
}

func (s *stubStore) LogRequest(ctx context.Context, entry analytics.RequestLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *stubStore) DailyStats(ctx context.Context, days int) ([]analytics.DailyStat, error) {
	return s.stats, nil
}

func (s *stubStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func TestIngestor_Log_FlushesOnStop(t *testing.T) {
	store := &stubStore{}
	ingestor := analytics.NewIngestor(zap.NewNop(), store)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ingestor.Start(ctx)

	ingestor.Log(analytics.RequestLogEntry{ID: "req-1"})
	ingestor.Log(analytics.RequestLogEntry{ID: "req-2"})
	ingestor.Stop()

	require.Eventually(t, func() bool { return store.count() == 2 }, time.Second, time.Millisecond)
}

func TestIngestor_Log_FlushesOnContextCancel(t *testing.T) {
	store := &stubStore{}
	ingestor := analytics.NewIngestor(zap.NewNop(), store)
	ctx, cancel := context.WithCancel(context.Background())
	ingestor.Start(ctx)

	ingestor.Log(analytics.RequestLogEntry{ID: "req-1"})
	cancel()

	require.Eventually(t, func() bool { return store.count() == 1 }, time.Second, time.Millisecond)
}

func TestIngestor_Log_SetsCreatedAtWhenZero(t *testing.T) {
	store := &stubStore{}
	ingestor := analytics.NewIngestor(zap.NewNop(), store)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ingestor.Start(ctx)

	before := time.Now()
	ingestor.Log(analytics.RequestLogEntry{ID: "req-1"})
	ingestor.Stop()

	require.Eventually(t, func() bool { return store.count() == 1 }, time.Second, time.Millisecond)
	store.mu.Lock()
	defer store.mu.Unlock()
	assert.False(t, store.entries[0].CreatedAt.Before(before))
}

func TestService_GetUsageOverview_DefaultsDaysWhenNonPositive(t *testing.T) {
	store := &stubStore{stats: []analytics.DailyStat{{Day: "2026-08-01", RequestCount: 3}}}
	svc := analytics.NewService(store)

	stats, err := svc.GetUsageOverview(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, store.stats, stats)
}
