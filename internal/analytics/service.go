package analytics

import "context"

// Service is the read side backing GET /requests/stats.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

func (s *Service) GetUsageOverview(ctx context.Context, days int) ([]DailyStat, error) {
	if days <= 0 {
		days = 7
	}
	return s.store.DailyStats(ctx, days)
}
