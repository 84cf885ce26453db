package sqlite

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/nulzo/model-router-api/internal/analytics"
)

// RequestLogStore implements analytics.Store against a sqlite db
// opened with Open.
type RequestLogStore struct {
	db *sqlx.DB
}

func NewRequestLogStore(db *sqlx.DB) *RequestLogStore {
	return &RequestLogStore{db: db}
}

func (s *RequestLogStore) LogRequest(ctx context.Context, entry analytics.RequestLogEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO request_logs
			(id, provider_id, model, status, latency_ms, ttft_ms, input_tokens, output_tokens, error_kind, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.ProviderID, entry.Model, entry.Status, entry.LatencyMs, entry.TTFTMs,
		entry.InputTokens, entry.OutputTokens, entry.ErrorKind, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert request log: %w", err)
	}
	return nil
}

func (s *RequestLogStore) DailyStats(ctx context.Context, days int) ([]analytics.DailyStat, error) {
	rows, err := s.db.QueryxContext(ctx, `
		SELECT
			date(created_at) AS day,
			COUNT(*) AS request_count,
			SUM(CASE WHEN status >= 400 THEN 1 ELSE 0 END) AS error_count,
			COALESCE(SUM(input_tokens), 0) AS input_tokens,
			COALESCE(SUM(output_tokens), 0) AS output_tokens
		FROM request_logs
		WHERE created_at >= datetime('now', printf('-%d days', ?))
		GROUP BY day
		ORDER BY day DESC`, days)
	if err != nil {
		return nil, fmt.Errorf("query daily stats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var stats []analytics.DailyStat
	for rows.Next() {
		var s2 analytics.DailyStat
		if err := rows.Scan(&s2.Day, &s2.RequestCount, &s2.ErrorCount, &s2.InputTokens, &s2.OutputTokens); err != nil {
			return nil, fmt.Errorf("scan daily stat: %w", err)
		}
		stats = append(stats, s2)
	}
	return stats, rows.Err()
}
