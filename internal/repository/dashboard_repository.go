package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DashboardRepository handles admin dashboard data access.
type DashboardRepository struct {
	pool *pgxpool.Pool
}

// NewDashboardRepository creates a new DashboardRepository.
func NewDashboardRepository(pool *pgxpool.Pool) *DashboardRepository {
	return &DashboardRepository{pool: pool}
}

// DashboardSummary holds the headline counters.
type DashboardSummary struct {
	TotalExams     int     `json:"total_exams"`
	ActiveExams    int     `json:"active_exams"`
	TotalQuestions int     `json:"total_questions"`
	TotalResults   int     `json:"total_results"`
	AveragePercent float64 `json:"average_percent"`
}

// GetSummary retrieves all counters in one round trip.
func (r *DashboardRepository) GetSummary(ctx context.Context) (*DashboardSummary, error) {
	s := &DashboardSummary{}
	err := r.pool.QueryRow(ctx,
		`SELECT
			(SELECT COUNT(*) FROM exams),
			(SELECT COUNT(*) FROM exams WHERE is_active),
			(SELECT COUNT(*) FROM questions),
			(SELECT COUNT(*) FROM results),
			(SELECT COALESCE(AVG(score::float8 * 100 / NULLIF(total, 0)), 0) FROM results)`,
	).Scan(&s.TotalExams, &s.ActiveExams, &s.TotalQuestions, &s.TotalResults, &s.AveragePercent)
	if err != nil {
		return nil, err
	}
	return s, nil
}
