package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// IntegrityRepository reads aggregated client-reported integrity warnings.
// Writes happen in batches in the integrity worker.
type IntegrityRepository struct {
	pool *pgxpool.Pool
}

// NewIntegrityRepository creates a new IntegrityRepository.
func NewIntegrityRepository(pool *pgxpool.Pool) *IntegrityRepository {
	return &IntegrityRepository{pool: pool}
}

// CountByStudent returns the number of warnings recorded per roll number.
func (r *IntegrityRepository) CountByStudent(ctx context.Context, examID uuid.UUID) (map[string]int64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT student_roll, COUNT(*)
		 FROM integrity_events
		 WHERE exam_id = $1
		 GROUP BY student_roll`,
		examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var roll string
		var count int64
		if err := rows.Scan(&roll, &count); err != nil {
			return nil, err
		}
		counts[roll] = count
	}
	return counts, rows.Err()
}
