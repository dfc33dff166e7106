package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/mcq-exam/internal/model"
)

// ResultRepository handles result data access.
type ResultRepository struct {
	pool *pgxpool.Pool
}

// NewResultRepository creates a new ResultRepository.
func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

// Create inserts a result in a single statement. This is the only write on
// the submission path; concurrent submissions need no further coordination.
func (r *ResultRepository) Create(ctx context.Context, res *model.Result) error {
	answers := res.Answers
	if answers == nil {
		answers = []*int{}
	}
	raw, err := json.Marshal(answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}

	return r.pool.QueryRow(ctx,
		`INSERT INTO results (exam_id, student_name, student_roll, answers, score, total,
		                      submit_reason, warning_count, submitted_at)
		 VALUES ($1, $2, $3, $4::jsonb, $5, $6, $7, $8, $9)
		 RETURNING id`,
		res.ExamID, res.StudentName, res.StudentRoll, raw, res.Score, res.Total,
		res.SubmitReason, res.WarningCount, res.SubmittedAt,
	).Scan(&res.ID)
}

const resultSelect = `
	SELECT r.id, r.exam_id, COALESCE(e.title, ''), r.student_name, r.student_roll,
	       r.answers, r.score, r.total, r.submit_reason, r.warning_count, r.submitted_at
	FROM results r
	LEFT JOIN exams e ON e.id = r.exam_id`

func scanResult(row pgx.Row) (*model.Result, error) {
	var (
		res    model.Result
		examID uuid.NullUUID
		raw    []byte
	)
	if err := row.Scan(&res.ID, &examID, &res.ExamTitle, &res.StudentName, &res.StudentRoll,
		&raw, &res.Score, &res.Total, &res.SubmitReason, &res.WarningCount, &res.SubmittedAt); err != nil {
		return nil, err
	}
	res.ExamID = examID.UUID
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &res.Answers); err != nil {
			return nil, fmt.Errorf("decode answers: %w", err)
		}
	}
	return &res, nil
}

// GetByID retrieves one result with its exam title.
func (r *ResultRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Result, error) {
	return scanResult(r.pool.QueryRow(ctx, resultSelect+` WHERE r.id = $1`, id))
}

// List returns all results, most recent submission first.
func (r *ResultRepository) List(ctx context.Context) ([]model.Result, error) {
	return r.collect(ctx, resultSelect+` ORDER BY r.submitted_at DESC`)
}

// ListByExam returns the results of one exam, most recent first.
func (r *ResultRepository) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.Result, error) {
	return r.collect(ctx, resultSelect+` WHERE r.exam_id = $1 ORDER BY r.submitted_at DESC`, examID)
}

func (r *ResultRepository) collect(ctx context.Context, query string, args ...any) ([]model.Result, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []model.Result
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *res)
	}
	return results, rows.Err()
}

// Delete removes a result. Returns pgx.ErrNoRows when nothing was deleted.
func (r *ResultRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM results WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
