package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/mcq-exam/internal/model"
)

// QuestionRepository handles question data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// ListByExam retrieves all questions for an exam in stored order. Scoring
// aligns submitted answers against this order, so it must stay stable.
func (r *QuestionRepository) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, exam_id, text, choices, answer_index, order_num
		 FROM questions WHERE exam_id = $1
		 ORDER BY order_num, id`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.ExamID, &q.Text, &q.Choices, &q.AnswerIndex, &q.OrderNum); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// GetByID retrieves a single question.
func (r *QuestionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Question, error) {
	q := &model.Question{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, exam_id, text, choices, answer_index, order_num
		 FROM questions WHERE id = $1`, id,
	).Scan(&q.ID, &q.ExamID, &q.Text, &q.Choices, &q.AnswerIndex, &q.OrderNum)
	if err != nil {
		return nil, err
	}
	return q, nil
}

// Create inserts a new question. order_num is assigned by the database so
// questions keep insertion order.
func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO questions (exam_id, text, choices, answer_index)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, order_num`,
		q.ExamID, q.Text, q.Choices, q.AnswerIndex,
	).Scan(&q.ID, &q.OrderNum)
}

// Delete removes a question and returns the exam it belonged to.
func (r *QuestionRepository) Delete(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	var examID uuid.UUID
	err := r.pool.QueryRow(ctx,
		`DELETE FROM questions WHERE id = $1 RETURNING exam_id`, id,
	).Scan(&examID)
	if err != nil {
		return uuid.Nil, err
	}
	return examID, nil
}
