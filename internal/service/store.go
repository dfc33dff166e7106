package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/stemsi/mcq-exam/internal/model"
)

// The interfaces below are satisfied by the repository package and by the
// in-memory fakes used in tests.

type ExamStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error)
	List(ctx context.Context) ([]model.Exam, error)
	Create(ctx context.Context, e *model.Exam) error
	ToggleActive(ctx context.Context, id uuid.UUID) (*model.Exam, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type QuestionStore interface {
	ListByExam(ctx context.Context, examID uuid.UUID) ([]model.Question, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Question, error)
	Create(ctx context.Context, q *model.Question) error
	// Delete removes a question and returns the exam it belonged to.
	Delete(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
}

type ResultStore interface {
	Create(ctx context.Context, res *model.Result) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Result, error)
	List(ctx context.Context) ([]model.Result, error)
	ListByExam(ctx context.Context, examID uuid.UUID) ([]model.Result, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type IntegrityCounter interface {
	CountByStudent(ctx context.Context, examID uuid.UUID) (map[string]int64, error)
}
