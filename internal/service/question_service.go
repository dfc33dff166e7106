package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stemsi/mcq-exam/internal/model"
)

var (
	ErrQuestionNotFound = errors.New("question not found")
	ErrInvalidQuestion  = errors.New("question needs exactly 4 choices and an answer between 1 and 4")
)

// QuestionService handles question business logic. Every change drops the
// cached paper of the owning exam.
type QuestionService struct {
	exams     ExamStore
	questions QuestionStore
	cache     PaperCache
	log       zerolog.Logger
}

// NewQuestionService creates a new QuestionService.
func NewQuestionService(exams ExamStore, questions QuestionStore, cache PaperCache, log zerolog.Logger) *QuestionService {
	return &QuestionService{
		exams:     exams,
		questions: questions,
		cache:     cache,
		log:       log.With().Str("component", "question_service").Logger(),
	}
}

// ListByExam returns the questions of an exam in stored order.
func (s *QuestionService) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.Question, error) {
	if _, err := s.exams.GetByID(ctx, examID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("get exam: %w", err)
	}

	questions, err := s.questions.ListByExam(ctx, examID)
	if err != nil {
		return nil, err
	}
	if questions == nil {
		questions = []model.Question{}
	}
	return questions, nil
}

// Add appends a question to an exam. The 1-based answer becomes a 0-based
// answer index.
func (s *QuestionService) Add(ctx context.Context, examID uuid.UUID, req model.AddQuestionRequest) (*model.Question, error) {
	if len(req.Choices) != model.ChoiceCount || req.Answer < 1 || req.Answer > model.ChoiceCount {
		return nil, ErrInvalidQuestion
	}
	if _, err := s.exams.GetByID(ctx, examID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("get exam: %w", err)
	}

	q := &model.Question{
		ExamID:      examID,
		Text:        req.Text,
		Choices:     append([]string(nil), req.Choices...),
		AnswerIndex: req.Answer - 1,
	}
	if err := s.questions.Create(ctx, q); err != nil {
		return nil, fmt.Errorf("create question: %w", err)
	}
	s.invalidate(ctx, examID)
	return q, nil
}

// Delete removes a question.
func (s *QuestionService) Delete(ctx context.Context, id uuid.UUID) error {
	examID, err := s.questions.Delete(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrQuestionNotFound
	}
	if err != nil {
		return fmt.Errorf("delete question: %w", err)
	}
	s.invalidate(ctx, examID)
	return nil
}

func (s *QuestionService) invalidate(ctx context.Context, examID uuid.UUID) {
	if err := s.cache.Invalidate(ctx, examID); err != nil {
		s.log.Warn().Err(err).Str("exam_id", examID.String()).Msg("Failed to invalidate paper cache")
	}
}
