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

// ErrExamNotFound is returned by admin operations on a missing exam.
var ErrExamNotFound = errors.New("exam not found")

// ExamService handles exam business logic and the student paper cache.
type ExamService struct {
	exams     ExamStore
	questions QuestionStore
	cache     PaperCache
	log       zerolog.Logger
}

// NewExamService creates a new ExamService.
func NewExamService(exams ExamStore, questions QuestionStore, cache PaperCache, log zerolog.Logger) *ExamService {
	return &ExamService{
		exams:     exams,
		questions: questions,
		cache:     cache,
		log:       log.With().Str("component", "exam_service").Logger(),
	}
}

// GetByID retrieves an exam by its UUID.
func (s *ExamService) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	exam, err := s.exams.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrExamNotFound
	}
	return exam, err
}

// List returns every exam, newest first.
func (s *ExamService) List(ctx context.Context) ([]model.Exam, error) {
	exams, err := s.exams.List(ctx)
	if err != nil {
		return nil, err
	}
	if exams == nil {
		exams = []model.Exam{}
	}
	return exams, nil
}

// ListActive returns the exams students can currently take.
func (s *ExamService) ListActive(ctx context.Context) ([]model.Exam, error) {
	exams, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	active := make([]model.Exam, 0, len(exams))
	for _, e := range exams {
		if e.IsActive {
			active = append(active, e)
		}
	}
	return active, nil
}

// Create inserts a new exam. New exams are inactive until toggled.
func (s *ExamService) Create(ctx context.Context, req model.CreateExamRequest) (*model.Exam, error) {
	exam := &model.Exam{
		Title:           req.Title,
		DurationMinutes: req.DurationMinutes,
		IsActive:        false,
	}
	if err := s.exams.Create(ctx, exam); err != nil {
		return nil, fmt.Errorf("create exam: %w", err)
	}
	s.log.Info().Str("exam_id", exam.ID.String()).Str("title", exam.Title).Msg("Exam created")
	return exam, nil
}

// ToggleActive flips the exam's availability.
func (s *ExamService) ToggleActive(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	exam, err := s.exams.ToggleActive(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrExamNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("toggle exam: %w", err)
	}
	s.invalidate(ctx, id)
	s.log.Info().Str("exam_id", id.String()).Bool("is_active", exam.IsActive).Msg("Exam toggled")
	return exam, nil
}

// Delete removes an exam together with its questions and integrity events.
// Submitted results are kept and lose their exam reference.
func (s *ExamService) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.exams.Delete(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrExamNotFound
	}
	if err != nil {
		return fmt.Errorf("delete exam: %w", err)
	}
	s.invalidate(ctx, id)
	s.log.Info().Str("exam_id", id.String()).Msg("Exam deleted")
	return nil
}

// GetPaper returns the student-facing paper of an active exam. The exam row
// is always read from Postgres so a deactivated exam is never served; the
// cache only saves the question fetch.
func (s *ExamService) GetPaper(ctx context.Context, id uuid.UUID) (*model.ExamPaper, error) {
	exam, err := s.exams.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrExamUnavailable
	}
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}
	if !exam.IsActive {
		return nil, ErrExamUnavailable
	}

	paper, err := s.cache.Get(ctx, id)
	if err == nil {
		paper.Title = exam.Title
		paper.DurationMinutes = exam.DurationMinutes
		return paper, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		s.log.Warn().Err(err).Str("exam_id", id.String()).Msg("Paper cache read failed, falling back to database")
	}

	questions, err := s.questions.ListByExam(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	paper = &model.ExamPaper{
		ExamID:          exam.ID,
		Title:           exam.Title,
		DurationMinutes: exam.DurationMinutes,
		Questions:       make([]model.QuestionForStudent, len(questions)),
	}
	for i := range questions {
		paper.Questions[i] = questions[i].ForStudent()
	}

	if err := s.cache.Set(ctx, paper); err != nil {
		s.log.Warn().Err(err).Str("exam_id", id.String()).Msg("Failed to cache paper")
	}
	return paper, nil
}

// PrewarmPapers loads every active exam paper into the cache so the first
// wave of students does not stampede Postgres.
func (s *ExamService) PrewarmPapers(ctx context.Context) (int, error) {
	exams, err := s.ListActive(ctx)
	if err != nil {
		return 0, err
	}
	warmed := 0
	for _, e := range exams {
		if _, err := s.GetPaper(ctx, e.ID); err != nil {
			s.log.Warn().Err(err).Str("exam_id", e.ID.String()).Msg("Failed to prewarm paper")
			continue
		}
		warmed++
	}
	return warmed, nil
}

func (s *ExamService) invalidate(ctx context.Context, id uuid.UUID) {
	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.log.Warn().Err(err).Str("exam_id", id.String()).Msg("Failed to invalidate paper cache")
	}
}
