package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stemsi/mcq-exam/internal/model"
)

// ErrExamUnavailable means the exam does not exist or is not active.
var ErrExamUnavailable = errors.New("exam not available")

// SubmitInput is one decoded submission.
type SubmitInput struct {
	Name         string
	Roll         string
	Answers      []*int
	Reason       model.SubmitReason
	WarningCount int
}

// ScoringService grades submissions against the stored answer keys.
type ScoringService struct {
	exams     ExamStore
	questions QuestionStore
	results   ResultStore
	monitor   MonitorPublisher
	now       func() time.Time
	log       zerolog.Logger
}

// NewScoringService creates a new ScoringService.
func NewScoringService(
	exams ExamStore,
	questions QuestionStore,
	results ResultStore,
	monitor MonitorPublisher,
	log zerolog.Logger,
) *ScoringService {
	return &ScoringService{
		exams:     exams,
		questions: questions,
		results:   results,
		monitor:   monitor,
		now:       time.Now,
		log:       log.With().Str("component", "scoring_service").Logger(),
	}
}

// ComputeScore counts answers that equal the answer key at the same
// position. Unanswered entries and answers beyond the key never match.
func ComputeScore(answers []*int, questions []model.Question) int {
	score := 0
	for i, q := range questions {
		if i >= len(answers) {
			break
		}
		if answers[i] != nil && *answers[i] == q.AnswerIndex {
			score++
		}
	}
	return score
}

// ThankYouPath is where a student lands after a successful submission.
func ThankYouPath(examID uuid.UUID) string {
	return fmt.Sprintf("/exams/%s/thankyou", examID)
}

// Submit scores and stores one submission, returning the redirect target.
// Every accepted call creates a new Result; resubmissions are not merged.
func (s *ScoringService) Submit(ctx context.Context, examID uuid.UUID, in SubmitInput) (string, error) {
	exam, err := s.exams.GetByID(ctx, examID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrExamUnavailable
	}
	if err != nil {
		return "", fmt.Errorf("get exam: %w", err)
	}
	if !exam.IsActive {
		return "", ErrExamUnavailable
	}

	questions, err := s.questions.ListByExam(ctx, examID)
	if err != nil {
		return "", fmt.Errorf("list questions: %w", err)
	}

	answers := in.Answers
	if answers == nil {
		answers = []*int{}
	}

	res := &model.Result{
		ExamID:       examID,
		ExamTitle:    exam.Title,
		StudentName:  in.Name,
		StudentRoll:  in.Roll,
		Answers:      answers,
		Score:        ComputeScore(answers, questions),
		Total:        len(questions),
		SubmitReason: in.Reason,
		WarningCount: in.WarningCount,
		SubmittedAt:  s.now().UTC(),
	}
	if err := s.results.Create(ctx, res); err != nil {
		return "", fmt.Errorf("save result: %w", err)
	}

	s.log.Info().
		Str("exam_id", examID.String()).
		Str("result_id", res.ID.String()).
		Int("score", res.Score).
		Int("total", res.Total).
		Str("reason", string(res.SubmitReason)).
		Int("warnings", res.WarningCount).
		Msg("Submission scored")

	if s.monitor != nil {
		ev := model.MonitorEvent{Type: model.MonitorEventResultSubmitted, Data: res}
		if err := s.monitor.Publish(ctx, examID, ev); err != nil {
			s.log.Warn().Err(err).Str("exam_id", examID.String()).Msg("Failed to publish submission event")
		}
	}

	return ThankYouPath(examID), nil
}
