package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stemsi/mcq-exam/internal/model"
)

// ErrResultNotFound is returned when a result id does not exist.
var ErrResultNotFound = errors.New("result not found")

// CSVHeader is the header row of the results export.
var CSVHeader = []string{"Name", "Roll No", "Score", "Time"}

// CSVTimeLayout formats the submission time in the export.
const CSVTimeLayout = "2006-01-02 15:04:05"

// ResultDetail is a result alongside the questions it was graded against.
type ResultDetail struct {
	Result    *model.Result    `json:"result"`
	Questions []model.Question `json:"questions"`
}

// ResultService handles result review and export.
type ResultService struct {
	results   ResultStore
	questions QuestionStore
	log       zerolog.Logger
}

// NewResultService creates a new ResultService.
func NewResultService(results ResultStore, questions QuestionStore, log zerolog.Logger) *ResultService {
	return &ResultService{
		results:   results,
		questions: questions,
		log:       log.With().Str("component", "result_service").Logger(),
	}
}

// List returns every result, newest first.
func (s *ResultService) List(ctx context.Context) ([]model.Result, error) {
	results, err := s.results.List(ctx)
	if err != nil {
		return nil, err
	}
	if results == nil {
		results = []model.Result{}
	}
	return results, nil
}

// Detail returns one result with its exam's current questions.
func (s *ResultService) Detail(ctx context.Context, id uuid.UUID) (*ResultDetail, error) {
	res, err := s.results.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrResultNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get result: %w", err)
	}

	questions, err := s.questions.ListByExam(ctx, res.ExamID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	if questions == nil {
		questions = []model.Question{}
	}
	return &ResultDetail{Result: res, Questions: questions}, nil
}

// Delete removes a result.
func (s *ResultService) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.results.Delete(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrResultNotFound
	}
	if err != nil {
		s.log.Error().Err(err).Str("result_id", id.String()).Msg("Failed to delete result")
		return fmt.Errorf("delete result: %w", err)
	}
	return nil
}

// WriteCSV exports all results, newest first, in the given location.
func (s *ResultService) WriteCSV(ctx context.Context, w io.Writer, loc *time.Location) error {
	results, err := s.results.List(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("CSV export failed")
		return fmt.Errorf("list results: %w", err)
	}
	if loc == nil {
		loc = time.UTC
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, r := range results {
		row := []string{
			r.StudentName,
			r.StudentRoll,
			strconv.Itoa(r.Score),
			r.SubmittedAt.In(loc).Format(CSVTimeLayout),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
