// Package bank loads exams and their questions from YAML question banks.
package bank

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/stemsi/mcq-exam/internal/model"
	"github.com/stemsi/mcq-exam/internal/validator"
	"gopkg.in/yaml.v3"
)

// Bank is one exam with its questions. Answers are 1-based, matching the
// admin API.
type Bank struct {
	Title           string     `yaml:"title"`
	DurationMinutes int        `yaml:"duration_minutes"`
	Activate        bool       `yaml:"activate"`
	Questions       []Question `yaml:"questions"`
}

type Question struct {
	Text    string   `yaml:"text"`
	Choices []string `yaml:"choices"`
	Answer  int      `yaml:"answer"`
}

// Parse decodes and validates a bank. Unknown keys are rejected.
func Parse(r io.Reader) (*Bank, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var b Bank
	if err := dec.Decode(&b); err != nil {
		return nil, fmt.Errorf("parse bank: %w", err)
	}
	if err := b.validate(); err != nil {
		return nil, err
	}
	return &b, nil
}

func (b *Bank) validate() error {
	if fields := validator.Validate(b.examRequest()); fields != nil {
		return fieldError("exam", fields)
	}
	if len(b.Questions) == 0 {
		return fmt.Errorf("bank %q has no questions", b.Title)
	}
	for i, q := range b.Questions {
		if fields := validator.Validate(q.request()); fields != nil {
			return fieldError(fmt.Sprintf("question %d", i+1), fields)
		}
	}
	return nil
}

func (b *Bank) examRequest() model.CreateExamRequest {
	return model.CreateExamRequest{Title: b.Title, DurationMinutes: b.DurationMinutes}
}

func (q Question) request() model.AddQuestionRequest {
	return model.AddQuestionRequest{Text: q.Text, Choices: q.Choices, Answer: q.Answer}
}

func fieldError(where string, fields map[string]string) error {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + fields[k]
	}
	return fmt.Errorf("%s: %s", where, strings.Join(parts, "; "))
}

// ExamCreator is satisfied by service.ExamService.
type ExamCreator interface {
	Create(ctx context.Context, req model.CreateExamRequest) (*model.Exam, error)
	ToggleActive(ctx context.Context, id uuid.UUID) (*model.Exam, error)
}

// QuestionAdder is satisfied by service.QuestionService.
type QuestionAdder interface {
	Add(ctx context.Context, examID uuid.UUID, req model.AddQuestionRequest) (*model.Question, error)
}

// Load creates the exam and its questions in file order. The exam stays
// inactive until every question is stored.
func Load(ctx context.Context, b *Bank, exams ExamCreator, questions QuestionAdder) (*model.Exam, error) {
	exam, err := exams.Create(ctx, b.examRequest())
	if err != nil {
		return nil, err
	}
	for i, q := range b.Questions {
		if _, err := questions.Add(ctx, exam.ID, q.request()); err != nil {
			return exam, fmt.Errorf("question %d: %w", i+1, err)
		}
	}
	if b.Activate {
		if exam, err = exams.ToggleActive(ctx, exam.ID); err != nil {
			return nil, fmt.Errorf("activate exam: %w", err)
		}
	}
	return exam, nil
}
