package model

import (
	"time"

	"github.com/google/uuid"
)

// Exam represents a timed assessment. IsActive gates whether students may
// start a session or submit answers.
type Exam struct {
	ID              uuid.UUID `json:"id"`
	Title           string    `json:"title"`
	DurationMinutes int       `json:"duration_minutes"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// CreateExamRequest is the payload for creating a new exam.
type CreateExamRequest struct {
	Title           string `json:"title" form:"title" binding:"required,min=1,max=255"`
	DurationMinutes int    `json:"duration_minutes" form:"duration" binding:"required,min=1,max=480"`
}

// ExamPaper is the student-facing exam payload. It is cached in Redis and
// never carries answer keys.
type ExamPaper struct {
	ExamID          uuid.UUID            `json:"exam_id"`
	Title           string               `json:"title"`
	DurationMinutes int                  `json:"duration_minutes"`
	Questions       []QuestionForStudent `json:"questions"`
}

// QuestionForStudent is a question without its correct answer.
type QuestionForStudent struct {
	ID      uuid.UUID `json:"id"`
	Text    string    `json:"text"`
	Choices []string  `json:"choices"`
}
