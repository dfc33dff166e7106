package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// SubmitReason tags why a session was submitted. It is recorded for audit
// only and never influences scoring.
type SubmitReason string

const (
	SubmitReasonTimeUp          SubmitReason = "time up"
	SubmitReasonTooManyWarnings SubmitReason = "too many warnings"
	SubmitReasonManual          SubmitReason = "manual submit"
	SubmitReasonUnknown         SubmitReason = "unknown"
)

// ParseSubmitReason maps a client-reported reason onto a known tag.
// Matching is case-insensitive because the browser client historically sent
// "Time up" and "Manual submit".
func ParseSubmitReason(raw string) SubmitReason {
	switch normalized := SubmitReason(strings.ToLower(strings.TrimSpace(raw))); normalized {
	case SubmitReasonTimeUp, SubmitReasonTooManyWarnings, SubmitReasonManual:
		return normalized
	default:
		return SubmitReasonUnknown
	}
}

// Result is the persisted outcome of one submission. Answers are aligned with
// the exam's question order; a nil entry means the question was left blank.
// Results are kept when their exam is deleted; ExamID is then uuid.Nil and
// ExamTitle is empty.
type Result struct {
	ID           uuid.UUID    `json:"id"`
	ExamID       uuid.UUID    `json:"exam_id"`
	ExamTitle    string       `json:"exam_title,omitempty"`
	StudentName  string       `json:"name"`
	StudentRoll  string       `json:"roll"`
	Answers      []*int       `json:"answers"`
	Score        int          `json:"score"`
	Total        int          `json:"total"`
	SubmitReason SubmitReason `json:"submit_reason"`
	WarningCount int          `json:"warning_count"`
	SubmittedAt  time.Time    `json:"submitted_at"`
}

// SubmitRequest is the submission form posted by the exam client.
// AnswersJSON is the serialized answers list, e.g. `[0,null,2]`.
type SubmitRequest struct {
	Name        string `form:"name" json:"name" binding:"max=255"`
	Roll        string `form:"roll" json:"roll" binding:"max=100"`
	AnswersJSON string `form:"answersJson" json:"answersJson"`
	Reason      string `form:"reason" json:"reason" binding:"max=64"`
	Warnings    int    `form:"warnings" json:"warnings" binding:"min=0,max=1000"`
}

// SubmitResponse is returned to programmatic (XHR) submissions.
type SubmitResponse struct {
	OK       bool   `json:"ok"`
	Redirect string `json:"redirect,omitempty"`
}
