// Package session implements the client-side exam session controller as a
// deterministic state machine.
//
// Every operation takes the current Session by value and returns the next
// Session together with the effects the caller must perform (start a ticker,
// render the timer, send the submission, navigate, ...). Nothing in this
// package touches a clock, a network or a screen, so the whole lifecycle can
// be driven from tests.
package session

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/mcq-exam/internal/model"
)

// WarningThreshold is the number of integrity warnings that forces submission.
const WarningThreshold = 3

// TickInterval is the countdown resolution.
const TickInterval = time.Second

// State is the lifecycle position of a session.
type State int

const (
	NotStarted State = iota
	InProgress
	Submitting
	Terminated
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case InProgress:
		return "in_progress"
	case Submitting:
		return "submitting"
	case Terminated:
		return "terminated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Session is one student's attempt. It is never persisted; a reload
// abandons it.
type Session struct {
	ExamID           uuid.UUID
	DurationMinutes  int
	QuestionCount    int
	StartedAt        time.Time
	RemainingSeconds int
	WarningCount     int

	// Answers holds the selected choice per question, nil when unset.
	Answers []*int

	// Submitted flips to true exactly once, at the moment a submission is
	// triggered. Every timer and integrity handler checks it first.
	Submitted bool
	State     State
	Reason    model.SubmitReason

	// InFlight is set while a submission round trip is outstanding.
	InFlight bool
	// LastError is the failure of the most recent submission attempt.
	LastError error

	fullscreen bool
	hidden     bool
}

// New prepares a session for the given exam paper.
func New(paper model.ExamPaper) Session {
	n := len(paper.Questions)
	return Session{
		ExamID:          paper.ExamID,
		DurationMinutes: paper.DurationMinutes,
		QuestionCount:   n,
		Answers:         make([]*int, n),
		State:           NotStarted,
	}
}

// Submission is the payload of the one terminal request. It deliberately
// has no score field.
type Submission struct {
	ExamID       uuid.UUID
	Answers      []*int
	Reason       model.SubmitReason
	WarningCount int
}

// Outcome is the result of a submission round trip.
type Outcome struct {
	OK       bool
	Redirect string
	Err      error
}

// FormatRemaining renders seconds as M:SS. Negative values render as 0:00.
func FormatRemaining(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// WarningText is the message shown for the n-th integrity warning.
func WarningText(n int) string {
	return fmt.Sprintf("Warning %d/%d", n, WarningThreshold)
}

// CollectAnswers returns the selected choice for every question in order,
// nil where nothing was selected. The result is always QuestionCount long.
func CollectAnswers(s Session) []*int {
	out := make([]*int, s.QuestionCount)
	for i := 0; i < s.QuestionCount && i < len(s.Answers); i++ {
		if s.Answers[i] != nil {
			v := *s.Answers[i]
			out[i] = &v
		}
	}
	return out
}
