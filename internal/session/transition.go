package session

import (
	"errors"
	"time"

	"github.com/stemsi/mcq-exam/internal/model"
)

// SubmitFailedText is shown when the submission round trip fails.
const SubmitFailedText = "Submission failed! Please try again."

// ErrSubmitRejected marks a response that was neither ok nor a redirect.
var ErrSubmitRejected = errors.New("submission rejected by server")

// Start begins the attempt: the duration is copied into the countdown and
// fullscreen is requested. It only acts on a NotStarted session.
func Start(s Session, now time.Time) (Session, []Effect) {
	if s.State != NotStarted {
		return s, nil
	}
	s.State = InProgress
	s.StartedAt = now
	s.RemainingSeconds = s.DurationMinutes * 60

	return s, []Effect{
		RequestFullscreen{},
		StartTicker{Interval: TickInterval},
		RenderTimer{Text: FormatRemaining(s.RemainingSeconds)},
	}
}

// Tick advances the countdown by one second. The timeout check runs on every
// tick rather than only at zero so a drifting ticker still submits.
func Tick(s Session) (Session, []Effect) {
	if s.State != InProgress || s.Submitted {
		return s, nil
	}
	s.RemainingSeconds--
	effects := []Effect{RenderTimer{Text: FormatRemaining(s.RemainingSeconds)}}
	if s.RemainingSeconds <= 0 {
		var more []Effect
		s, more = beginSubmit(s, model.SubmitReasonTimeUp)
		effects = append(effects, more...)
	}
	return s, effects
}

// VisibilityChanged handles a page visibility change. Becoming hidden while
// in progress is an integrity warning.
func VisibilityChanged(s Session, hidden bool) (Session, []Effect) {
	wasHidden := s.hidden
	s.hidden = hidden
	if !hidden || wasHidden {
		return s, nil
	}
	return warn(s)
}

// FullscreenChanged handles a fullscreen presentation change. Losing
// fullscreen while in progress is an integrity warning; never having had it
// (request denied or unsupported) is not.
func FullscreenChanged(s Session, active bool) (Session, []Effect) {
	wasActive := s.fullscreen
	s.fullscreen = active
	if active || !wasActive {
		return s, nil
	}
	return warn(s)
}

// SelectAnswer records a choice for question i. Invalid indices and
// selections outside InProgress are ignored.
func SelectAnswer(s Session, question, choice int) (Session, []Effect) {
	if s.State != InProgress || s.Submitted {
		return s, nil
	}
	if question < 0 || question >= s.QuestionCount || choice < 0 || choice >= model.ChoiceCount {
		return s, nil
	}
	answers := make([]*int, s.QuestionCount)
	copy(answers, s.Answers)
	c := choice
	answers[question] = &c
	s.Answers = answers
	return s, nil
}

// ManualSubmit submits at the student's request.
func ManualSubmit(s Session) (Session, []Effect) {
	if s.State != InProgress || s.Submitted {
		return s, nil
	}
	return beginSubmit(s, model.SubmitReasonManual)
}

// SubmitCompleted consumes the outcome of the submission round trip.
//
// A successful response, or a response redirecting away (exam no longer
// available), terminates the session with a navigation. A failure keeps the
// session in Submitting with an alert; only RetrySubmit sends again.
func SubmitCompleted(s Session, out Outcome) (Session, []Effect) {
	if s.State != Submitting || !s.InFlight {
		return s, nil
	}
	s.InFlight = false

	if out.Err == nil && (out.OK || out.Redirect != "") {
		s.State = Terminated
		s.LastError = nil
		return s, []Effect{Navigate{Target: out.Redirect}}
	}

	s.LastError = out.Err
	if s.LastError == nil {
		s.LastError = ErrSubmitRejected
	}
	return s, []Effect{Alert{Text: SubmitFailedText}}
}

// RetrySubmit resends the same submission after a failure. It is the only
// way a failed submission is repeated.
func RetrySubmit(s Session) (Session, []Effect) {
	if s.State != Submitting || s.InFlight || s.LastError == nil {
		return s, nil
	}
	s.InFlight = true
	return s, []Effect{Submit{Submission: submission(s)}}
}

func warn(s Session) (Session, []Effect) {
	if s.State != InProgress || s.Submitted {
		return s, nil
	}
	s.WarningCount++
	effects := []Effect{ShowWarning{Count: s.WarningCount, Text: WarningText(s.WarningCount)}}
	if s.WarningCount >= WarningThreshold {
		var more []Effect
		s, more = beginSubmit(s, model.SubmitReasonTooManyWarnings)
		effects = append(effects, more...)
	}
	return s, effects
}

// beginSubmit is the single place the guard flips. Callers have already
// checked that the session is InProgress and not submitted.
func beginSubmit(s Session, reason model.SubmitReason) (Session, []Effect) {
	s.Submitted = true
	s.State = Submitting
	s.Reason = reason
	s.InFlight = true
	return s, []Effect{
		StopTicker{},
		Submit{Submission: submission(s)},
	}
}

func submission(s Session) Submission {
	return Submission{
		ExamID:       s.ExamID,
		Answers:      CollectAnswers(s),
		Reason:       s.Reason,
		WarningCount: s.WarningCount,
	}
}
