package session

import "time"

// Effect is a side effect requested by a transition. Callers switch on the
// concrete type.
type Effect interface {
	effect()
}

// RequestFullscreen asks the platform for fullscreen presentation. It is best
// effort; a denial is not an error for the session.
type RequestFullscreen struct{}

// StartTicker begins the repeating countdown tick.
type StartTicker struct {
	Interval time.Duration
}

// StopTicker cancels the countdown tick.
type StopTicker struct{}

// RenderTimer updates the countdown display.
type RenderTimer struct {
	Text string
}

// ShowWarning surfaces an integrity warning to the student.
type ShowWarning struct {
	Count int
	Text  string
}

// Submit sends the final answers to the scoring endpoint.
type Submit struct {
	Submission Submission
}

// Navigate moves to another view, normally the confirmation page.
type Navigate struct {
	Target string
}

// Alert shows a blocking message.
type Alert struct {
	Text string
}

func (RequestFullscreen) effect() {}
func (StartTicker) effect()       {}
func (StopTicker) effect()        {}
func (RenderTimer) effect()       {}
func (ShowWarning) effect()       {}
func (Submit) effect()            {}
func (Navigate) effect()          {}
func (Alert) effect()             {}
