package examclient

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/mcq-exam/internal/model"
	"github.com/stemsi/mcq-exam/internal/session"
)

// UI is the presentation surface a Runner drives.
type UI interface {
	RenderTimer(text string)
	ShowWarning(count int, text string)
	Alert(text string)
	Navigate(target string)
}

// Fullscreen requests fullscreen presentation. An error means the request
// was denied or is unsupported.
type Fullscreen interface {
	Request(ctx context.Context) error
}

// Submitter performs the submission round trip.
type Submitter interface {
	Submit(ctx context.Context, sub session.Submission) session.Outcome
}

// WarningReporter forwards warnings to the server as they happen.
type WarningReporter interface {
	Report(source model.IntegritySource, count int, reason string) error
}

// Ticker abstracts time.Ticker for tests.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

// Event is something that happened to the student's client.
type Event interface {
	apply(s session.Session) (session.Session, []session.Effect)
	source() model.IntegritySource
}

// VisibilityEvent reports the exam view becoming hidden or visible again.
type VisibilityEvent struct{ Hidden bool }

// FullscreenEvent reports fullscreen presentation turning on or off.
type FullscreenEvent struct{ Active bool }

// AnswerEvent selects a choice for a question, both 0-based.
type AnswerEvent struct{ Question, Choice int }

// SubmitEvent is the student pressing submit.
type SubmitEvent struct{}

// RetryEvent is the student retrying a failed submission.
type RetryEvent struct{}

func (e VisibilityEvent) apply(s session.Session) (session.Session, []session.Effect) {
	return session.VisibilityChanged(s, e.Hidden)
}
func (e FullscreenEvent) apply(s session.Session) (session.Session, []session.Effect) {
	return session.FullscreenChanged(s, e.Active)
}
func (e AnswerEvent) apply(s session.Session) (session.Session, []session.Effect) {
	return session.SelectAnswer(s, e.Question, e.Choice)
}
func (SubmitEvent) apply(s session.Session) (session.Session, []session.Effect) {
	return session.ManualSubmit(s)
}
func (RetryEvent) apply(s session.Session) (session.Session, []session.Effect) {
	return session.RetrySubmit(s)
}

func (VisibilityEvent) source() model.IntegritySource { return model.IntegritySourceVisibility }
func (FullscreenEvent) source() model.IntegritySource { return model.IntegritySourceFullscreen }
func (AnswerEvent) source() model.IntegritySource     { return "" }
func (SubmitEvent) source() model.IntegritySource     { return "" }
func (RetryEvent) source() model.IntegritySource      { return "" }

// Runner owns the clock, the signal sources and the network for one session.
// All session transitions happen on the Run goroutine.
type Runner struct {
	ui         UI
	fullscreen Fullscreen
	submitter  Submitter
	reporter   WarningReporter
	log        zerolog.Logger

	now       func() time.Time
	newTicker func(time.Duration) Ticker

	events chan Event
	done   chan struct{}
}

// NewRunner creates a Runner. fullscreen and reporter may be nil.
func NewRunner(ui UI, fullscreen Fullscreen, submitter Submitter, reporter WarningReporter, log zerolog.Logger) *Runner {
	return &Runner{
		ui:         ui,
		fullscreen: fullscreen,
		submitter:  submitter,
		reporter:   reporter,
		log:        log.With().Str("component", "exam_runner").Logger(),
		now:        time.Now,
		newTicker: func(d time.Duration) Ticker {
			return realTicker{t: time.NewTicker(d)}
		},
		events: make(chan Event, 16),
		done:   make(chan struct{}),
	}
}

// Send delivers an event to the running session. It returns false once the
// session has finished.
func (r *Runner) Send(ev Event) bool {
	select {
	case <-r.done:
		return false
	default:
	}
	select {
	case r.events <- ev:
		return true
	case <-r.done:
		return false
	}
}

// Done is closed when Run returns.
func (r *Runner) Done() <-chan struct{} { return r.done }

// Run starts the session for paper and blocks until it terminates or ctx
// is cancelled. It returns the final session.
func (r *Runner) Run(ctx context.Context, paper model.ExamPaper) (session.Session, error) {
	defer close(r.done)

	d := &driver{
		Runner:   r,
		ctx:      ctx,
		outcomes: make(chan session.Outcome, 1),
		granted:  make(chan bool, 1),
	}
	defer d.stopTicker()

	s, effects := session.Start(session.New(paper), r.now())
	d.apply(effects, "")
	r.log.Info().Str("exam_id", paper.ExamID.String()).Int("questions", s.QuestionCount).Msg("Session started")

	for s.State != session.Terminated {
		var source model.IntegritySource
		select {
		case <-ctx.Done():
			return s, ctx.Err()
		case <-d.tickC:
			s, effects = session.Tick(s)
		case granted := <-d.granted:
			if !granted {
				continue
			}
			s, effects = session.FullscreenChanged(s, true)
		case ev := <-r.events:
			source = ev.source()
			s, effects = ev.apply(s)
		case out := <-d.outcomes:
			if out.Err != nil {
				r.log.Warn().Err(out.Err).Msg("Submission failed")
			}
			s, effects = session.SubmitCompleted(s, out)
		}
		d.apply(effects, source)
	}

	r.log.Info().Str("reason", string(s.Reason)).Int("warnings", s.WarningCount).Msg("Session terminated")
	return s, nil
}

// driver holds the per-run resources the effects act on.
type driver struct {
	*Runner
	ctx      context.Context
	ticker   Ticker
	tickC    <-chan time.Time
	outcomes chan session.Outcome
	granted  chan bool
}

func (d *driver) apply(effects []session.Effect, source model.IntegritySource) {
	for _, eff := range effects {
		switch e := eff.(type) {
		case session.RequestFullscreen:
			d.requestFullscreen()
		case session.StartTicker:
			d.stopTicker()
			d.ticker = d.newTicker(e.Interval)
			d.tickC = d.ticker.C()
		case session.StopTicker:
			d.stopTicker()
		case session.RenderTimer:
			d.ui.RenderTimer(e.Text)
		case session.ShowWarning:
			d.ui.ShowWarning(e.Count, e.Text)
			d.report(source, e.Count)
		case session.Submit:
			sub := e.Submission
			go func() {
				out := d.submitter.Submit(d.ctx, sub)
				select {
				case d.outcomes <- out:
				case <-d.done:
				}
			}()
		case session.Alert:
			d.ui.Alert(e.Text)
		case session.Navigate:
			d.ui.Navigate(e.Target)
		}
	}
}

func (d *driver) requestFullscreen() {
	if d.fullscreen == nil {
		return
	}
	go func() {
		err := d.fullscreen.Request(d.ctx)
		if err != nil {
			d.log.Debug().Err(err).Msg("Fullscreen request denied")
		}
		select {
		case d.granted <- err == nil:
		case <-d.done:
		}
	}()
}

func (d *driver) report(source model.IntegritySource, count int) {
	if d.reporter == nil || source == "" {
		return
	}
	go func() {
		if err := d.reporter.Report(source, count, session.WarningText(count)); err != nil {
			d.log.Warn().Err(err).Str("source", string(source)).Msg("Failed to report warning")
		}
	}()
}

func (d *driver) stopTicker() {
	if d.ticker != nil {
		d.ticker.Stop()
		d.ticker = nil
	}
	d.tickC = nil
}
