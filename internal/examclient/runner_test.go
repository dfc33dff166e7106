package examclient

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/mcq-exam/internal/model"
	"github.com/stemsi/mcq-exam/internal/session"
)

type manualTicker struct{ ch chan time.Time }

func (m *manualTicker) C() <-chan time.Time { return m.ch }
func (m *manualTicker) Stop()               {}

type recordingUI struct {
	mu        sync.Mutex
	timers    []string
	warnings  []int
	alerts    []string
	navigated chan string
}

func newRecordingUI() *recordingUI { return &recordingUI{navigated: make(chan string, 1)} }

func (u *recordingUI) RenderTimer(text string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.timers = append(u.timers, text)
}

func (u *recordingUI) ShowWarning(count int, _ string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.warnings = append(u.warnings, count)
}

func (u *recordingUI) Alert(text string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.alerts = append(u.alerts, text)
}

func (u *recordingUI) Navigate(target string) { u.navigated <- target }

func (u *recordingUI) alertCount() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.alerts)
}

// scriptedSubmitter answers submissions from a list of outcomes.
type scriptedSubmitter struct {
	mu       sync.Mutex
	outcomes []session.Outcome
	subs     []session.Submission
}

func (s *scriptedSubmitter) Submit(_ context.Context, sub session.Submission) session.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, sub)
	out := s.outcomes[0]
	if len(s.outcomes) > 1 {
		s.outcomes = s.outcomes[1:]
	}
	return out
}

func (s *scriptedSubmitter) submissions() []session.Submission {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]session.Submission(nil), s.subs...)
}

type recordingReporter struct {
	mu      sync.Mutex
	sources []model.IntegritySource
}

func (r *recordingReporter) Report(source model.IntegritySource, _ int, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources = append(r.sources, source)
	return nil
}

func (r *recordingReporter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sources)
}

type deniedFullscreen struct{}

func (deniedFullscreen) Request(context.Context) error { return errors.New("not supported") }

func testPaper(minutes, questions int) model.ExamPaper {
	p := model.ExamPaper{ExamID: uuid.New(), Title: "Algorithms", DurationMinutes: minutes}
	for i := 0; i < questions; i++ {
		p.Questions = append(p.Questions, model.QuestionForStudent{ID: uuid.New(), Choices: []string{"a", "b", "c", "d"}})
	}
	return p
}

type harness struct {
	runner *Runner
	ui     *recordingUI
	sub    *scriptedSubmitter
	rep    *recordingReporter
	ticker *manualTicker
	result chan session.Session
}

func startRunner(t *testing.T, paper model.ExamPaper, outcomes ...session.Outcome) *harness {
	t.Helper()
	h := &harness{
		ui:     newRecordingUI(),
		sub:    &scriptedSubmitter{outcomes: outcomes},
		rep:    &recordingReporter{},
		ticker: &manualTicker{ch: make(chan time.Time)},
		result: make(chan session.Session, 1),
	}
	h.runner = NewRunner(h.ui, deniedFullscreen{}, h.sub, h.rep, zerolog.Nop())
	h.runner.newTicker = func(time.Duration) Ticker { return h.ticker }

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	go func() {
		s, err := h.runner.Run(ctx, paper)
		if err != nil {
			t.Errorf("Run: %v", err)
		}
		h.result <- s
	}()
	return h
}

func (h *harness) wait(t *testing.T) (string, session.Session) {
	t.Helper()
	select {
	case target := <-h.ui.navigated:
		return target, <-h.result
	case <-time.After(3 * time.Second):
		t.Fatal("session never navigated")
		return "", session.Session{}
	}
}

func TestRunnerSubmitsOnTimeUp(t *testing.T) {
	h := startRunner(t, testPaper(1, 2), session.Outcome{OK: true, Redirect: "/done"})
	h.runner.Send(AnswerEvent{Question: 1, Choice: 3})

	for i := 0; i < 60; i++ {
		h.ticker.ch <- time.Now()
	}

	target, s := h.wait(t)
	if target != "/done" || s.Reason != model.SubmitReasonTimeUp || s.State != session.Terminated {
		t.Fatalf("target = %q session = %+v", target, s)
	}
	subs := h.sub.submissions()
	if len(subs) != 1 {
		t.Fatalf("submissions = %d, want 1", len(subs))
	}
	if len(subs[0].Answers) != 2 || subs[0].Answers[0] != nil || *subs[0].Answers[1] != 3 {
		t.Fatalf("answers = %v", subs[0].Answers)
	}
	if h.ui.timers[0] != "1:00" || h.ui.timers[len(h.ui.timers)-1] != "0:00" {
		t.Fatalf("timer renders = %v", h.ui.timers)
	}
}

func TestRunnerForcesSubmissionAfterWarnings(t *testing.T) {
	h := startRunner(t, testPaper(10, 1), session.Outcome{OK: true, Redirect: "/done"})

	for i := 0; i < session.WarningThreshold; i++ {
		h.runner.Send(VisibilityEvent{Hidden: true})
		h.runner.Send(VisibilityEvent{Hidden: false})
	}

	_, s := h.wait(t)
	if s.Reason != model.SubmitReasonTooManyWarnings || s.WarningCount != session.WarningThreshold {
		t.Fatalf("session = %+v", s)
	}
	if n := len(h.sub.submissions()); n != 1 {
		t.Fatalf("submissions = %d, want 1", n)
	}

	deadline := time.Now().Add(time.Second)
	for h.rep.count() < session.WarningThreshold && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if n := h.rep.count(); n != session.WarningThreshold {
		t.Fatalf("reported warnings = %d", n)
	}
}

func TestRunnerFullscreenLossWarns(t *testing.T) {
	h := startRunner(t, testPaper(10, 1), session.Outcome{OK: true, Redirect: "/done"})

	// Never having fullscreen is not a warning.
	h.runner.Send(FullscreenEvent{Active: false})
	h.runner.Send(FullscreenEvent{Active: true})
	h.runner.Send(FullscreenEvent{Active: false})
	h.runner.Send(SubmitEvent{})

	_, s := h.wait(t)
	if s.WarningCount != 1 || s.Reason != model.SubmitReasonManual {
		t.Fatalf("session = %+v", s)
	}
}

func TestRunnerRetriesOnlyOnRequest(t *testing.T) {
	h := startRunner(t, testPaper(10, 1),
		session.Outcome{Err: errors.New("connection refused")},
		session.Outcome{OK: true, Redirect: "/done"},
	)
	h.runner.Send(SubmitEvent{})

	deadline := time.Now().Add(2 * time.Second)
	for h.ui.alertCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if h.ui.alertCount() != 1 {
		t.Fatal("failure was not alerted")
	}
	if n := len(h.sub.submissions()); n != 1 {
		t.Fatalf("submissions before retry = %d", n)
	}

	h.runner.Send(SubmitEvent{})
	h.runner.Send(RetryEvent{})

	target, _ := h.wait(t)
	if target != "/done" {
		t.Fatalf("target = %q", target)
	}
	if n := len(h.sub.submissions()); n != 2 {
		t.Fatalf("submissions = %d, want 2", n)
	}
}

func TestRunnerStopsOnCancel(t *testing.T) {
	r := NewRunner(newRecordingUI(), nil, &scriptedSubmitter{}, nil, zerolog.Nop())
	r.newTicker = func(time.Duration) Ticker { return &manualTicker{ch: make(chan time.Time)} }

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.Run(ctx, testPaper(1, 1)); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
	if r.Send(SubmitEvent{}) {
		t.Fatal("Send succeeded after Run returned")
	}
}
