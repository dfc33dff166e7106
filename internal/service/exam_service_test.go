package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/mcq-exam/internal/model"
	"github.com/stemsi/mcq-exam/internal/service"
	"github.com/stemsi/mcq-exam/internal/testutil/memstore"
)

type examFixture struct {
	db        *memstore.DB
	cache     *memstore.PaperCache
	exams     *service.ExamService
	questions *service.QuestionService
}

func newExamFixture() examFixture {
	db := memstore.New()
	cache := memstore.NewPaperCache()
	return examFixture{
		db:        db,
		cache:     cache,
		exams:     service.NewExamService(db.Exams, db.Questions, cache, zerolog.Nop()),
		questions: service.NewQuestionService(db.Exams, db.Questions, cache, zerolog.Nop()),
	}
}

func TestCreateExamStartsInactive(t *testing.T) {
	f := newExamFixture()
	exam, err := f.exams.Create(context.Background(), model.CreateExamRequest{Title: "Go", DurationMinutes: 15})
	if err != nil {
		t.Fatal(err)
	}
	if exam.IsActive || exam.ID == uuid.Nil {
		t.Fatalf("exam = %+v", exam)
	}

	active, _ := f.exams.ListActive(context.Background())
	if len(active) != 0 {
		t.Fatalf("inactive exam listed as active")
	}
}

func TestGetPaperCachesAndHidesAnswers(t *testing.T) {
	f := newExamFixture()
	ctx := context.Background()
	examID := seedExam(t, f.db, true, 3, 0)

	paper, err := f.exams.GetPaper(ctx, examID)
	if err != nil {
		t.Fatal(err)
	}
	if len(paper.Questions) != 2 || paper.DurationMinutes != 10 {
		t.Fatalf("paper = %+v", paper)
	}
	if paper.Questions[0].Text != "question A" || len(paper.Questions[0].Choices) != model.ChoiceCount {
		t.Fatalf("question order or choices lost: %+v", paper.Questions)
	}
	if !f.cache.Cached(examID) {
		t.Fatal("paper not cached after miss")
	}

	if _, err := f.exams.GetPaper(ctx, examID); err != nil {
		t.Fatal(err)
	}
	if f.cache.Hits != 1 {
		t.Fatalf("cache hits = %d, want 1", f.cache.Hits)
	}
}

func TestGetPaperUnavailable(t *testing.T) {
	f := newExamFixture()
	inactive := seedExam(t, f.db, false, 0)

	for name, id := range map[string]uuid.UUID{"inactive": inactive, "missing": uuid.New()} {
		if _, err := f.exams.GetPaper(context.Background(), id); !errors.Is(err, service.ErrExamUnavailable) {
			t.Errorf("%s: err = %v", name, err)
		}
	}
	if f.cache.Cached(inactive) {
		t.Fatal("inactive exam cached")
	}
}

func TestMutationsInvalidatePaper(t *testing.T) {
	f := newExamFixture()
	ctx := context.Background()
	examID := seedExam(t, f.db, true, 0)

	steps := []struct {
		name string
		run  func() error
	}{
		{name: "add question", run: func() error {
			_, err := f.questions.Add(ctx, examID, model.AddQuestionRequest{Text: "new", Choices: []string{"a", "b", "c", "d"}, Answer: 2})
			return err
		}},
		{name: "delete question", run: func() error {
			qs, _ := f.questions.ListByExam(ctx, examID)
			return f.questions.Delete(ctx, qs[0].ID)
		}},
		{name: "toggle", run: func() error {
			_, err := f.exams.ToggleActive(ctx, examID)
			return err
		}},
	}

	for _, step := range steps {
		if _, err := f.exams.GetPaper(ctx, examID); err != nil {
			t.Fatalf("%s: warm: %v", step.name, err)
		}
		if err := step.run(); err != nil {
			t.Fatalf("%s: %v", step.name, err)
		}
		if f.cache.Cached(examID) {
			t.Fatalf("%s left a stale paper", step.name)
		}
	}

	if _, err := f.exams.GetPaper(ctx, examID); !errors.Is(err, service.ErrExamUnavailable) {
		t.Fatalf("toggled-off exam still served: %v", err)
	}
}

func TestAddQuestionConvertsAnswer(t *testing.T) {
	f := newExamFixture()
	ctx := context.Background()
	examID := seedExam(t, f.db, false)

	q, err := f.questions.Add(ctx, examID, model.AddQuestionRequest{Text: "2+2?", Choices: []string{"3", "4", "5", "6"}, Answer: 2})
	if err != nil {
		t.Fatal(err)
	}
	if q.AnswerIndex != 1 {
		t.Fatalf("AnswerIndex = %d, want 1", q.AnswerIndex)
	}

	bad := []model.AddQuestionRequest{
		{Text: "x", Choices: []string{"a", "b", "c"}, Answer: 1},
		{Text: "x", Choices: []string{"a", "b", "c", "d"}, Answer: 0},
		{Text: "x", Choices: []string{"a", "b", "c", "d"}, Answer: 5},
	}
	for _, req := range bad {
		if _, err := f.questions.Add(ctx, examID, req); !errors.Is(err, service.ErrInvalidQuestion) {
			t.Errorf("Add(%+v) err = %v", req, err)
		}
	}

	if _, err := f.questions.Add(ctx, uuid.New(), model.AddQuestionRequest{Text: "x", Choices: []string{"a", "b", "c", "d"}, Answer: 1}); !errors.Is(err, service.ErrExamNotFound) {
		t.Fatalf("missing exam err = %v", err)
	}
}

func TestDeleteExamCascadesQuestionsKeepsResults(t *testing.T) {
	f := newExamFixture()
	ctx := context.Background()
	examID := seedExam(t, f.db, true, 0, 1, 2)
	other := seedExam(t, f.db, true, 3)

	scoring := service.NewScoringService(f.db.Exams, f.db.Questions, f.db.Results, nil, zerolog.Nop())
	if _, err := scoring.Submit(ctx, examID, service.SubmitInput{Answers: []*int{ip(0)}}); err != nil {
		t.Fatal(err)
	}

	if err := f.exams.Delete(ctx, examID); err != nil {
		t.Fatal(err)
	}

	qs, _ := f.db.Questions.ListByExam(ctx, examID)
	if len(qs) != 0 {
		t.Fatalf("%d questions survived the exam", len(qs))
	}
	results, _ := f.db.Results.List(ctx)
	if len(results) != 1 {
		t.Fatalf("results = %d, want the submission kept", len(results))
	}
	if results[0].ExamID != uuid.Nil || results[0].Score != 1 || results[0].Total != 3 {
		t.Fatalf("kept result = %+v", results[0])
	}
	if qs, _ := f.db.Questions.ListByExam(ctx, other); len(qs) != 1 {
		t.Fatal("cascade touched another exam")
	}
	if err := f.exams.Delete(ctx, examID); !errors.Is(err, service.ErrExamNotFound) {
		t.Fatalf("second delete err = %v", err)
	}
}

func TestQuestionDeleteNotFound(t *testing.T) {
	f := newExamFixture()
	if err := f.questions.Delete(context.Background(), uuid.New()); !errors.Is(err, service.ErrQuestionNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestPrewarmPapersCachesOnlyActive(t *testing.T) {
	f := newExamFixture()
	active := seedExam(t, f.db, true, 1)
	inactive := seedExam(t, f.db, false, 1)

	n, err := f.exams.PrewarmPapers(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 || !f.cache.Cached(active) || f.cache.Cached(inactive) {
		t.Fatalf("warmed = %d active cached = %v inactive cached = %v", n, f.cache.Cached(active), f.cache.Cached(inactive))
	}
}

// racingCache runs onSet after storing a paper and can fail invalidations,
// standing in for a deactivate that lands between the read and the write.
type racingCache struct {
	*memstore.PaperCache
	onSet         func()
	invalidateErr error
}

func (c *racingCache) Set(ctx context.Context, paper *model.ExamPaper) error {
	if err := c.PaperCache.Set(ctx, paper); err != nil {
		return err
	}
	if c.onSet != nil {
		fn := c.onSet
		c.onSet = nil
		fn()
	}
	return nil
}

func (c *racingCache) Invalidate(ctx context.Context, examID uuid.UUID) error {
	if c.invalidateErr != nil {
		return c.invalidateErr
	}
	return c.PaperCache.Invalidate(ctx, examID)
}

func TestGetPaperDeactivatedWhileCaching(t *testing.T) {
	ctx := context.Background()
	db := memstore.New()
	cache := &racingCache{PaperCache: memstore.NewPaperCache()}
	exams := service.NewExamService(db.Exams, db.Questions, cache, zerolog.Nop())
	examID := seedExam(t, db, true, 0, 1)

	toggleErr := errors.New("not run")
	cache.onSet = func() { _, toggleErr = db.Exams.ToggleActive(ctx, examID) }

	if _, err := exams.GetPaper(ctx, examID); err != nil {
		t.Fatal(err)
	}
	if toggleErr != nil {
		t.Fatalf("toggle: %v", toggleErr)
	}
	if !cache.Cached(examID) {
		t.Fatal("expected the paper written during the race to stay cached")
	}
	if _, err := exams.GetPaper(ctx, examID); !errors.Is(err, service.ErrExamUnavailable) {
		t.Fatalf("inactive exam served from cache: err = %v", err)
	}
}

func TestGetPaperInactiveAfterFailedInvalidate(t *testing.T) {
	ctx := context.Background()
	db := memstore.New()
	cache := &racingCache{PaperCache: memstore.NewPaperCache()}
	exams := service.NewExamService(db.Exams, db.Questions, cache, zerolog.Nop())
	examID := seedExam(t, db, true, 2)

	if _, err := exams.GetPaper(ctx, examID); err != nil {
		t.Fatal(err)
	}
	cache.invalidateErr = errors.New("redis down")
	if _, err := exams.ToggleActive(ctx, examID); err != nil {
		t.Fatal(err)
	}
	if !cache.Cached(examID) {
		t.Fatal("expected a stale paper after the failed invalidation")
	}
	if _, err := exams.GetPaper(ctx, examID); !errors.Is(err, service.ErrExamUnavailable) {
		t.Fatalf("inactive exam served from cache: err = %v", err)
	}
}

func TestGetPaperCacheHitUsesCurrentExamRow(t *testing.T) {
	ctx := context.Background()
	f := newExamFixture()
	examID := seedExam(t, f.db, true, 0)

	if _, err := f.exams.GetPaper(ctx, examID); err != nil {
		t.Fatal(err)
	}
	stale, _ := f.cache.Get(ctx, examID)
	stale.Title = "stale title"
	if err := f.cache.Set(ctx, stale); err != nil {
		t.Fatal(err)
	}

	paper, err := f.exams.GetPaper(ctx, examID)
	if err != nil {
		t.Fatal(err)
	}
	if paper.Title != "Networking" || len(paper.Questions) != 1 {
		t.Fatalf("paper = %+v", paper)
	}
}
