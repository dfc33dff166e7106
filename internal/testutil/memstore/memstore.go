// Package memstore provides in-memory stand-ins for the Postgres
// repositories, the paper cache and the Redis publishers.
//
// It is test-only: nothing outside _test.go files may import it, and the
// server and commands never link it.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stemsi/mcq-exam/internal/model"
)

// DB holds exams, questions and results. Deleting an exam cascades to its
// questions and clears the exam reference of its results, like the foreign
// keys do.
type DB struct {
	mu        sync.Mutex
	exams     []model.Exam
	questions []model.Question
	results   []model.Result
	warnings  map[uuid.UUID]map[string]int64
	clock     time.Time

	Exams     *Exams
	Questions *Questions
	Results   *Results
}

// New returns an empty DB.
func New() *DB {
	db := &DB{
		warnings: map[uuid.UUID]map[string]int64{},
		clock:    time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC),
	}
	db.Exams = &Exams{db: db}
	db.Questions = &Questions{db: db}
	db.Results = &Results{db: db}
	return db
}

// tick returns a strictly increasing timestamp so ordering is deterministic.
func (db *DB) tick() time.Time {
	db.clock = db.clock.Add(time.Second)
	return db.clock
}

// AddWarning records count warnings for a roll number.
func (db *DB) AddWarning(examID uuid.UUID, roll string, count int64) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.warnings[examID] == nil {
		db.warnings[examID] = map[string]int64{}
	}
	db.warnings[examID][roll] += count
}

// CountByStudent implements service.IntegrityCounter.
func (db *DB) CountByStudent(_ context.Context, examID uuid.UUID) (map[string]int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	out := make(map[string]int64, len(db.warnings[examID]))
	for k, v := range db.warnings[examID] {
		out[k] = v
	}
	return out, nil
}

// ─── Exams ──────────────────────────────────────────────────────────

type Exams struct {
	db *DB
}

func (r *Exams) GetByID(_ context.Context, id uuid.UUID) (*model.Exam, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, e := range r.db.exams {
		if e.ID == id {
			out := e
			return &out, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *Exams) List(_ context.Context) ([]model.Exam, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []model.Exam
	for i := len(r.db.exams) - 1; i >= 0; i-- {
		out = append(out, r.db.exams[i])
	}
	return out, nil
}

func (r *Exams) Create(_ context.Context, e *model.Exam) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	e.ID = uuid.New()
	e.CreatedAt = r.db.tick()
	e.UpdatedAt = e.CreatedAt
	r.db.exams = append(r.db.exams, *e)
	return nil
}

func (r *Exams) ToggleActive(_ context.Context, id uuid.UUID) (*model.Exam, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for i := range r.db.exams {
		if r.db.exams[i].ID == id {
			r.db.exams[i].IsActive = !r.db.exams[i].IsActive
			r.db.exams[i].UpdatedAt = r.db.tick()
			out := r.db.exams[i]
			return &out, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *Exams) Delete(_ context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	idx := -1
	for i, e := range r.db.exams {
		if e.ID == id {
			idx = i
		}
	}
	if idx < 0 {
		return pgx.ErrNoRows
	}
	r.db.exams = append(r.db.exams[:idx], r.db.exams[idx+1:]...)

	questions := r.db.questions[:0]
	for _, q := range r.db.questions {
		if q.ExamID != id {
			questions = append(questions, q)
		}
	}
	r.db.questions = questions

	for i := range r.db.results {
		if r.db.results[i].ExamID == id {
			r.db.results[i].ExamID = uuid.Nil
			r.db.results[i].ExamTitle = ""
		}
	}
	delete(r.db.warnings, id)
	return nil
}

// ─── Questions ──────────────────────────────────────────────────────

type Questions struct {
	db  *DB
	seq int
}

func (r *Questions) ListByExam(_ context.Context, examID uuid.UUID) ([]model.Question, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []model.Question
	for _, q := range r.db.questions {
		if q.ExamID == examID {
			out = append(out, q)
		}
	}
	return out, nil
}

func (r *Questions) GetByID(_ context.Context, id uuid.UUID) (*model.Question, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, q := range r.db.questions {
		if q.ID == id {
			out := q
			return &out, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *Questions) Create(_ context.Context, q *model.Question) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.seq++
	q.ID = uuid.New()
	q.OrderNum = r.seq
	r.db.questions = append(r.db.questions, *q)
	return nil
}

func (r *Questions) Delete(_ context.Context, id uuid.UUID) (uuid.UUID, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for i, q := range r.db.questions {
		if q.ID == id {
			r.db.questions = append(r.db.questions[:i], r.db.questions[i+1:]...)
			return q.ExamID, nil
		}
	}
	return uuid.Nil, pgx.ErrNoRows
}

// ─── Results ────────────────────────────────────────────────────────

type Results struct {
	db *DB

	// CreateErr, when set, fails every Create.
	CreateErr error
}

func (r *Results) Create(_ context.Context, res *model.Result) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.CreateErr != nil {
		return r.CreateErr
	}
	res.ID = uuid.New()
	r.db.results = append(r.db.results, *res)
	return nil
}

func (r *Results) GetByID(_ context.Context, id uuid.UUID) (*model.Result, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, res := range r.db.results {
		if res.ID == id {
			out := res
			return &out, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *Results) List(_ context.Context) ([]model.Result, error) {
	return r.filter(func(model.Result) bool { return true }), nil
}

func (r *Results) ListByExam(_ context.Context, examID uuid.UUID) ([]model.Result, error) {
	return r.filter(func(res model.Result) bool { return res.ExamID == examID }), nil
}

// filter returns matching results in reverse insertion order.
func (r *Results) filter(keep func(model.Result) bool) []model.Result {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []model.Result
	for i := len(r.db.results) - 1; i >= 0; i-- {
		if keep(r.db.results[i]) {
			out = append(out, r.db.results[i])
		}
	}
	return out
}

func (r *Results) Delete(_ context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for i, res := range r.db.results {
		if res.ID == id {
			r.db.results = append(r.db.results[:i], r.db.results[i+1:]...)
			return nil
		}
	}
	return pgx.ErrNoRows
}

// Count returns the number of stored results.
func (r *Results) Count() int {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return len(r.db.results)
}
