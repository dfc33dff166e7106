package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/mcq-exam/internal/model"
	"github.com/stemsi/mcq-exam/internal/response"
	"github.com/stemsi/mcq-exam/internal/service"
	"github.com/stemsi/mcq-exam/internal/testutil/memstore"
	"github.com/stemsi/mcq-exam/internal/validator"
)

func init() {
	gin.SetMode(gin.TestMode)
	validator.Setup()
}

type fixture struct {
	db      *memstore.DB
	cache   *memstore.PaperCache
	monitor *memstore.Monitor
	queue   *memstore.Queue
	monitorHandler *MonitorHandler
	engine  *gin.Engine
}

// newFixture wires every handler on the public paths, without admin auth.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := zerolog.Nop()
	f := &fixture{
		db:      memstore.New(),
		cache:   memstore.NewPaperCache(),
		monitor: &memstore.Monitor{},
		queue:   &memstore.Queue{},
	}

	examSvc := service.NewExamService(f.db.Exams, f.db.Questions, f.cache, log)
	questionSvc := service.NewQuestionService(f.db.Exams, f.db.Questions, f.cache, log)
	resultSvc := service.NewResultService(f.db.Results, f.db.Questions, log)
	scoringSvc := service.NewScoringService(f.db.Exams, f.db.Questions, f.db.Results, f.monitor, log)
	integritySvc := service.NewIntegrityService(f.queue, f.monitor, log)
	monitorSvc := service.NewMonitorService(f.db.Results, f.db)

	exams := NewExamHandler(examSvc, log)
	submit := NewSubmitHandler(scoringSvc, log)
	questions := NewQuestionHandler(questionSvc, log)
	results := NewResultHandler(resultSvc, time.UTC, log)
	f.monitorHandler = NewMonitorHandler(examSvc, monitorSvc, f.monitor, log)
	wsHandler := NewWSHandler(examSvc, integritySvc, log, nil)

	r := gin.New()
	r.GET("/", exams.Landing)
	r.GET("/exams/:id", exams.GetPaper)
	r.POST("/exams/:id/submit", submit.Submit)
	r.GET("/exams/:id/thankyou", exams.ThankYou)
	r.GET("/ws/v1/exams/:id/stream", wsHandler.IntegrityStream)

	admin := r.Group("/admin")
	admin.GET("/exams", exams.ListExams)
	admin.POST("/exams", exams.CreateExam)
	admin.POST("/exams/:id/toggle", exams.ToggleExam)
	admin.DELETE("/exams/:id", exams.DeleteExam)
	admin.GET("/exams/:id/monitor", f.monitorHandler.MonitorExamSSE)
	admin.GET("/exams/:id/questions", questions.ListQuestions)
	admin.POST("/exams/:id/questions", questions.AddQuestion)
	admin.DELETE("/questions/:qid", questions.DeleteQuestion)
	admin.GET("/results", results.ListResults)
	admin.GET("/results/export", results.ExportCSV)
	admin.GET("/results/:rid", results.GetResult)
	admin.DELETE("/results/:rid", results.DeleteResult)

	f.engine = r
	return f
}

// seed creates an exam with one question per answer index.
func (f *fixture) seed(t *testing.T, active bool, answerIndexes ...int) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	exam := &model.Exam{Title: "Operating Systems", DurationMinutes: 20}
	if err := f.db.Exams.Create(ctx, exam); err != nil {
		t.Fatal(err)
	}
	if active {
		if _, err := f.db.Exams.ToggleActive(ctx, exam.ID); err != nil {
			t.Fatal(err)
		}
	}
	for _, a := range answerIndexes {
		q := &model.Question{ExamID: exam.ID, Text: "pick one", Choices: []string{"a", "b", "c", "d"}, AnswerIndex: a}
		if err := f.db.Questions.Create(ctx, q); err != nil {
			t.Fatal(err)
		}
	}
	return exam.ID
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func formRequest(target string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder, data any) response.Response {
	t.Helper()
	var env struct {
		Data     json.RawMessage     `json:"data"`
		Error    *response.ErrorBody `json:"error"`
		Metadata response.Metadata   `json:"metadata"`
	}
	body, _ := io.ReadAll(w.Body)
	if err := json.Unmarshal(body, &env); err != nil {
		t.Fatalf("decode %s: %v", body, err)
	}
	if data != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, data); err != nil {
			t.Fatalf("decode data %s: %v", env.Data, err)
		}
	}
	return response.Response{Error: env.Error, Metadata: env.Metadata}
}
