package handler

import (
	"encoding/csv"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stemsi/mcq-exam/internal/service"
)

func TestExportCSV(t *testing.T) {
	f := newFixture(t)
	examID := f.seed(t, true, 0, 1)
	f.do(formRequest("/exams/"+examID.String()+"/submit", submitForm("[0,1]")))

	w := f.do(httptest.NewRequest(http.MethodGet, "/admin/results/export", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("content type = %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); cd != `attachment; filename="exam_results.csv"` {
		t.Fatalf("content disposition = %q", cd)
	}

	rows, err := csv.NewReader(w.Body).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || strings.Join(rows[0], ",") != strings.Join(service.CSVHeader, ",") {
		t.Fatalf("rows = %v", rows)
	}
	if rows[1][0] != "Ada" || rows[1][1] != "R-7" || rows[1][2] != "2" {
		t.Fatalf("row = %v", rows[1])
	}
}

func TestResultDetailAndDelete(t *testing.T) {
	f := newFixture(t)
	examID := f.seed(t, true, 2)
	f.do(formRequest("/exams/"+examID.String()+"/submit", submitForm("[2]")))

	results, _ := f.db.Results.List(t.Context())
	id := results[0].ID.String()

	var detail service.ResultDetail
	w := f.do(httptest.NewRequest(http.MethodGet, "/admin/results/"+id, nil))
	decodeEnvelope(t, w, &detail)
	if detail.Result == nil || detail.Result.Score != 1 || len(detail.Questions) != 1 {
		t.Fatalf("detail = %+v", detail)
	}

	if w := f.do(httptest.NewRequest(http.MethodDelete, "/admin/results/"+id, nil)); w.Code != http.StatusOK {
		t.Fatalf("delete status = %d", w.Code)
	}
	if w := f.do(httptest.NewRequest(http.MethodGet, "/admin/results/"+id, nil)); w.Code != http.StatusNotFound {
		t.Fatalf("get after delete status = %d", w.Code)
	}
}
