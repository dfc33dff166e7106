package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/mcq-exam/internal/model"
	"github.com/stemsi/mcq-exam/internal/response"
	"github.com/stemsi/mcq-exam/internal/service"
	"github.com/stemsi/mcq-exam/internal/validator"
)

// LandingPath is the neutral landing state students are sent to when an
// exam cannot be taken.
const LandingPath = "/"

// ThankYouMessage is the confirmation shown after a submission.
const ThankYouMessage = "Thank you! Your answers have been submitted."

// ExamHandler serves the public exam pages and admin exam management.
type ExamHandler struct {
	examService *service.ExamService
	log         zerolog.Logger
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(examService *service.ExamService, log zerolog.Logger) *ExamHandler {
	return &ExamHandler{
		examService: examService,
		log:         log.With().Str("component", "exam_handler").Logger(),
	}
}

// examSummary is the public listing entry.
type examSummary struct {
	ID              uuid.UUID `json:"id"`
	Title           string    `json:"title"`
	DurationMinutes int       `json:"duration_minutes"`
}

// Landing godoc
// GET /
// Lists the exams that can be taken right now.
func (h *ExamHandler) Landing(c *gin.Context) {
	exams, err := h.examService.ListActive(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list active exams")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	out := make([]examSummary, len(exams))
	for i, e := range exams {
		out[i] = examSummary{ID: e.ID, Title: e.Title, DurationMinutes: e.DurationMinutes}
	}
	response.Success(c, http.StatusOK, gin.H{"exams": out})
}

// GetPaper godoc
// GET /exams/:id
// Returns the exam and its questions without answer keys. Missing or
// inactive exams redirect to the landing page.
func (h *ExamHandler) GetPaper(c *gin.Context) {
	examID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.Redirect(http.StatusFound, LandingPath)
		return
	}

	paper, err := h.examService.GetPaper(c.Request.Context(), examID)
	if errors.Is(err, service.ErrExamUnavailable) {
		c.Redirect(http.StatusFound, LandingPath)
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("exam_id", examID.String()).Msg("Failed to load exam paper")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, paper)
}

// ThankYou godoc
// GET /exams/:id/thankyou
func (h *ExamHandler) ThankYou(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{
		"exam_id": c.Param("id"),
		"message": ThankYouMessage,
	})
}

// ListExams godoc
// GET /api/v1/admin/exams
func (h *ExamHandler) ListExams(c *gin.Context) {
	exams, err := h.examService.List(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list exams")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"exams": exams})
}

// CreateExam godoc
// POST /api/v1/admin/exams
// Creates a new inactive exam.
func (h *ExamHandler) CreateExam(c *gin.Context) {
	var req model.CreateExamRequest
	if fields := validator.BindBody(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exam, err := h.examService.Create(c.Request.Context(), req)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to create exam")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"exam": exam})
}

// ToggleExam godoc
// POST /api/v1/admin/exams/:id/toggle
func (h *ExamHandler) ToggleExam(c *gin.Context) {
	examID, ok := parseID(c, "id")
	if !ok {
		return
	}

	exam, err := h.examService.ToggleActive(c.Request.Context(), examID)
	if errors.Is(err, service.ErrExamNotFound) {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("exam_id", examID.String()).Msg("Failed to toggle exam")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"exam": exam})
}

// DeleteExam godoc
// DELETE /api/v1/admin/exams/:id
// Deletes the exam together with its questions and results.
func (h *ExamHandler) DeleteExam(c *gin.Context) {
	examID, ok := parseID(c, "id")
	if !ok {
		return
	}

	err := h.examService.Delete(c.Request.Context(), examID)
	if errors.Is(err, service.ErrExamNotFound) {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("exam_id", examID.String()).Msg("Failed to delete exam")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": examID})
}

// parseID reads a UUID path parameter, writing a 400 when it is malformed.
func parseID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}
