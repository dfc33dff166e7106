package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/mcq-exam/internal/model"
	"github.com/stemsi/mcq-exam/internal/response"
	"github.com/stemsi/mcq-exam/internal/service"
	"github.com/stemsi/mcq-exam/internal/validator"
)

// SubmitHandler accepts final exam submissions.
type SubmitHandler struct {
	scoring *service.ScoringService
	log     zerolog.Logger
}

// NewSubmitHandler creates a new SubmitHandler.
func NewSubmitHandler(scoring *service.ScoringService, log zerolog.Logger) *SubmitHandler {
	return &SubmitHandler{
		scoring: scoring,
		log:     log.With().Str("component", "submit_handler").Logger(),
	}
}

// Submit godoc
// POST /exams/:id/submit
// Scores a submission. Programmatic clients get {ok, redirect}; browsers
// get a 303 to the redirect target.
func (h *SubmitHandler) Submit(c *gin.Context) {
	xhr := wantsJSON(c)

	examID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.redirect(c, xhr, false, LandingPath)
		return
	}

	var req model.SubmitRequest
	if fields := validator.BindBody(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrInvalidPayload, fields)
		return
	}

	answers, err := DecodeAnswers(req.AnswersJSON)
	if err != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrInvalidPayload, map[string]string{
			"answersJson": "answersJson must be a JSON list of choice indexes or nulls",
		})
		return
	}

	redirect, err := h.scoring.Submit(c.Request.Context(), examID, service.SubmitInput{
		Name:         strings.TrimSpace(req.Name),
		Roll:         strings.TrimSpace(req.Roll),
		Answers:      answers,
		Reason:       model.ParseSubmitReason(req.Reason),
		WarningCount: req.Warnings,
	})
	if errors.Is(err, service.ErrExamUnavailable) {
		h.redirect(c, xhr, false, LandingPath)
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("exam_id", examID.String()).Msg("Submission failed")
		c.JSON(http.StatusInternalServerError, model.SubmitResponse{OK: false})
		return
	}

	h.redirect(c, xhr, true, redirect)
}

func (h *SubmitHandler) redirect(c *gin.Context, xhr, ok bool, target string) {
	if xhr {
		c.JSON(http.StatusOK, model.SubmitResponse{OK: ok, Redirect: target})
		return
	}
	c.Redirect(http.StatusSeeOther, target)
}

// ErrAnswersMissing is returned for an absent or blank answers payload.
var ErrAnswersMissing = errors.New("answers payload is missing")

// DecodeAnswers parses the serialized answers list. A missing payload and
// anything that is not a list of integers or nulls is an error; a literal
// "[]" is a valid empty list.
func DecodeAnswers(raw string) ([]*int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrAnswersMissing
	}
	var answers []*int
	if err := json.Unmarshal([]byte(raw), &answers); err != nil {
		return nil, err
	}
	if answers == nil {
		return nil, errors.New("answers must be a list")
	}
	return answers, nil
}

// wantsJSON reports whether the caller is a programmatic client.
func wantsJSON(c *gin.Context) bool {
	if strings.EqualFold(c.GetHeader("X-Requested-With"), "XMLHttpRequest") {
		return true
	}
	return strings.Contains(c.GetHeader("Accept"), "application/json")
}
