package handler

import (
	"bytes"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/mcq-exam/internal/response"
	"github.com/stemsi/mcq-exam/internal/service"
)

// ResultHandler serves result review and export.
type ResultHandler struct {
	resultService *service.ResultService
	loc           *time.Location
	log           zerolog.Logger
}

// NewResultHandler creates a new ResultHandler. Export timestamps are
// rendered in loc.
func NewResultHandler(resultService *service.ResultService, loc *time.Location, log zerolog.Logger) *ResultHandler {
	return &ResultHandler{
		resultService: resultService,
		loc:           loc,
		log:           log.With().Str("component", "result_handler").Logger(),
	}
}

// ListResults godoc
// GET /api/v1/admin/results
func (h *ResultHandler) ListResults(c *gin.Context) {
	results, err := h.resultService.List(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list results")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"results": results})
}

// GetResult godoc
// GET /api/v1/admin/results/:rid
func (h *ResultHandler) GetResult(c *gin.Context) {
	id, ok := parseID(c, "rid")
	if !ok {
		return
	}

	detail, err := h.resultService.Detail(c.Request.Context(), id)
	if errors.Is(err, service.ErrResultNotFound) {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("result_id", id.String()).Msg("Failed to load result")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, detail)
}

// DeleteResult godoc
// DELETE /api/v1/admin/results/:rid
func (h *ResultHandler) DeleteResult(c *gin.Context) {
	id, ok := parseID(c, "rid")
	if !ok {
		return
	}

	err := h.resultService.Delete(c.Request.Context(), id)
	if errors.Is(err, service.ErrResultNotFound) {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": id})
}

// ExportCSV godoc
// GET /api/v1/admin/results/export
// Downloads every result as exam_results.csv.
func (h *ResultHandler) ExportCSV(c *gin.Context) {
	// Buffered so a mid-export failure still yields a clean 500.
	var buf bytes.Buffer
	if err := h.resultService.WriteCSV(c.Request.Context(), &buf, h.loc); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="exam_results.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}
