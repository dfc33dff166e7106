package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/mcq-exam/internal/response"
	"github.com/stemsi/mcq-exam/internal/service"
)

const (
	keepAliveInterval = 30 * time.Second
	snapshotTimeout   = 5 * time.Second // prevent slow queries from blocking the SSE loop
)

var pingPayload = []byte(`{"type":"ping"}`)

type MonitorHandler struct {
	examService    *service.ExamService
	monitorService *service.MonitorService
	subscriber     service.MonitorSubscriber
	keepAlive      time.Duration
	log            zerolog.Logger
}

func NewMonitorHandler(
	examService *service.ExamService,
	monitorService *service.MonitorService,
	subscriber service.MonitorSubscriber,
	log zerolog.Logger,
) *MonitorHandler {
	return &MonitorHandler{
		examService:    examService,
		monitorService: monitorService,
		subscriber:     subscriber,
		keepAlive:      keepAliveInterval,
		log:            log.With().Str("component", "monitor_handler").Logger(),
	}
}

// MonitorExamSSE godoc
// GET /api/v1/admin/exams/:id/monitor
// Streams a snapshot followed by live submissions and integrity warnings.
func (h *MonitorHandler) MonitorExamSSE(c *gin.Context) {
	examID, ok := parseID(c, "id")
	if !ok {
		return
	}

	exam, err := h.examService.GetByID(c.Request.Context(), examID)
	if errors.Is(err, service.ErrExamNotFound) {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	reqCtx := c.Request.Context()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	// Subscribe before the snapshot so nothing published in between is lost.
	sub := h.subscriber.Subscribe(reqCtx, examID)
	defer sub.Close()
	ch := sub.Channel()

	h.sendSnapshot(c, reqCtx, examID, exam.Title)

	keepAlive := time.NewTicker(h.keepAlive)
	defer keepAlive.Stop()

	log := h.log.With().Str("exam_id", examID.String()).Logger()
	log.Info().Msg("Admin attached to live monitor SSE")

	c.Stream(func(w io.Writer) bool {
		select {
		case <-reqCtx.Done():
			log.Info().Msg("Admin disconnected from live monitor SSE")
			return false
		case msg, open := <-ch:
			if !open {
				return false
			}
			// Forward raw JSON; payloads are already MonitorEvent envelopes.
			writeData(w, []byte(msg.Payload))
		case <-keepAlive.C:
			writeData(w, pingPayload)
		}
		return true
	})
}

func (h *MonitorHandler) sendSnapshot(c *gin.Context, parent context.Context, examID uuid.UUID, title string) {
	ctx, cancel := context.WithTimeout(parent, snapshotTimeout)
	defer cancel()

	snap, err := h.monitorService.Snapshot(ctx, examID)
	if err != nil {
		h.log.Warn().Err(err).Str("exam_id", examID.String()).Msg("Failed to build monitor snapshot")
		snap = &service.MonitorSnapshot{WarningCounts: map[string]int64{}}
	}

	c.SSEvent("message", gin.H{
		"type": "snapshot",
		"data": gin.H{
			"exam":     gin.H{"id": examID, "title": title},
			"snapshot": snap,
		},
	})
	c.Writer.Flush()
}

func writeData(w io.Writer, payload []byte) {
	_, _ = w.Write([]byte("data: "))
	_, _ = w.Write(payload)
	_, _ = w.Write([]byte("\n\n"))
}
