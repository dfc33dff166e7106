package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/mcq-exam/internal/response"
	"github.com/stemsi/mcq-exam/internal/service"
	ws "github.com/stemsi/mcq-exam/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler receives integrity warnings from exam clients.
type WSHandler struct {
	examService      *service.ExamService
	integrityService *service.IntegrityService
	log              zerolog.Logger
	upgrader         websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(examService *service.ExamService, integrityService *service.IntegrityService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		examService:      examService,
		integrityService: integrityService,
		log:              log.With().Str("component", "ws_handler").Logger(),
		upgrader:         buildUpgrader(allowedOrigins),
	}
}

// IntegrityStream godoc
// WS /ws/v1/exams/:id/stream?name=&roll=
// Warnings reported here are advisory and never affect scoring.
func (h *WSHandler) IntegrityStream(c *gin.Context) {
	examID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	exam, err := h.examService.GetByID(c.Request.Context(), examID)
	if errors.Is(err, service.ErrExamNotFound) || (err == nil && !exam.IsActive) {
		response.Fail(c, http.StatusNotFound, response.ErrExamNotAvailable)
		return
	}
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	name := strings.TrimSpace(c.Query("name"))
	roll := strings.TrimSpace(c.Query("roll"))

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx := c.Request.Context()

	wsLog := h.log.With().
		Str("exam_id", examID.String()).
		Str("roll", roll).
		Logger()
	wsLog.Info().Msg("Student connected")
	h.integrityService.Joined(ctx, examID, name, roll)

	for {
		var raw json.RawMessage
		if err := ws.ReadJSON(conn, &raw); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		var env ws.RequestEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			ws.WriteError(conn, "invalid message")
			continue
		}

		switch env.Action {
		case ws.ActionWarning:
			var req ws.WarningRequest
			if err := json.Unmarshal(raw, &req); err != nil {
				ws.WriteError(conn, "invalid warning payload")
				continue
			}
			ev, err := h.integrityService.Report(ctx, examID, name, roll, req.Source, req.Count)
			if errors.Is(err, service.ErrInvalidSource) {
				ws.WriteError(conn, "unknown warning source")
				continue
			}
			if err != nil {
				wsLog.Error().Err(err).Msg("Failed to record integrity warning")
				ws.WriteError(conn, "warning not recorded")
				continue
			}
			wsLog.Info().
				Str("source", string(ev.Source)).
				Int("count", ev.Count).
				Str("reason", req.Reason).
				Msg("Integrity warning")
			ws.WriteTyped(conn, ws.AckResponse{Event: ws.EventAck, Count: ev.Count})

		case ws.ActionPing:
			ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})

		default:
			ws.WriteError(conn, "unknown action")
		}
	}
}
