package model

import (
	"time"

	"github.com/google/uuid"
)

// IntegritySource identifies the client signal behind a warning.
type IntegritySource string

const (
	IntegritySourceVisibility IntegritySource = "visibility"
	IntegritySourceFullscreen IntegritySource = "fullscreen"
)

// IntegrityEvent is a client-reported integrity warning. These are advisory:
// clients can forge or suppress them.
type IntegrityEvent struct {
	ExamID      uuid.UUID       `json:"exam_id"`
	StudentName string          `json:"name"`
	StudentRoll string          `json:"roll"`
	Source      IntegritySource `json:"source"`
	Count       int             `json:"count"`
	RecordedAt  time.Time       `json:"recorded_at"`
}

// MonitorEventType enumerates events published on an exam's monitor channel.
type MonitorEventType string

const (
	MonitorEventResultSubmitted MonitorEventType = "result_submitted"
	MonitorEventWarning         MonitorEventType = "integrity_warning"
	MonitorEventStudentJoined   MonitorEventType = "student_joined"
)

// MonitorEvent is the JSON envelope forwarded verbatim to admin SSE clients.
type MonitorEvent struct {
	Type MonitorEventType `json:"type"`
	Data any              `json:"data"`
}
