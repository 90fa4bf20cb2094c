// Package audit records structured upload-lifecycle events. Recording is
// always fire-and-forget: a sink failure is logged and never propagates
// into the operation that produced the event.
package audit

import (
	"time"

	"github.com/lightgrid/lightgrid-services-uploads/logging"
)

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeveritySecurity Severity = "security"
)

type EventType string

const (
	EventSessionInitiated     EventType = "session_initiated"
	EventChunkHashMismatch    EventType = "chunk_hash_mismatch"
	EventIntegrityCheckFailed EventType = "integrity_check_failed"
	EventUploadCompleted      EventType = "upload_completed"
	EventUploadDeduplicated   EventType = "upload_deduplicated"
	EventUploadAborted        EventType = "upload_aborted"
	EventSessionExpired       EventType = "session_expired"
)

type Event struct {
	Type     EventType         `json:"type"`
	Severity Severity          `json:"severity"`
	UploadID string            `json:"upload_id,omitempty"`
	OwnerID  string            `json:"owner_id,omitempty"`
	FileID   string            `json:"file_id,omitempty"`
	Details  map[string]string `json:"details,omitempty"`
	At       time.Time         `json:"at"`
}

// Sink accepts audit events. Implementations must not block the caller
// beyond a channel send.
type Sink interface {
	Record(event Event)
}

// LoggerSink writes audit events to the structured log. Security events
// log at error level so alerting picks them up.
type LoggerSink struct {
	logger logging.Logger
}

func NewLoggerSink(l logging.Logger) *LoggerSink {
	return &LoggerSink{logger: l.With("component", "audit")}
}

func (s *LoggerSink) Record(event Event) {
	args := []any{
		"event_type", string(event.Type),
		"severity", string(event.Severity),
		"upload_id", event.UploadID,
		"owner_id", event.OwnerID,
	}
	if event.FileID != "" {
		args = append(args, "file_id", event.FileID)
	}
	for k, v := range event.Details {
		args = append(args, k, v)
	}

	if event.Severity == SeveritySecurity {
		s.logger.Error("audit event", args...)
		return
	}
	s.logger.Info("audit event", args...)
}
