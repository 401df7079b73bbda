// Package events defines the envelope used to publish grading progress and
// the sink interface that carries it to subscribers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Version is the current envelope schema version.
const Version = "1.0.0"

// Envelope wraps a progress event with routing and correlation metadata.
type Envelope struct {
	// ID uniquely identifies this event instance.
	ID string `json:"id"`

	// Type is "<subject kind>.<status>", e.g. "student_work.completed".
	Type string `json:"type"`

	// Source names the emitting component.
	Source string `json:"source"`

	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`

	// SubjectKind and SubjectID identify what the event is about.
	SubjectKind string `json:"subject_kind"`
	SubjectID   string `json:"subject_id"`

	// AssignmentID routes the event; subscribers listen per assignment.
	AssignmentID string `json:"assignment_id"`
	UserID       string `json:"user_id,omitempty"`

	// WorkflowID and RunID are set when the run executes inside Temporal.
	WorkflowID string `json:"workflow_id,omitempty"`
	RunID      string `json:"run_id,omitempty"`

	// Payload is the JSON-encoded event body.
	Payload json.RawMessage `json:"payload"`
}

// NewEnvelope builds an envelope with a fresh id, the current time and
// payload encoded as JSON.
func NewEnvelope(eventType, source string, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Envelope{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    source,
		Version:   Version,
		Timestamp: time.Now().UTC(),
		Payload:   raw,
	}, nil
}

// EventSink delivers envelopes to downstream consumers. Delivery is best
// effort; callers must not fail their primary operation on a sink error.
type EventSink interface {
	Append(ctx context.Context, envelope Envelope) error
}

// NoOpEventSink discards every envelope.
type NoOpEventSink struct{}

// Append implements EventSink.
func (NoOpEventSink) Append(context.Context, Envelope) error { return nil }
