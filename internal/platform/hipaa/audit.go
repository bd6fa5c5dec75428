package hipaa

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Audit action codes.
const (
	ActionCreate = "C"
	ActionUpdate = "U"
	ActionDelete = "D"
)

// Audit outcome codes.
const (
	OutcomeSuccess        = "0"
	OutcomeMinorFailure   = "4"
	OutcomeSeriousFailure = "8"
)

// AuditEvent is one recorded change to protected health information.
type AuditEvent struct {
	ID           uuid.UUID `json:"id"`
	Action       string    `json:"action"` // C/U/D
	ResourceType string    `json:"resource_type"`
	EntityID     string    `json:"entity_id"`
	EntityName   string    `json:"entity_name"`
	Field        string    `json:"field,omitempty"`
	Outcome      string    `json:"outcome"` // 0/4/8
	OutcomeDesc  string    `json:"outcome_desc,omitempty"`
	Recorded     time.Time `json:"recorded"`

	// Err is the operation error, if any. It is folded into Outcome and
	// OutcomeDesc before the event reaches a recorder.
	Err error `json:"-"`
}

// AuditRecorder persists audit events.
type AuditRecorder interface {
	RecordEvent(ctx context.Context, event AuditEvent) error
}

// AuditRecorderFunc is a function adapter for AuditRecorder.
type AuditRecorderFunc func(ctx context.Context, event AuditEvent) error

func (f AuditRecorderFunc) RecordEvent(ctx context.Context, event AuditEvent) error {
	return f(ctx, event)
}

// Auditor completes events and hands them to its recorders. It always emits a
// structured log line with the entity name masked, and a recorder failure is
// logged rather than returned.
type Auditor struct {
	logger    zerolog.Logger
	recorders []AuditRecorder
	now       func() time.Time
}

func NewAuditor(logger zerolog.Logger, recorders ...AuditRecorder) *Auditor {
	return &Auditor{logger: logger, recorders: recorders, now: time.Now}
}

// Log records event, filling ID, Recorded and Outcome.
func (a *Auditor) Log(ctx context.Context, event AuditEvent) AuditEvent {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Recorded.IsZero() {
		event.Recorded = a.now().UTC()
	}
	if event.Outcome == "" {
		event.Outcome = OutcomeSuccess
		if event.Err != nil {
			event.Outcome = OutcomeMinorFailure
			event.OutcomeDesc = event.Err.Error()
		}
	}

	for _, r := range a.recorders {
		if r == nil {
			continue
		}
		if err := r.RecordEvent(ctx, event); err != nil {
			a.logger.Error().Err(err).Str("audit_id", event.ID.String()).Msg("failed to record audit event")
		}
	}

	evt := a.logger.Info()
	if event.Outcome != OutcomeSuccess {
		evt = a.logger.Warn()
	}
	evt.
		Str("type", "hipaa_audit").
		Str("audit_id", event.ID.String()).
		Str("action", event.Action).
		Str("resource_type", event.ResourceType).
		Str("entity_id", event.EntityID).
		Str("entity_name", MaskName(event.EntityName)).
		Str("field", event.Field).
		Str("outcome", event.Outcome).
		Str("outcome_desc", event.OutcomeDesc).
		Msg("phi_change")
	return event
}

// MemoryAuditRecorder keeps events in memory. The CLI prints them with
// --audit-summary.
type MemoryAuditRecorder struct {
	mu     sync.Mutex
	events []AuditEvent
}

func (m *MemoryAuditRecorder) RecordEvent(_ context.Context, event AuditEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

// Events returns a copy of the recorded events in order.
func (m *MemoryAuditRecorder) Events() []AuditEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]AuditEvent, len(m.events))
	copy(out, m.events)
	return out
}
