package hipaa

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func TestAuditor_FillsEventAndRecords(t *testing.T) {
	var buf bytes.Buffer
	mem := &MemoryAuditRecorder{}
	a := NewAuditor(zerolog.New(&buf), mem)
	a.now = func() time.Time { return time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC) }

	got := a.Log(context.Background(), AuditEvent{
		Action:       ActionCreate,
		ResourceType: "Patient",
		EntityID:     "1",
		EntityName:   "Jane Doe",
	})

	if got.ID == uuid.Nil {
		t.Error("expected an audit id to be assigned")
	}
	if !got.Recorded.Equal(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)) {
		t.Errorf("expected recorded timestamp from clock, got %v", got.Recorded)
	}
	if got.Outcome != OutcomeSuccess {
		t.Errorf("expected outcome %q, got %q", OutcomeSuccess, got.Outcome)
	}

	events := mem.Events()
	if len(events) != 1 || events[0].ID != got.ID {
		t.Fatalf("expected the event to reach the recorder, got %+v", events)
	}

	out := buf.String()
	if strings.Contains(out, "Jane Doe") {
		t.Errorf("expected entity name to be masked in log output: %s", out)
	}
	if !strings.Contains(out, `"entity_name":"J*** D**"`) {
		t.Errorf("expected masked entity name in log output: %s", out)
	}
	if !strings.Contains(out, `"message":"phi_change"`) {
		t.Errorf("expected phi_change message: %s", out)
	}
}

func TestAuditor_FailureOutcome(t *testing.T) {
	var buf bytes.Buffer
	a := NewAuditor(zerolog.New(&buf))

	got := a.Log(context.Background(), AuditEvent{
		Action:   ActionDelete,
		EntityID: "9",
		Err:      errors.New("patient with ID 9 not found"),
	})

	if got.Outcome != OutcomeMinorFailure {
		t.Errorf("expected outcome %q, got %q", OutcomeMinorFailure, got.Outcome)
	}
	if got.OutcomeDesc != "patient with ID 9 not found" {
		t.Errorf("unexpected outcome description %q", got.OutcomeDesc)
	}
	if !strings.Contains(buf.String(), `"level":"warn"`) {
		t.Errorf("expected failed mutation to log at warn: %s", buf.String())
	}
}

func TestAuditor_RecorderErrorIsLogged(t *testing.T) {
	var buf bytes.Buffer
	failing := AuditRecorderFunc(func(context.Context, AuditEvent) error {
		return errors.New("disk full")
	})
	a := NewAuditor(zerolog.New(&buf), failing, nil)

	a.Log(context.Background(), AuditEvent{Action: ActionUpdate, EntityID: "3", Field: "room"})

	if !strings.Contains(buf.String(), "failed to record audit event") {
		t.Errorf("expected recorder failure to be logged: %s", buf.String())
	}
}
