package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/ehr/patientrecords/internal/domain/patient"
	"github.com/ehr/patientrecords/internal/platform/backup"
	"github.com/ehr/patientrecords/internal/platform/db"
	"github.com/ehr/patientrecords/internal/platform/hipaa"
	"github.com/ehr/patientrecords/pkg/caldate"
	"github.com/ehr/patientrecords/pkg/pagination"
)

const resourcePatient = "Patient"

// renderer writes aligned tables. With redact set, PHI fields are masked.
type renderer struct {
	out    io.Writer
	redact bool
}

func (a *app) renderer() renderer {
	return renderer{out: a.out, redact: a.redact}
}

func (r renderer) table() *tabwriter.Writer {
	return tabwriter.NewWriter(r.out, 0, 4, 2, ' ', 0)
}

// mask hides value when redaction is on and field is PHI.
func (r renderer) mask(field patient.Field, value string) string {
	if !r.redact || !hipaa.IsPHI(resourcePatient, string(field)) {
		return value
	}
	if field == patient.FieldName {
		return hipaa.MaskName(value)
	}
	return hipaa.MaskText(value)
}

func (r renderer) patients(records []patient.Patient) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(r.out, "No patients found.")
		return err
	}
	w := r.table()
	fmt.Fprintln(w, "ID\tNAME\tDEPARTMENT\tCONDITION\tADMITTED\tDISCHARGED\tROOM")
	for _, p := range records {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%d\n",
			p.ID,
			r.mask(patient.FieldName, p.Name),
			p.Department,
			r.mask(patient.FieldCondition, p.Condition),
			p.AdmissionDate,
			p.DischargeDate,
			p.RoomNumber,
		)
	}
	return w.Flush()
}

func (r renderer) pageHints(summary string, p pagination.Params, total int) {
	fmt.Fprintln(r.out, summary)
	if p.HasPrevious() {
		fmt.Fprintf(r.out, "Previous page: --offset %d\n", p.PreviousOffset())
	}
	if p.HasNext(total) {
		fmt.Fprintf(r.out, "Next page: --offset %d\n", p.NextOffset())
	}
}

func (r renderer) patient(p patient.Patient) error {
	w := r.table()
	fmt.Fprintf(w, "ID:\t%d\n", p.ID)
	fmt.Fprintf(w, "Name:\t%s\n", r.mask(patient.FieldName, p.Name))
	fmt.Fprintf(w, "Medical history:\t%s\n", r.mask(patient.FieldMedicalHistory, p.MedicalHistory))
	fmt.Fprintf(w, "Department:\t%s\n", p.Department)
	fmt.Fprintf(w, "Condition:\t%s\n", r.mask(patient.FieldCondition, p.Condition))
	fmt.Fprintf(w, "Admitted:\t%s\n", p.AdmissionDate)
	fmt.Fprintf(w, "Discharged:\t%s\n", p.DischargeDate)
	fmt.Fprintf(w, "Room:\t%d\n", p.RoomNumber)
	return w.Flush()
}

func (r renderer) summaries(sums []patient.Summary) error {
	if len(sums) == 0 {
		_, err := fmt.Fprintln(r.out, "No patients found.")
		return err
	}
	w := r.table()
	fmt.Fprintln(w, "NAME\tPATIENTS\tACTIVE")
	for _, s := range sums {
		fmt.Fprintf(w, "%s\t%d\t%d\n", s.Label, s.Total, s.Active)
	}
	return w.Flush()
}

func (r renderer) room(status patient.RoomStatus, occupants []patient.Patient, today caldate.Date) error {
	state := "available"
	if status.Occupied() {
		state = "occupied"
	}
	fmt.Fprintf(r.out, "Room %d is %s on %s (%d assignment(s)).\n", status.Room, state, today, status.Assignments)
	if status.Overbooked() {
		fmt.Fprintf(r.out, "WARNING: room %d is overbooked with %d active stays.\n", status.Room, status.Active)
	}
	if len(occupants) == 0 {
		return nil
	}
	return r.patients(occupants)
}

func (r renderer) rooms(statuses []patient.RoomStatus, all bool) error {
	available := 0
	var over []patient.RoomStatus
	w := r.table()
	fmt.Fprintln(w, "ROOM\tSTATUS\tACTIVE\tASSIGNMENTS")
	for _, s := range statuses {
		if !s.Occupied() {
			available++
		}
		if s.Overbooked() {
			over = append(over, s)
		}
		if !all && !s.Occupied() {
			continue
		}
		state := "available"
		switch {
		case s.Overbooked():
			state = "overbooked"
		case s.Occupied():
			state = "occupied"
		}
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\n", s.Room, state, s.Active, s.Assignments)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Available rooms: %d of %d. Occupied: %d.\n", available, len(statuses), len(statuses)-available)
	printOverbooked(r.out, over)
	return nil
}

func printOverbooked(out io.Writer, over []patient.RoomStatus) {
	for _, s := range over {
		fmt.Fprintf(out, "WARNING: room %d is overbooked with %d active stays.\n", s.Room, s.Active)
	}
}

func (r renderer) statistics(st patient.Statistics) error {
	w := r.table()
	fmt.Fprintf(w, "As of:\t%s\n", st.Today)
	fmt.Fprintf(w, "Patients:\t%d\n", st.Total)
	fmt.Fprintf(w, "Admitted:\t%d\n", st.Admitted)
	fmt.Fprintf(w, "Scheduled:\t%d\n", st.Scheduled)
	fmt.Fprintf(w, "Discharged:\t%d\n", st.Discharged)
	fmt.Fprintf(w, "Rooms available:\t%d\n", st.Available)
	fmt.Fprintf(w, "Rooms occupied:\t%d\n", st.Occupied)
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(r.out, "\nDepartments:")
	if err := r.summaries(st.Departments); err != nil {
		return err
	}
	fmt.Fprintln(r.out, "\nConditions:")
	if err := r.summaries(st.Conditions); err != nil {
		return err
	}
	printOverbooked(r.out, st.Overbooked)
	return nil
}

func (r renderer) snapshots(snaps []backup.Snapshot) error {
	if len(snaps) == 0 {
		_, err := fmt.Fprintln(r.out, "No snapshots found.")
		return err
	}
	w := r.table()
	fmt.Fprintln(w, "KEY\tSIZE\tCREATED")
	for _, s := range snaps {
		created := ""
		if !s.CreatedAt.IsZero() {
			created = humanize.Time(s.CreatedAt)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", s.Key, humanize.Bytes(uint64(s.Size)), created)
	}
	return w.Flush()
}

func (r renderer) migrations(statuses []db.MigrationStatus) error {
	w := r.table()
	fmt.Fprintln(w, "VERSION\tNAME\tSTATUS\tAPPLIED AT")
	for _, s := range statuses {
		status := "pending"
		if s.Applied {
			status = "applied"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", s.Version, strings.TrimSuffix(s.Name, ".sql"), status, s.AppliedAt)
	}
	return w.Flush()
}

func (r renderer) auditEvents(events []hipaa.AuditEvent) error {
	if len(events) == 0 {
		_, err := fmt.Fprintln(r.out, "Audit: no changes recorded.")
		return err
	}
	fmt.Fprintf(r.out, "Audit: %d event(s).\n", len(events))
	w := r.table()
	fmt.Fprintln(w, "ACTION\tPATIENT\tFIELD\tOUTCOME\tDETAIL")
	for _, e := range events {
		outcome := "success"
		if e.Outcome != hipaa.OutcomeSuccess {
			outcome = "failed"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", e.Action, e.EntityID, e.Field, outcome, e.OutcomeDesc)
	}
	return w.Flush()
}
