package patient

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/ehr/patientrecords/pkg/caldate"
)

// Field length limits applied at intake.
const (
	MinNameLength      = 2
	MaxNameLength      = 50
	MaxHistoryLength   = 200
	MinConditionLength = 2
	MaxConditionLength = 100
)

// Patient is one admission record.
type Patient struct {
	ID             int          `json:"id"`
	Name           string       `json:"name"`
	MedicalHistory string       `json:"medical_history"`
	Department     string       `json:"department"`
	Condition      string       `json:"condition"`
	AdmissionDate  caldate.Date `json:"-"`
	DischargeDate  caldate.Date `json:"-"`
	RoomNumber     int          `json:"room_number"`
}

// Window returns the patient's active admission window. ok is false when the
// admission date is not valid, in which case the record never occupies a room.
func (p Patient) Window() (w Window, ok bool) {
	if !p.AdmissionDate.Valid() {
		return Window{}, false
	}
	return Window{From: p.AdmissionDate, Until: p.DischargeDate}, true
}

// Active reports whether the patient occupies their room on day.
func (p Patient) Active(day caldate.Date) bool {
	w, ok := p.Window()
	return ok && w.Contains(day)
}

// Window is the half-open interval [From, Until). An unset Until leaves the
// window open-ended.
type Window struct {
	From  caldate.Date
	Until caldate.Date
}

// Contains reports whether day falls inside the window.
func (w Window) Contains(day caldate.Date) bool {
	if day.Before(w.From) {
		return false
	}
	return !w.Until.IsSet() || day.Before(w.Until)
}

// Overlaps reports whether two windows share at least one day.
func (w Window) Overlaps(other Window) bool {
	startsBeforeOtherEnds := !other.Until.IsSet() || w.From.Before(other.Until)
	otherStartsBeforeEnd := !w.Until.IsSet() || other.From.Before(w.Until)
	return startsBeforeOtherEnds && otherStartsBeforeEnd
}

// Field names a mutable patient attribute.
type Field string

const (
	FieldID             Field = "id"
	FieldName           Field = "name"
	FieldMedicalHistory Field = "history"
	FieldDepartment     Field = "department"
	FieldCondition      Field = "condition"
	FieldAdmissionDate  Field = "admitted"
	FieldDischargeDate  Field = "discharged"
	FieldRoomNumber     Field = "room"
)

// UpdatableFields lists the fields Update accepts, in menu order.
var UpdatableFields = []Field{
	FieldName,
	FieldMedicalHistory,
	FieldDepartment,
	FieldCondition,
	FieldAdmissionDate,
	FieldDischargeDate,
	FieldRoomNumber,
}

var fieldAliases = map[string]Field{
	"medicalhistory":  FieldMedicalHistory,
	"medical_history": FieldMedicalHistory,
	"admission":       FieldAdmissionDate,
	"admissiondate":   FieldAdmissionDate,
	"admission_date":  FieldAdmissionDate,
	"discharge":       FieldDischargeDate,
	"dischargedate":   FieldDischargeDate,
	"discharge_date":  FieldDischargeDate,
	"roomnumber":      FieldRoomNumber,
	"room_number":     FieldRoomNumber,
	"dept":            FieldDepartment,
}

// ParseField resolves a field by name, alias, or its 1-based menu number.
func ParseField(s string) (Field, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(key); err == nil {
		if n >= 1 && n <= len(UpdatableFields) {
			return UpdatableFields[n-1], nil
		}
		return "", ErrUnknownField
	}
	if key == string(FieldID) {
		return "", ErrImmutableField
	}
	for _, f := range UpdatableFields {
		if key == string(f) {
			return f, nil
		}
	}
	if f, ok := fieldAliases[key]; ok {
		return f, nil
	}
	return "", ErrUnknownField
}

// Intake is the raw input of a new admission as typed by an operator.
type Intake struct {
	Name           string
	MedicalHistory string
	Department     string
	Condition      string
	AdmissionDate  string
	DischargeDate  string
	RoomNumber     int
}

// ValidateName enforces the intake name length.
func ValidateName(name string) error {
	if err := singleLine(FieldName, name); err != nil {
		return err
	}
	n := utf8.RuneCountInString(name)
	if n < MinNameLength || n > MaxNameLength {
		return invalid(FieldName, ErrNameLength)
	}
	return nil
}

func ValidateMedicalHistory(history string) error {
	if err := singleLine(FieldMedicalHistory, history); err != nil {
		return err
	}
	if utf8.RuneCountInString(history) > MaxHistoryLength {
		return invalid(FieldMedicalHistory, ErrHistoryLength)
	}
	return nil
}

func ValidateDepartment(department string) error {
	if err := singleLine(FieldDepartment, department); err != nil {
		return err
	}
	if strings.TrimSpace(department) == "" {
		return invalid(FieldDepartment, ErrEmptyDepartment)
	}
	return nil
}

func ValidateCondition(condition string) error {
	if err := singleLine(FieldCondition, condition); err != nil {
		return err
	}
	n := utf8.RuneCountInString(condition)
	if n < MinConditionLength || n > MaxConditionLength {
		return invalid(FieldCondition, ErrConditionLength)
	}
	return nil
}

// ValidateAdmissionDate parses text and rejects unset dates and days before today.
func ValidateAdmissionDate(text string, today caldate.Date) (caldate.Date, error) {
	d, err := caldate.Parse(text)
	if err != nil {
		return caldate.Unset, invalid(FieldAdmissionDate, err)
	}
	if !d.Valid() {
		return caldate.Unset, invalid(FieldAdmissionDate, ErrInvalidAdmissionDate)
	}
	if today.IsSet() && d.Before(today) {
		return caldate.Unset, invalid(FieldAdmissionDate, ErrAdmissionInPast)
	}
	return d, nil
}

// ValidateDischargeDate parses text; empty means not yet discharged.
func ValidateDischargeDate(text string, admission caldate.Date) (caldate.Date, error) {
	d, err := caldate.Parse(text)
	if err != nil {
		return caldate.Unset, invalid(FieldDischargeDate, err)
	}
	if d.IsSet() && !admission.Before(d) {
		return caldate.Unset, invalid(FieldDischargeDate, ErrDischargeBeforeAdmission)
	}
	return d, nil
}

func singleLine(field Field, value string) error {
	if strings.ContainsAny(value, "\r\n") {
		return invalid(field, ErrMultiline)
	}
	return nil
}

// checkRecord applies the store invariants shared by Add and Update, in the
// order Add reports them, then rejects text fields that would span lines in
// the records file. Duplicate ids are checked by the caller.
func checkRecord(p Patient, roomCount int) error {
	if p.ID <= 0 {
		return invalid(FieldID, ErrInvalidID)
	}
	if p.RoomNumber <= 0 || p.RoomNumber > roomCount {
		return invalid(FieldRoomNumber, ErrInvalidRoom)
	}
	if p.Name == "" {
		return invalid(FieldName, ErrEmptyName)
	}
	if !p.AdmissionDate.Valid() {
		return invalid(FieldAdmissionDate, ErrInvalidAdmissionDate)
	}
	if p.DischargeDate.Valid() && !p.AdmissionDate.Before(p.DischargeDate) {
		return invalid(FieldDischargeDate, ErrDischargeBeforeAdmission)
	}
	for _, f := range []struct {
		field Field
		value string
	}{
		{FieldName, p.Name},
		{FieldMedicalHistory, p.MedicalHistory},
		{FieldDepartment, p.Department},
		{FieldCondition, p.Condition},
	} {
		if err := singleLine(f.field, f.value); err != nil {
			return err
		}
	}
	return nil
}
