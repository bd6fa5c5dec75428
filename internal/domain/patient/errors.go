package patient

import (
	"errors"
	"fmt"
)

// Store validation failures, in the order Add checks them.
var (
	ErrDuplicateID              = errors.New("patient id already exists")
	ErrInvalidID                = errors.New("patient id must be a positive number")
	ErrInvalidRoom              = errors.New("invalid room number")
	ErrEmptyName                = errors.New("patient name cannot be empty")
	ErrInvalidAdmissionDate     = errors.New("invalid admission date")
	ErrDischargeBeforeAdmission = errors.New("discharge date must be after admission date")
)

// Intake and update failures.
var (
	ErrNameLength       = errors.New("name must be between 2 and 50 characters")
	ErrHistoryLength    = errors.New("medical history must be at most 200 characters")
	ErrEmptyDepartment  = errors.New("department is required")
	ErrConditionLength  = errors.New("condition must be between 2 and 100 characters")
	ErrAdmissionInPast  = errors.New("admission date cannot be in the past")
	ErrRoomOccupied     = errors.New("room is occupied for the requested stay")
	ErrMultiline        = errors.New("value must be a single line")
	ErrNonNumericRoom   = errors.New("room number must be a number")
	ErrUnknownField     = errors.New("unknown patient field")
	ErrImmutableField   = errors.New("patient id cannot be changed")
	ErrNotFound         = errors.New("patient not found")
	ErrRoomOutOfRange   = errors.New("room number out of range")
	ErrFieldCount       = errors.New("record does not have 8 fields")
	ErrNonNumericRecord = errors.New("record id and room number must be numeric")
)

// ValidationError reports a rejected field value. Err is one of the sentinel
// errors above or a caldate parse error.
type ValidationError struct {
	Field Field
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(field Field, err error) error {
	return &ValidationError{Field: field, Err: err}
}

// NotFoundError is returned when no record carries the requested id.
type NotFoundError struct {
	ID int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("patient with ID %d not found", e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// RangeError is returned for a room number outside the configured pool.
type RangeError struct {
	Room int
	Max  int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("room number %d must be between 1 and %d", e.Room, e.Max)
}

func (e *RangeError) Is(target error) bool { return target == ErrRoomOutOfRange }

// MalformedRecord is a persisted record that could not be loaded. Loading
// skips it and continues.
type MalformedRecord struct {
	Line   int
	Text   string
	Reason error
}

func (m MalformedRecord) Error() string {
	if m.Line > 0 {
		return fmt.Sprintf("line %d: %v", m.Line, m.Reason)
	}
	return m.Reason.Error()
}

func (m MalformedRecord) Unwrap() error { return m.Reason }
