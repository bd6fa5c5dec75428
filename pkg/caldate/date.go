// Package caldate implements the calendar date used by patient records: a
// day-precision value written as DD-MM-YYYY that may also be explicitly unset
// (for example a discharge date that has not happened yet).
package caldate

import (
	"errors"
	"fmt"
	"time"
)

// Layout is the fixed textual form of a set date.
const Layout = "DD-MM-YYYY"

// NotSet is the text rendered for an unset date.
const NotSet = "Not set"

const (
	MinYear = 1900
	MaxYear = 2100
)

var (
	ErrFormat     = errors.New("invalid date format, use DD-MM-YYYY with '-' delimiters")
	ErrNonNumeric = errors.New("date components must be numbers")
	ErrRange      = errors.New("date is not a valid calendar day")
)

// ParseError reports the input that failed to parse and which rule it broke.
type ParseError struct {
	Input string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse date %q: %v", e.Input, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Date is a calendar day. The zero value is unset.
type Date struct {
	year  int
	month int
	day   int
	set   bool
}

// Unset is the unset date.
var Unset = Date{}

var daysInMonth = [13]int{0, 31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

// New returns the date for the given components, or a *ParseError wrapping
// ErrRange when they do not name a real day in the supported year range.
func New(year, month, day int) (Date, error) {
	d := Date{year: year, month: month, day: day, set: true}
	if !d.Valid() {
		return Unset, &ParseError{Input: fmt.Sprintf("%02d-%02d-%04d", day, month, year), Err: ErrRange}
	}
	return d, nil
}

// MustParse is like Parse but panics on error. Intended for fixtures.
func MustParse(text string) Date {
	d, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return d
}

// Parse reads a DD-MM-YYYY date. The empty string parses as Unset.
func Parse(text string) (Date, error) {
	if text == "" {
		return Unset, nil
	}
	if len(text) != len(Layout) || text[2] != '-' || text[5] != '-' {
		return Unset, &ParseError{Input: text, Err: ErrFormat}
	}
	for i := 0; i < len(text); i++ {
		if i == 2 || i == 5 {
			continue
		}
		if text[i] < '0' || text[i] > '9' {
			return Unset, &ParseError{Input: text, Err: ErrNonNumeric}
		}
	}
	d := Date{
		day:   digits(text[0:2]),
		month: digits(text[3:5]),
		year:  digits(text[6:10]),
		set:   true,
	}
	if !d.Valid() {
		return Unset, &ParseError{Input: text, Err: ErrRange}
	}
	return d, nil
}

// ParseToken is Parse extended with the NotSet sentinel, which is how an
// unset date is stored in record files.
func ParseToken(text string) (Date, error) {
	if text == NotSet {
		return Unset, nil
	}
	return Parse(text)
}

func digits(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		n = n*10 + int(s[i]-'0')
	}
	return n
}

// FromTime returns the calendar day of t in t's location. Days outside the
// supported year range yield Unset.
func FromTime(t time.Time) Date {
	d := Date{year: t.Year(), month: int(t.Month()), day: t.Day(), set: true}
	if !d.Valid() {
		return Unset
	}
	return d
}

// Today returns the current local calendar day.
func Today() Date {
	return FromTime(time.Now())
}

func (d Date) Year() int  { return d.year }
func (d Date) Month() int { return d.month }
func (d Date) Day() int   { return d.day }

// IsSet reports whether d holds a day.
func (d Date) IsSet() bool { return d.set }

// Valid reports whether d is set and names a real day within [MinYear, MaxYear].
func (d Date) Valid() bool {
	if !d.set {
		return false
	}
	if d.year < MinYear || d.year > MaxYear {
		return false
	}
	if d.month < 1 || d.month > 12 {
		return false
	}
	maxDays := daysInMonth[d.month]
	if d.month == 2 && IsLeapYear(d.year) {
		maxDays = 29
	}
	return d.day >= 1 && d.day <= maxDays
}

// IsLeapYear applies the Gregorian rule.
func IsLeapYear(year int) bool {
	return (year%4 == 0 && year%100 != 0) || year%400 == 0
}

// Compare returns -1, 0 or +1. Unset sorts before every set date.
func (d Date) Compare(other Date) int {
	switch {
	case !d.set && !other.set:
		return 0
	case !d.set:
		return -1
	case !other.set:
		return 1
	}
	if c := cmpInt(d.year, other.year); c != 0 {
		return c
	}
	if c := cmpInt(d.month, other.month); c != 0 {
		return c
	}
	return cmpInt(d.day, other.day)
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func (d Date) Before(other Date) bool { return d.Compare(other) < 0 }
func (d Date) After(other Date) bool  { return d.Compare(other) > 0 }
func (d Date) Equal(other Date) bool  { return d.Compare(other) == 0 }

// String renders DD-MM-YYYY, or NotSet.
func (d Date) String() string {
	if !d.set {
		return NotSet
	}
	return fmt.Sprintf("%02d-%02d-%04d", d.day, d.month, d.year)
}

// Time returns midnight UTC of d, or the zero time when unset.
func (d Date) Time() time.Time {
	if !d.set {
		return time.Time{}
	}
	return time.Date(d.year, time.Month(d.month), d.day, 0, 0, 0, 0, time.UTC)
}
