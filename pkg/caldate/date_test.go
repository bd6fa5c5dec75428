package caldate

import (
	"errors"
	"testing"
	"time"
)

func TestParse_Valid(t *testing.T) {
	d, err := Parse("01-06-2025")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Day() != 1 || d.Month() != 6 || d.Year() != 2025 {
		t.Errorf("got %d-%d-%d, want 1-6-2025", d.Day(), d.Month(), d.Year())
	}
	if !d.IsSet() || !d.Valid() {
		t.Error("expected parsed date to be set and valid")
	}
}

func TestParse_EmptyIsUnset(t *testing.T) {
	d, err := Parse("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.IsSet() {
		t.Error("expected empty input to parse as unset")
	}
	if d.String() != NotSet {
		t.Errorf("String() = %q, want %q", d.String(), NotSet)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		input string
		want  error
	}{
		{"1-6-2025", ErrFormat},
		{"01/06/2025", ErrFormat},
		{"01-06-20255", ErrFormat},
		{"Not set", ErrFormat},
		{"0a-06-2025", ErrNonNumeric},
		{"01-06-20x5", ErrNonNumeric},
		{"32-01-2025", ErrRange},
		{"00-01-2025", ErrRange},
		{"01-13-2025", ErrRange},
		{"01-01-1899", ErrRange},
		{"01-01-2101", ErrRange},
		{"29-02-2023", ErrRange},
		{"31-04-2025", ErrRange},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := Parse(tt.input)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Parse(%q) error = %v, want %v", tt.input, err, tt.want)
			}
			var pe *ParseError
			if !errors.As(err, &pe) || pe.Input != tt.input {
				t.Errorf("expected *ParseError carrying input %q, got %v", tt.input, err)
			}
		})
	}
}

func TestParse_LeapYears(t *testing.T) {
	tests := []struct {
		input string
		ok    bool
	}{
		{"29-02-2000", true},
		{"29-02-2024", true},
		{"29-02-1900", false},
		{"29-02-2023", false},
		{"29-02-2100", false},
	}
	for _, tt := range tests {
		_, err := Parse(tt.input)
		if (err == nil) != tt.ok {
			t.Errorf("Parse(%q) ok = %v, want %v (err %v)", tt.input, err == nil, tt.ok, err)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	for _, s := range []string{"01-01-1900", "29-02-2000", "15-10-2026", "31-12-2100", ""} {
		first, err := Parse(s)
		if err != nil {
			t.Fatalf("Parse(%q): %v", s, err)
		}
		text := first.String()
		if !first.IsSet() {
			text = ""
		}
		second, err := Parse(text)
		if err != nil {
			t.Fatalf("Parse(%q): %v", text, err)
		}
		if second != first {
			t.Errorf("round trip of %q gave %v, want %v", s, second, first)
		}
	}
}

func TestParseToken_AcceptsSentinel(t *testing.T) {
	d, err := ParseToken(NotSet)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.IsSet() {
		t.Error("expected sentinel to parse as unset")
	}
	d, err = ParseToken("10-01-2025")
	if err != nil || d.String() != "10-01-2025" {
		t.Errorf("ParseToken(10-01-2025) = %v, %v", d, err)
	}
}

func TestCompare(t *testing.T) {
	a := MustParse("31-12-2024")
	b := MustParse("01-01-2025")
	c := MustParse("02-01-2025")

	if !a.Before(b) || !b.Before(c) || !a.Before(c) {
		t.Error("expected chronological ordering a < b < c")
	}
	if !c.After(a) {
		t.Error("expected c after a")
	}
	if !b.Equal(MustParse("01-01-2025")) {
		t.Error("expected equal dates to compare equal")
	}
	if !Unset.Before(MustParse("01-01-1900")) {
		t.Error("expected unset to sort before the earliest date")
	}
	if Unset.Compare(Date{}) != 0 {
		t.Error("expected unset to equal unset")
	}
	if b.Compare(a) != 1 || a.Compare(b) != -1 {
		t.Error("expected Compare to be antisymmetric")
	}
}

func TestString_ZeroPadded(t *testing.T) {
	d, err := New(2025, 3, 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := d.String(); got != "07-03-2025" {
		t.Errorf("String() = %q, want 07-03-2025", got)
	}
}

func TestNew_Invalid(t *testing.T) {
	if _, err := New(2023, 2, 29); !errors.Is(err, ErrRange) {
		t.Errorf("expected ErrRange, got %v", err)
	}
}

func TestFromTime(t *testing.T) {
	d := FromTime(time.Date(2026, time.October, 15, 23, 59, 0, 0, time.UTC))
	if d.String() != "15-10-2026" {
		t.Errorf("FromTime = %s, want 15-10-2026", d)
	}
	if FromTime(time.Date(1850, 1, 1, 0, 0, 0, 0, time.UTC)).IsSet() {
		t.Error("expected out-of-range year to yield unset")
	}
	if !d.Time().Equal(time.Date(2026, time.October, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Time() = %v", d.Time())
	}
}
