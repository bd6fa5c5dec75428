package patient

import (
	"errors"
	"testing"

	"github.com/ehr/patientrecords/pkg/caldate"
)

func ids(patients []Patient) []int {
	out := make([]int, 0, len(patients))
	for _, p := range patients {
		out = append(out, p.ID)
	}
	return out
}

func equalIDs(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSearchByName(t *testing.T) {
	s := seededStore(t)
	tests := []struct {
		needle string
		want   []int
	}{
		{"jan", []int{1, 3}},
		{"DOE", []int{1}},
		{"  smith ", []int{2}},
		{"nobody", []int{}},
		{"", []int{1, 2, 3}},
	}
	for _, tt := range tests {
		if got := ids(s.SearchByName(tt.needle)); !equalIDs(got, tt.want) {
			t.Errorf("SearchByName(%q) = %v, want %v", tt.needle, got, tt.want)
		}
	}
}

func TestSearchByDateRange(t *testing.T) {
	s := seededStore(t)
	d := caldate.MustParse
	tests := []struct {
		name       string
		start, end caldate.Date
		want       []int
	}{
		{"inclusive bounds", d("01-01-2025"), d("01-06-2025"), []int{1, 2}},
		{"single day", d("20-06-2025"), d("20-06-2025"), []int{3}},
		{"open start", caldate.Unset, d("31-01-2025"), []int{2}},
		{"open end", d("02-06-2025"), caldate.Unset, []int{3}},
		{"both open", caldate.Unset, caldate.Unset, []int{1, 2, 3}},
		{"reversed", d("01-12-2025"), d("01-01-2025"), []int{}},
		{"gap", d("11-01-2025"), d("31-05-2025"), []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ids(s.SearchByDateRange(tt.start, tt.end)); !equalIDs(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSearchByDateRange_SkipsInvalidAdmission(t *testing.T) {
	s := NewStore(DefaultRoomCount)
	s.Load([]Patient{{ID: 1, Name: "Legacy", RoomNumber: 1}})
	if got := s.SearchByDateRange(caldate.Unset, caldate.Unset); len(got) != 0 {
		t.Errorf("expected record without admission date to be excluded, got %v", ids(got))
	}
}

func TestListByDepartmentAndCondition(t *testing.T) {
	s := seededStore(t)
	if got := ids(s.ListByDepartment("icu")); !equalIDs(got, []int{1, 3}) {
		t.Errorf("ListByDepartment(icu) = %v", got)
	}
	if got := ids(s.ListByCondition("PNEUMONIA")); !equalIDs(got, []int{1, 3}) {
		t.Errorf("ListByCondition(PNEUMONIA) = %v", got)
	}
	if got := s.ListByCondition("unknown"); len(got) != 0 {
		t.Errorf("expected no patients, got %v", ids(got))
	}
}

func TestListByRoom(t *testing.T) {
	s := seededStore(t)
	got, err := s.ListByRoom(7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !equalIDs(ids(got), []int{2}) {
		t.Errorf("ListByRoom(7) = %v, want [2] regardless of discharge", ids(got))
	}
	if _, err := s.ListByRoom(0); !errors.Is(err, ErrRoomOutOfRange) {
		t.Errorf("expected ErrRoomOutOfRange, got %v", err)
	}
}

func TestListAll_IsACopy(t *testing.T) {
	s := seededStore(t)
	all := s.ListAll()
	all[0].Name = "Changed"
	if got, _ := s.Get(1); got.Name != "Jane Doe" {
		t.Errorf("expected store to be unaffected, got %q", got.Name)
	}
}

func TestStatistics(t *testing.T) {
	s := seededStore(t)
	st := s.Statistics(caldate.MustParse("15-06-2025"))

	if st.Total != 3 || st.Admitted != 1 || st.Scheduled != 1 || st.Discharged != 1 {
		t.Errorf("unexpected split %+v", st)
	}
	if st.Occupied != 1 || st.Available != 199 {
		t.Errorf("expected 1 occupied and 199 available, got %d and %d", st.Occupied, st.Available)
	}
	if len(st.Rooms) != DefaultRoomCount {
		t.Errorf("expected a status per room, got %d", len(st.Rooms))
	}
	if len(st.Overbooked) != 0 {
		t.Errorf("expected no overbooked rooms, got %v", st.Overbooked)
	}
	if len(st.Departments) != 2 {
		t.Fatalf("expected 2 departments, got %+v", st.Departments)
	}
	icu := st.Departments[1]
	if icu.Label != "ICU" || icu.Total != 2 || icu.Active != 1 {
		t.Errorf("unexpected ICU summary %+v", icu)
	}
	if len(st.Conditions) != 2 || st.Conditions[0].Label != "Arrhythmia" {
		t.Errorf("unexpected conditions %+v", st.Conditions)
	}
}

func TestSummaries_ActiveCounts(t *testing.T) {
	s := seededStore(t)
	sums := s.ConditionSummaries(caldate.MustParse("21-06-2025"))
	var pneumonia Summary
	for _, sum := range sums {
		if sum.Label == "Pneumonia" {
			pneumonia = sum
		}
	}
	if pneumonia.Total != 2 || pneumonia.Active != 2 {
		t.Errorf("expected both pneumonia patients active on 21-06-2025, got %+v", pneumonia)
	}
}
