package patient

import (
	"strings"

	"github.com/ehr/patientrecords/pkg/caldate"
)

// SearchByName returns every record whose name contains substring, ignoring
// case, in store order. An empty substring matches every record.
func (s *Store) SearchByName(substring string) []Patient {
	return s.at(s.index.MatchNames(strings.TrimSpace(substring)))
}

// SearchByDateRange returns the records admitted within [start, end]. Records
// without a valid admission date never match. An unset bound is open.
func (s *Store) SearchByDateRange(start, end caldate.Date) []Patient {
	var out []Patient
	if start.IsSet() && end.IsSet() && start.After(end) {
		return out
	}
	for _, p := range s.records {
		if !p.AdmissionDate.Valid() {
			continue
		}
		if start.IsSet() && p.AdmissionDate.Before(start) {
			continue
		}
		if end.IsSet() && p.AdmissionDate.After(end) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func (s *Store) ListByDepartment(department string) []Patient {
	return s.at(s.index.Department(department))
}

func (s *Store) ListByCondition(condition string) []Patient {
	return s.at(s.index.Condition(condition))
}

// ListByRoom returns every record assigned to room regardless of dates.
func (s *Store) ListByRoom(room int) ([]Patient, error) {
	if err := s.checkRoom(room); err != nil {
		return nil, err
	}
	return s.at(s.index.Room(room)), nil
}

// ListAll returns every record in store order.
func (s *Store) ListAll() []Patient { return s.All() }

// Summary is a department or condition group with its occupancy on a day.
type Summary struct {
	Label  string
	Total  int
	Active int
}

func (s *Store) DepartmentSummaries(today caldate.Date) []Summary {
	return s.summarise(s.index.Departments(), today)
}

func (s *Store) ConditionSummaries(today caldate.Date) []Summary {
	return s.summarise(s.index.Conditions(), today)
}

func (s *Store) summarise(groups []Group, today caldate.Date) []Summary {
	out := make([]Summary, 0, len(groups))
	for _, g := range groups {
		sum := Summary{Label: g.Label, Total: len(g.Positions)}
		for _, pos := range g.Positions {
			if s.records[pos].Active(today) {
				sum.Active++
			}
		}
		out = append(out, sum)
	}
	return out
}

// Statistics is a point-in-time summary of the store.
type Statistics struct {
	Today       caldate.Date
	Total       int
	Admitted    int // active on Today
	Scheduled   int // admission after Today
	Discharged  int // everything else
	Departments []Summary
	Conditions  []Summary
	Rooms       []RoomStatus
	Available   int
	Occupied    int
	Overbooked  []RoomStatus
}

// Statistics computes the admitted, scheduled and discharged split and the
// room utilisation grid as of today.
func (s *Store) Statistics(today caldate.Date) Statistics {
	st := Statistics{
		Today:       today,
		Total:       len(s.records),
		Departments: s.DepartmentSummaries(today),
		Conditions:  s.ConditionSummaries(today),
		Rooms:       s.RoomStatuses(today),
	}
	for _, p := range s.records {
		switch {
		case p.Active(today):
			st.Admitted++
		case p.AdmissionDate.Valid() && p.AdmissionDate.After(today):
			st.Scheduled++
		}
	}
	st.Discharged = st.Total - st.Admitted - st.Scheduled
	for _, r := range st.Rooms {
		if r.Occupied() {
			st.Occupied++
		}
		if r.Overbooked() {
			st.Overbooked = append(st.Overbooked, r)
		}
	}
	st.Available = s.roomCount - st.Occupied
	return st
}
