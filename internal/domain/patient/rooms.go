package patient

import (
	"github.com/ehr/patientrecords/pkg/caldate"
)

// RoomStatus describes one room on a given day.
type RoomStatus struct {
	Room        int
	Active      int // records whose admission window contains the day
	Assignments int // every record assigned to the room
}

func (r RoomStatus) Occupied() bool { return r.Active > 0 }

// Overbooked reports more than one active occupant. Update can produce this
// state; it is reported, not rejected.
func (r RoomStatus) Overbooked() bool { return r.Active > 1 }

func (s *Store) checkRoom(room int) error {
	if room < 1 || room > s.roomCount {
		return &RangeError{Room: room, Max: s.roomCount}
	}
	return nil
}

// RoomStatus returns the occupancy of room on today.
func (s *Store) RoomStatus(room int, today caldate.Date) (RoomStatus, error) {
	if err := s.checkRoom(room); err != nil {
		return RoomStatus{}, err
	}
	st := RoomStatus{Room: room}
	for _, pos := range s.index.Room(room) {
		st.Assignments++
		if s.records[pos].Active(today) {
			st.Active++
		}
	}
	return st, nil
}

// IsRoomAvailable reports whether no record occupies room on today.
func (s *Store) IsRoomAvailable(room int, today caldate.Date) (bool, error) {
	st, err := s.RoomStatus(room, today)
	if err != nil {
		return false, err
	}
	return !st.Occupied(), nil
}

// RoomStatuses returns the status of every room in the pool, in room order.
func (s *Store) RoomStatuses(today caldate.Date) []RoomStatus {
	out := make([]RoomStatus, 0, s.roomCount)
	for room := 1; room <= s.roomCount; room++ {
		st, _ := s.RoomStatus(room, today)
		out = append(out, st)
	}
	return out
}

// AvailableRooms counts the rooms with no active occupant on today.
func (s *Store) AvailableRooms(today caldate.Date) int {
	n := 0
	for _, st := range s.RoomStatuses(today) {
		if !st.Occupied() {
			n++
		}
	}
	return n
}

func (s *Store) OccupiedRooms(today caldate.Date) int {
	return s.roomCount - s.AvailableRooms(today)
}

// OverbookedRooms returns the statuses of rooms with more than one active occupant.
func (s *Store) OverbookedRooms(today caldate.Date) []RoomStatus {
	var out []RoomStatus
	for _, st := range s.RoomStatuses(today) {
		if st.Overbooked() {
			out = append(out, st)
		}
	}
	return out
}

// Conflicts returns the records in room whose admission window overlaps w,
// ignoring the record with id exclude.
func (s *Store) Conflicts(room int, w Window, exclude int) []Patient {
	var out []Patient
	for _, pos := range s.index.Room(room) {
		p := s.records[pos]
		if p.ID == exclude {
			continue
		}
		if pw, ok := p.Window(); ok && pw.Overlaps(w) {
			out = append(out, p)
		}
	}
	return out
}
