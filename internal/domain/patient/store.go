package patient

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ehr/patientrecords/pkg/caldate"
)

// DefaultRoomCount is the size of the hospital's room pool.
const DefaultRoomCount = 200

// Store owns the ordered patient records, the id counter and the derived
// index. It is not safe for concurrent use; Service serialises access.
type Store struct {
	records   []Patient
	nextID    int
	index     *Index
	roomCount int
}

// NewStore returns an empty store over rooms 1..roomCount. A non-positive
// roomCount selects DefaultRoomCount.
func NewStore(roomCount int) *Store {
	if roomCount <= 0 {
		roomCount = DefaultRoomCount
	}
	s := &Store{roomCount: roomCount}
	s.rebuild()
	return s
}

// Load replaces the store contents with records. A record reusing an id seen
// earlier in the sequence is skipped and returned as malformed.
func (s *Store) Load(records []Patient) []MalformedRecord {
	var skipped []MalformedRecord
	seen := make(map[int]bool, len(records))
	kept := make([]Patient, 0, len(records))
	for _, p := range records {
		if seen[p.ID] {
			skipped = append(skipped, MalformedRecord{
				Text:   fmt.Sprintf("id %d (%s)", p.ID, p.Name),
				Reason: ErrDuplicateID,
			})
			continue
		}
		seen[p.ID] = true
		kept = append(kept, p)
	}
	s.records = kept
	s.nextID = 1
	s.rebuild()
	return skipped
}

// rebuild re-derives the index and advances the id counter past every
// stored id. The counter never moves backwards, so deleted ids are not reused.
func (s *Store) rebuild() {
	s.index = BuildIndex(s.records)
	if s.nextID < 1 {
		s.nextID = 1
	}
	for _, p := range s.records {
		if p.ID+1 > s.nextID {
			s.nextID = p.ID + 1
		}
	}
}

// Add validates candidate and appends it. The first failing check decides the
// error: duplicate id, non-positive id, room, empty name, admission date,
// then discharge ordering. Text fields must fit on one line.
func (s *Store) Add(candidate Patient) (int, error) {
	if _, exists := s.index.Position(candidate.ID); exists {
		return 0, invalid(FieldID, ErrDuplicateID)
	}
	if err := checkRecord(candidate, s.roomCount); err != nil {
		return 0, err
	}
	s.records = append(s.records, candidate)
	s.rebuild()
	return candidate.ID, nil
}

// Update sets one field of the record with the given id. Date values go
// through caldate.Parse and its errors are returned wrapped in a
// *ValidationError. The record is left untouched when the new value would
// break a store invariant.
func (s *Store) Update(id int, field Field, value string) error {
	pos, ok := s.index.Position(id)
	if !ok {
		return &NotFoundError{ID: id}
	}
	updated := s.records[pos]
	switch field {
	case FieldName:
		updated.Name = value
	case FieldMedicalHistory:
		updated.MedicalHistory = value
	case FieldDepartment:
		updated.Department = value
	case FieldCondition:
		updated.Condition = value
	case FieldAdmissionDate:
		d, err := caldate.Parse(value)
		if err != nil {
			return invalid(field, err)
		}
		updated.AdmissionDate = d
	case FieldDischargeDate:
		d, err := caldate.Parse(value)
		if err != nil {
			return invalid(field, err)
		}
		updated.DischargeDate = d
	case FieldRoomNumber:
		room, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return invalid(field, ErrNonNumericRoom)
		}
		updated.RoomNumber = room
	case FieldID:
		return invalid(field, ErrImmutableField)
	default:
		return invalid(field, ErrUnknownField)
	}
	if err := singleLine(field, value); err != nil {
		return err
	}
	if err := checkRecord(updated, s.roomCount); err != nil {
		return err
	}
	s.records[pos] = updated
	s.rebuild()
	return nil
}

// Delete removes the record with the given id.
func (s *Store) Delete(id int) error {
	pos, ok := s.index.Position(id)
	if !ok {
		return &NotFoundError{ID: id}
	}
	s.records = append(s.records[:pos:pos], s.records[pos+1:]...)
	s.rebuild()
	return nil
}

// Get returns the record with the given id.
func (s *Store) Get(id int) (Patient, error) {
	pos, ok := s.index.Position(id)
	if !ok {
		return Patient{}, &NotFoundError{ID: id}
	}
	return s.records[pos], nil
}

func (s *Store) Count() int { return len(s.records) }

// NextID is the id the next admission will receive.
func (s *Store) NextID() int { return s.nextID }

func (s *Store) RoomCount() int { return s.roomCount }

// Index exposes the current lookup tables. The returned value is replaced,
// not modified, by later mutations.
func (s *Store) Index() *Index { return s.index }

// All returns a copy of the records in store order.
func (s *Store) All() []Patient {
	out := make([]Patient, len(s.records))
	copy(out, s.records)
	return out
}

func (s *Store) at(positions []int) []Patient {
	out := make([]Patient, 0, len(positions))
	for _, pos := range positions {
		out = append(out, s.records[pos])
	}
	return out
}

// snapshot captures the state a failed persist must restore.
type snapshot struct {
	records []Patient
	nextID  int
}

func (s *Store) snapshot() snapshot {
	return snapshot{records: s.All(), nextID: s.nextID}
}

func (s *Store) restore(snap snapshot) {
	s.records = snap.records
	s.nextID = snap.nextID
	s.rebuild()
}
