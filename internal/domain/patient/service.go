package patient

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/ehr/patientrecords/internal/platform/hipaa"
	"github.com/ehr/patientrecords/pkg/caldate"
)

// Service runs every mutation as mutate, rebuild, persist. When persisting
// fails the store is restored, so an operation either fully applies or has
// no effect.
type Service struct {
	store    *Store
	repo     Repository
	logger   zerolog.Logger
	clock    func() caldate.Date
	audit    *hipaa.Auditor
	observer Observer
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the source of "today".
func WithClock(clock func() caldate.Date) Option {
	return func(s *Service) { s.clock = clock }
}

func WithAudit(a *hipaa.Auditor) Option {
	return func(s *Service) { s.audit = a }
}

func WithObserver(o Observer) Option {
	return func(s *Service) { s.observer = o }
}

func NewService(store *Store, repo Repository, logger zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		store:  store,
		repo:   repo,
		logger: logger,
		clock:  caldate.Today,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.audit == nil {
		s.audit = hipaa.NewAuditor(logger)
	}
	return s
}

// Today is the service's notion of the current day.
func (s *Service) Today() caldate.Date { return s.clock() }

func (s *Service) Store() *Store { return s.store }

// Load replaces the store with the repository contents. Malformed records are
// logged and skipped; a repository error is returned as is.
func (s *Service) Load(ctx context.Context) (int, []MalformedRecord, error) {
	res, err := s.repo.Load(ctx)
	if err != nil {
		s.observe("load", err)
		return 0, nil, fmt.Errorf("load patients: %w", err)
	}
	malformed := append(res.Malformed, s.store.Load(res.Patients)...)
	for _, m := range malformed {
		s.logger.Warn().Int("line", m.Line).Err(m.Reason).Msg("skipping malformed patient record")
	}
	s.observe("load", nil)
	s.logger.Debug().Int("count", s.store.Count()).Int("next_id", s.store.NextID()).Msg("patients loaded")
	return s.store.Count(), malformed, nil
}

// Admit validates a new admission against the intake rules, assigns the next
// id and stores it.
func (s *Service) Admit(ctx context.Context, in Intake) (Patient, error) {
	candidate, err := ValidateIntake(in, s.Today(), s.store.RoomCount())
	if err != nil {
		s.observe("admit", err)
		return Patient{}, err
	}
	candidate.ID = s.store.NextID()
	if err := s.store.CheckAvailability(candidate); err != nil {
		s.observe("admit", err)
		return Patient{}, err
	}
	if err := s.add(ctx, "admit", candidate); err != nil {
		return Patient{}, err
	}
	return candidate, nil
}

// Add stores candidate with its own id, applying only the store invariants.
func (s *Service) Add(ctx context.Context, candidate Patient) (int, error) {
	if err := s.add(ctx, "add", candidate); err != nil {
		return 0, err
	}
	return candidate.ID, nil
}

func (s *Service) add(ctx context.Context, op string, candidate Patient) error {
	err := s.mutate(ctx, func() error {
		_, err := s.store.Add(candidate)
		return err
	})
	s.record(ctx, hipaa.ActionCreate, candidate.ID, candidate.Name, "", err)
	s.observe(op, err)
	if err != nil {
		return err
	}
	s.logger.Info().
		Int("patient_id", candidate.ID).
		Str("name", hipaa.MaskName(candidate.Name)).
		Int("room", candidate.RoomNumber).
		Msg("patient added")
	return nil
}

// Update sets one field of a record.
func (s *Service) Update(ctx context.Context, id int, field Field, value string) error {
	err := s.mutate(ctx, func() error {
		return s.store.Update(id, field, value)
	})
	name := ""
	if p, getErr := s.store.Get(id); getErr == nil {
		name = p.Name
	}
	s.record(ctx, hipaa.ActionUpdate, id, name, string(field), err)
	s.observe("update", err)
	if err != nil {
		return err
	}
	s.logger.Info().Int("patient_id", id).Str("field", string(field)).Msg("patient updated")
	if field == FieldRoomNumber || field == FieldAdmissionDate || field == FieldDischargeDate {
		s.warnOverbooked()
	}
	return nil
}

// Delete removes a record.
func (s *Service) Delete(ctx context.Context, id int) error {
	name := ""
	if p, getErr := s.store.Get(id); getErr == nil {
		name = p.Name
	}
	err := s.mutate(ctx, func() error {
		return s.store.Delete(id)
	})
	s.record(ctx, hipaa.ActionDelete, id, name, "", err)
	s.observe("delete", err)
	if err != nil {
		return err
	}
	s.logger.Info().Int("patient_id", id).Msg("patient deleted")
	return nil
}

// Replace swaps the whole record set, as when restoring a backup. Records
// whose id repeats an earlier one are skipped and returned.
func (s *Service) Replace(ctx context.Context, records []Patient) ([]MalformedRecord, error) {
	var skipped []MalformedRecord
	err := s.mutate(ctx, func() error {
		skipped = s.store.Load(records)
		return nil
	})
	s.record(ctx, hipaa.ActionUpdate, 0, "", "*", err)
	s.observe("replace", err)
	if err != nil {
		return nil, err
	}
	for _, m := range skipped {
		s.logger.Warn().Int("line", m.Line).Err(m.Reason).Msg("skipping malformed patient record")
	}
	s.logger.Info().Int("count", s.store.Count()).Msg("patients replaced")
	s.warnOverbooked()
	return skipped, nil
}

func (s *Service) mutate(ctx context.Context, apply func() error) error {
	snap := s.store.snapshot()
	if err := apply(); err != nil {
		return err
	}
	if err := s.repo.Save(ctx, s.store.All()); err != nil {
		s.store.restore(snap)
		return fmt.Errorf("save patients: %w", err)
	}
	return nil
}

func (s *Service) record(ctx context.Context, action string, id int, name, field string, err error) {
	s.audit.Log(ctx, hipaa.AuditEvent{
		Action:       action,
		ResourceType: "Patient",
		EntityID:     strconv.Itoa(id),
		EntityName:   name,
		Field:        field,
		Err:          err,
	})
}

func (s *Service) observe(op string, err error) {
	if s.observer == nil {
		return
	}
	s.observer.ObserveOperation(op, err)
	today := s.Today()
	s.observer.ObserveState(s.store.Count(), s.store.OccupiedRooms(today), len(s.store.OverbookedRooms(today)))
}

func (s *Service) warnOverbooked() []RoomStatus {
	over := s.store.OverbookedRooms(s.Today())
	for _, r := range over {
		s.logger.Warn().Int("room", r.Room).Int("active", r.Active).Msg("room is overbooked")
	}
	return over
}

// Get returns the record with the given id.
func (s *Service) Get(id int) (Patient, error) { return s.store.Get(id) }

func (s *Service) SearchByName(substring string) []Patient { return s.store.SearchByName(substring) }

func (s *Service) SearchByDateRange(start, end caldate.Date) []Patient {
	return s.store.SearchByDateRange(start, end)
}

func (s *Service) ListAll() []Patient                     { return s.store.ListAll() }
func (s *Service) ListByDepartment(d string) []Patient    { return s.store.ListByDepartment(d) }
func (s *Service) ListByCondition(c string) []Patient     { return s.store.ListByCondition(c) }
func (s *Service) ListByRoom(room int) ([]Patient, error) { return s.store.ListByRoom(room) }

func (s *Service) DepartmentSummaries() []Summary { return s.store.DepartmentSummaries(s.Today()) }
func (s *Service) ConditionSummaries() []Summary  { return s.store.ConditionSummaries(s.Today()) }

// Statistics summarises the store as of today.
func (s *Service) Statistics() Statistics {
	st := s.store.Statistics(s.Today())
	if s.observer != nil {
		s.observer.ObserveState(st.Total, st.Occupied, len(st.Overbooked))
	}
	return st
}

// Room returns the status of one room today.
func (s *Service) Room(room int) (RoomStatus, error) {
	return s.store.RoomStatus(room, s.Today())
}

// Rooms returns the full room grid for today and logs a warning for every
// overbooked room.
func (s *Service) Rooms() []RoomStatus {
	s.warnOverbooked()
	return s.store.RoomStatuses(s.Today())
}
