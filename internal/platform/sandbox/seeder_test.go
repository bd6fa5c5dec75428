package sandbox

import (
	"testing"

	"github.com/ehr/patientrecords/internal/domain/patient"
	"github.com/ehr/patientrecords/pkg/caldate"
)

var anchor = caldate.MustParse("15-06-2025")

// ---------------------------------------------------------------------------
// DataGenerator
// ---------------------------------------------------------------------------

func TestDataGenerator_Deterministic(t *testing.T) {
	a := NewDataGenerator(42).GeneratePatient(1, anchor, 0.3)
	b := NewDataGenerator(42).GeneratePatient(1, anchor, 0.3)
	if a != b {
		t.Errorf("expected identical records for the same seed, got %+v and %+v", a, b)
	}
}

func TestDataGenerator_RecordsPassIntakeFieldRules(t *testing.T) {
	gen := NewDataGenerator(7)
	for i := 1; i <= 200; i++ {
		p := gen.GeneratePatient(i, anchor, 0.3)
		if err := patient.ValidateName(p.Name); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
		if err := patient.ValidateMedicalHistory(p.MedicalHistory); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
		if err := patient.ValidateCondition(p.Condition); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
		if !p.AdmissionDate.Valid() {
			t.Fatalf("record %d: invalid admission %v", i, p.AdmissionDate)
		}
		if p.AdmissionDate.Before(shift(anchor, -60)) || p.AdmissionDate.After(shift(anchor, 30)) {
			t.Errorf("record %d: admission %s outside the window", i, p.AdmissionDate)
		}
		if p.DischargeDate.IsSet() && !p.DischargeDate.After(p.AdmissionDate) {
			t.Errorf("record %d: discharge %s not after admission %s", i, p.DischargeDate, p.AdmissionDate)
		}
	}
}

func TestDataGenerator_OpenShare(t *testing.T) {
	gen := NewDataGenerator(3)
	for i := 0; i < 20; i++ {
		if p := gen.GeneratePatient(i+1, anchor, 1); p.DischargeDate.IsSet() {
			t.Fatalf("expected every stay to be open with share 1, got %s", p.DischargeDate)
		}
		if p := gen.GeneratePatient(i+1, anchor, 0); !p.DischargeDate.IsSet() {
			t.Fatal("expected every stay to be closed with share 0")
		}
	}
}

// ---------------------------------------------------------------------------
// Seeder
// ---------------------------------------------------------------------------

func TestSeeder_GenerateLoadsIntoStore(t *testing.T) {
	s := NewSeeder(SeedConfig{PatientCount: 100, RoomCount: 40, FirstID: 10, Anchor: anchor, OpenShare: 0.3, Seed: 99})
	res, err := s.Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(res.Patients)+res.Dropped != 100 {
		t.Errorf("expected every stay to be kept or dropped, got %d + %d", len(res.Patients), res.Dropped)
	}
	if res.Patients[0].ID != 10 {
		t.Errorf("expected ids to start at 10, got %d", res.Patients[0].ID)
	}

	store := patient.NewStore(40)
	for _, p := range res.Patients {
		if err := store.CheckAvailability(p); err != nil {
			t.Fatalf("record %d conflicts with an earlier stay: %v", p.ID, err)
		}
		if _, err := store.Add(p); err != nil {
			t.Fatalf("record %d rejected: %v", p.ID, err)
		}
	}
	if over := store.OverbookedRooms(anchor); len(over) != 0 {
		t.Errorf("expected no overbooked rooms, got %+v", over)
	}
}

func TestSeeder_DropsWhenRoomsRunOut(t *testing.T) {
	s := NewSeeder(SeedConfig{PatientCount: 10, RoomCount: 1, Anchor: anchor, OpenShare: 1, Seed: 5})
	res, err := s.Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(res.Patients) != 1 || res.Dropped != 9 {
		t.Errorf("expected one open-ended stay to fill the only room, got %d kept and %d dropped", len(res.Patients), res.Dropped)
	}
}

func TestSeeder_NegativeCount(t *testing.T) {
	if _, err := NewSeeder(SeedConfig{PatientCount: -1}).Generate(); err == nil {
		t.Error("expected negative count to fail")
	}
}
