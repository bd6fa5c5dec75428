// Package sandbox generates synthetic patient records for demos and load
// testing. Output is reproducible for a given seed.
package sandbox

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/ehr/patientrecords/internal/domain/patient"
	"github.com/ehr/patientrecords/pkg/caldate"
)

// ---------------------------------------------------------------------------
// Configuration
// ---------------------------------------------------------------------------

// SeedConfig controls the volume and shape of generated records.
type SeedConfig struct {
	PatientCount int
	RoomCount    int
	FirstID      int
	// Anchor is the day stays are scattered around: admissions fall between
	// 60 days before and 30 days after it.
	Anchor caldate.Date
	// OpenShare is the fraction of stays generated without a discharge date.
	OpenShare float64
	Seed      int64
}

// DefaultSeedConfig returns a SeedConfig with sensible demo defaults.
func DefaultSeedConfig() SeedConfig {
	return SeedConfig{
		PatientCount: 50,
		RoomCount:    patient.DefaultRoomCount,
		FirstID:      1,
		Anchor:       caldate.Today(),
		OpenShare:    0.3,
	}
}

// ---------------------------------------------------------------------------
// Reference pools
// ---------------------------------------------------------------------------

var (
	firstNames = []string{
		"James", "Robert", "John", "Michael", "David", "William", "Richard",
		"Joseph", "Thomas", "Daniel", "Matthew", "Anthony", "Kevin", "Brian",
		"Mary", "Patricia", "Jennifer", "Linda", "Barbara", "Elizabeth",
		"Susan", "Jessica", "Sarah", "Karen", "Lisa", "Nancy", "Emily",
		"Rachel", "Janet", "Catherine", "Maria", "Heather", "Diane",
	}
	lastNames = []string{
		"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia",
		"Miller", "Davis", "Rodriguez", "Martinez", "Wilson", "Anderson",
		"Taylor", "Moore", "Jackson", "Martin", "Lee", "Thompson", "White",
		"Harris", "Clark", "Lewis", "Walker", "Young", "King", "Nguyen",
	}

	departments = []string{
		"Cardiology", "ICU", "Oncology", "Neurology", "Orthopedics",
		"Pediatrics", "Emergency", "Maternity", "General Surgery",
	}

	conditions = []string{
		"Type 2 diabetes mellitus",
		"Essential hypertension",
		"Asthma",
		"Hyperlipidemia",
		"Upper respiratory infection",
		"Low back pain",
		"Major depressive disorder",
		"Gastro-esophageal reflux disease",
		"Urinary tract infection",
		"Acute bronchitis",
		"Pneumonia",
		"Migraine",
		"Atrial fibrillation",
		"Fractured femur",
	}

	histories = []string{
		"",
		"No known allergies",
		"Penicillin allergy",
		"Latex allergy",
		"Previous appendectomy",
		"Smoker, 20 pack-years",
		"Family history of heart disease",
		"Type 1 diabetes since childhood",
	}
)

// ---------------------------------------------------------------------------
// DataGenerator
// ---------------------------------------------------------------------------

// DataGenerator produces deterministic synthetic field values.
type DataGenerator struct {
	rng *rand.Rand
}

// NewDataGenerator returns a generator seeded for reproducibility. If seed is
// 0 a time-based seed is chosen.
func NewDataGenerator(seed int64) *DataGenerator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &DataGenerator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

func (g *DataGenerator) pick(pool []string) string {
	return pool[g.rng.Intn(len(pool))]
}

// shift moves day by n days.
func shift(day caldate.Date, n int) caldate.Date {
	return caldate.FromTime(day.Time().AddDate(0, 0, n))
}

// GeneratePatient produces one record with the given id. The room is chosen
// by the caller.
func (g *DataGenerator) GeneratePatient(id int, anchor caldate.Date, openShare float64) patient.Patient {
	admitted := shift(anchor, g.rng.Intn(91)-60)
	discharged := caldate.Unset
	if g.rng.Float64() >= openShare {
		discharged = shift(admitted, 1+g.rng.Intn(21))
	}
	return patient.Patient{
		ID:             id,
		Name:           g.pick(firstNames) + " " + g.pick(lastNames),
		MedicalHistory: g.pick(histories),
		Department:     g.pick(departments),
		Condition:      g.pick(conditions),
		AdmissionDate:  admitted,
		DischargeDate:  discharged,
	}
}

// ---------------------------------------------------------------------------
// Seeder
// ---------------------------------------------------------------------------

// maxRoomAttempts bounds the search for a free room per generated stay.
const maxRoomAttempts = 20

// Seeder produces a batch of records whose stays never overlap within a room.
type Seeder struct {
	generator *DataGenerator
	config    SeedConfig
}

// SeedResult summarizes a generated batch.
type SeedResult struct {
	Patients []patient.Patient
	// Dropped counts stays that found no free room.
	Dropped  int
	Duration time.Duration
}

// NewSeeder creates a new Seeder with the given config.
func NewSeeder(config SeedConfig) *Seeder {
	def := DefaultSeedConfig()
	if config.RoomCount <= 0 {
		config.RoomCount = def.RoomCount
	}
	if config.FirstID <= 0 {
		config.FirstID = def.FirstID
	}
	if !config.Anchor.IsSet() {
		config.Anchor = def.Anchor
	}
	return &Seeder{
		generator: NewDataGenerator(config.Seed),
		config:    config,
	}
}

// Generate creates PatientCount records, or fewer when rooms run out.
func (s *Seeder) Generate() (*SeedResult, error) {
	if s.config.PatientCount < 0 {
		return nil, fmt.Errorf("patient count must not be negative, got %d", s.config.PatientCount)
	}
	start := time.Now()
	result := &SeedResult{Patients: make([]patient.Patient, 0, s.config.PatientCount)}
	booked := make(map[int][]patient.Window, s.config.RoomCount)
	id := s.config.FirstID

	for i := 0; i < s.config.PatientCount; i++ {
		p := s.generator.GeneratePatient(id, s.config.Anchor, s.config.OpenShare)
		w, _ := p.Window()
		room := s.freeRoom(booked, w)
		if room == 0 {
			result.Dropped++
			continue
		}
		p.RoomNumber = room
		booked[room] = append(booked[room], w)
		result.Patients = append(result.Patients, p)
		id++
	}

	result.Duration = time.Since(start)
	return result, nil
}

// freeRoom returns a random room with no stay overlapping w, or 0.
func (s *Seeder) freeRoom(booked map[int][]patient.Window, w patient.Window) int {
	for attempt := 0; attempt < maxRoomAttempts; attempt++ {
		room := 1 + s.generator.rng.Intn(s.config.RoomCount)
		free := true
		for _, other := range booked[room] {
			if other.Overlaps(w) {
				free = false
				break
			}
		}
		if free {
			return room
		}
	}
	return 0
}
