package patient

import (
	"github.com/ehr/patientrecords/pkg/caldate"
)

// ValidateIntake applies the admission rules to in and returns the candidate
// record without an id. Checks run in form order and the first failure wins.
// Room availability is checked by Store.CheckAvailability.
func ValidateIntake(in Intake, today caldate.Date, roomCount int) (Patient, error) {
	if err := ValidateName(in.Name); err != nil {
		return Patient{}, err
	}
	if err := ValidateMedicalHistory(in.MedicalHistory); err != nil {
		return Patient{}, err
	}
	if err := ValidateDepartment(in.Department); err != nil {
		return Patient{}, err
	}
	if err := ValidateCondition(in.Condition); err != nil {
		return Patient{}, err
	}
	admitted, err := ValidateAdmissionDate(in.AdmissionDate, today)
	if err != nil {
		return Patient{}, err
	}
	discharged, err := ValidateDischargeDate(in.DischargeDate, admitted)
	if err != nil {
		return Patient{}, err
	}
	if in.RoomNumber < 1 || in.RoomNumber > roomCount {
		return Patient{}, invalid(FieldRoomNumber, &RangeError{Room: in.RoomNumber, Max: roomCount})
	}
	return Patient{
		Name:           in.Name,
		MedicalHistory: in.MedicalHistory,
		Department:     in.Department,
		Condition:      in.Condition,
		AdmissionDate:  admitted,
		DischargeDate:  discharged,
		RoomNumber:     in.RoomNumber,
	}, nil
}

// CheckAvailability rejects candidate when another record already holds its
// room for an overlapping stay.
func (s *Store) CheckAvailability(candidate Patient) error {
	w, ok := candidate.Window()
	if !ok {
		return invalid(FieldAdmissionDate, ErrInvalidAdmissionDate)
	}
	if err := s.checkRoom(candidate.RoomNumber); err != nil {
		return invalid(FieldRoomNumber, err)
	}
	if len(s.Conflicts(candidate.RoomNumber, w, candidate.ID)) > 0 {
		return invalid(FieldRoomNumber, ErrRoomOccupied)
	}
	return nil
}
