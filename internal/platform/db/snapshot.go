package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ehr/patientrecords/internal/domain/patient"
	"github.com/ehr/patientrecords/pkg/caldate"
)

var _ patient.Repository = (*Repository)(nil)

// Repository keeps the patient records in the patient_record table. Every
// Save replaces the table contents with the full record sequence inside one
// transaction; position preserves store order.
type Repository struct {
	db      *sql.DB
	dialect Dialect
}

func NewRepository(conn *sql.DB, dialect Dialect) *Repository {
	return &Repository{db: conn, dialect: dialect}
}

// OpenRepository opens the database, applies pending migrations and returns
// a repository over it.
func OpenRepository(ctx context.Context, dialect Dialect, dsn string) (*Repository, error) {
	conn, err := Open(ctx, dialect, dsn)
	if err != nil {
		return nil, err
	}
	if _, err := NewMigrator(conn, dialect).Up(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return NewRepository(conn, dialect), nil
}

func (r *Repository) Close() error { return r.db.Close() }

const selectRecords = `SELECT id, name, medical_history, department, patient_condition,
	admission_date, discharge_date, room_number
FROM patient_record ORDER BY position`

// Load reads every row in store order. Rows whose dates no longer parse are
// reported as malformed.
func (r *Repository) Load(ctx context.Context) (patient.LoadResult, error) {
	rows, err := r.db.QueryContext(ctx, selectRecords)
	if err != nil {
		return patient.LoadResult{}, fmt.Errorf("select patient records: %w", err)
	}
	defer rows.Close()

	var res patient.LoadResult
	row := 0
	for rows.Next() {
		row++
		var (
			p                    patient.Patient
			admitted, discharged string
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.MedicalHistory, &p.Department, &p.Condition,
			&admitted, &discharged, &p.RoomNumber); err != nil {
			return patient.LoadResult{}, fmt.Errorf("scan patient record: %w", err)
		}
		if p.AdmissionDate, err = caldate.ParseToken(admitted); err != nil {
			res.Malformed = append(res.Malformed, malformedRow(row, p.ID, "admission date", err))
			continue
		}
		if p.DischargeDate, err = caldate.ParseToken(discharged); err != nil {
			res.Malformed = append(res.Malformed, malformedRow(row, p.ID, "discharge date", err))
			continue
		}
		res.Patients = append(res.Patients, p)
	}
	if err := rows.Err(); err != nil {
		return patient.LoadResult{}, fmt.Errorf("iterate patient records: %w", err)
	}
	return res, nil
}

func malformedRow(row, id int, what string, err error) patient.MalformedRecord {
	return patient.MalformedRecord{
		Line:   row,
		Text:   fmt.Sprintf("patient_record id %d", id),
		Reason: fmt.Errorf("%s: %w", what, err),
	}
}

const insertRecord = `INSERT INTO patient_record (position, id, name, medical_history, department,
	patient_condition, admission_date, discharge_date, room_number)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

// Save replaces the stored records with patients.
func (r *Repository) Save(ctx context.Context, patients []patient.Patient) (retErr error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM patient_record`); err != nil {
		return fmt.Errorf("clear patient records: %w", err)
	}
	insert := r.dialect.rebind(insertRecord)
	for i, p := range patients {
		if _, err := tx.ExecContext(ctx, insert,
			i, p.ID, p.Name, p.MedicalHistory, p.Department, p.Condition,
			p.AdmissionDate.String(), p.DischargeDate.String(), p.RoomNumber,
		); err != nil {
			return fmt.Errorf("insert patient %d: %w", p.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
