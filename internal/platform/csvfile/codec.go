// Package csvfile stores patient records in the flat comma-delimited file
// format: one canonical header line followed by one line per record.
package csvfile

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ehr/patientrecords/internal/domain/patient"
	"github.com/ehr/patientrecords/pkg/caldate"
)

// Header is the first line of every record file.
var Header = []string{
	"ID", "Name", "MedicalHistory", "Department", "Condition",
	"AdmissionDate", "DischargeDate", "RoomNumber",
}

const commentPrefix = "//"

// Decode reads records from r. Blank lines, comment lines and the header are
// skipped; a line that cannot be turned into a record is reported in
// Malformed and reading continues. Only an I/O failure is returned as error.
func Decode(r io.Reader) (patient.LoadResult, error) {
	var res patient.LoadResult
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, commentPrefix) {
			continue
		}
		fields, err := splitLine(line)
		if err != nil {
			res.Malformed = append(res.Malformed, patient.MalformedRecord{Line: lineNo, Text: line, Reason: err})
			continue
		}
		if isHeader(fields) {
			continue
		}
		p, err := decodeRecord(fields)
		if err != nil {
			res.Malformed = append(res.Malformed, patient.MalformedRecord{Line: lineNo, Text: line, Reason: err})
			continue
		}
		res.Patients = append(res.Patients, p)
	}
	if err := sc.Err(); err != nil {
		return patient.LoadResult{}, fmt.Errorf("read records: %w", err)
	}
	return res, nil
}

// splitLine splits one record line. Older files were written without quoting,
// so a bare quote inside a field is kept as text.
func splitLine(line string) ([]string, error) {
	cr := csv.NewReader(strings.NewReader(line))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	fields, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("split fields: %w", err)
	}
	return fields, nil
}

func isHeader(fields []string) bool {
	if len(fields) != len(Header) {
		return false
	}
	for i, h := range Header {
		if strings.TrimSpace(fields[i]) != h {
			return false
		}
	}
	return true
}

func decodeRecord(fields []string) (patient.Patient, error) {
	if len(fields) != len(Header) {
		return patient.Patient{}, fmt.Errorf("%w: got %d", patient.ErrFieldCount, len(fields))
	}
	id, err := strconv.Atoi(strings.TrimSpace(fields[0]))
	if err != nil {
		return patient.Patient{}, fmt.Errorf("%w: id %q", patient.ErrNonNumericRecord, fields[0])
	}
	room, err := strconv.Atoi(strings.TrimSpace(fields[7]))
	if err != nil {
		return patient.Patient{}, fmt.Errorf("%w: room %q", patient.ErrNonNumericRecord, fields[7])
	}
	admitted, err := caldate.ParseToken(strings.TrimSpace(fields[5]))
	if err != nil {
		return patient.Patient{}, fmt.Errorf("admission date: %w", err)
	}
	discharged, err := caldate.ParseToken(strings.TrimSpace(fields[6]))
	if err != nil {
		return patient.Patient{}, fmt.Errorf("discharge date: %w", err)
	}
	return patient.Patient{
		ID:             id,
		Name:           fields[1],
		MedicalHistory: fields[2],
		Department:     fields[3],
		Condition:      fields[4],
		AdmissionDate:  admitted,
		DischargeDate:  discharged,
		RoomNumber:     room,
	}, nil
}

// Encode writes the header and one line per record, in order. Dates render
// as DD-MM-YYYY and unset dates as "Not set".
func Encode(w io.Writer, patients []patient.Patient) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, p := range patients {
		record := []string{
			strconv.Itoa(p.ID),
			p.Name,
			p.MedicalHistory,
			p.Department,
			p.Condition,
			p.AdmissionDate.String(),
			p.DischargeDate.String(),
			strconv.Itoa(p.RoomNumber),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write record %d: %w", p.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
