package csvfile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ehr/patientrecords/internal/domain/patient"
)

// ErrMissingFile is returned by Load when the record file does not exist.
var ErrMissingFile = errors.New("record file does not exist")

// Repository is a patient.Repository over one record file.
type Repository struct {
	path string
}

var _ patient.Repository = (*Repository)(nil)

func NewRepository(path string) *Repository {
	return &Repository{path: path}
}

func (r *Repository) Path() string { return r.path }

// Init creates the record file with only the header line. An existing file
// is left untouched and created is false.
func (r *Repository) Init(ctx context.Context) (created bool, err error) {
	if _, err := os.Stat(r.path); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("stat %s: %w", r.path, err)
	}
	if err := r.Save(ctx, nil); err != nil {
		return false, err
	}
	return true, nil
}

// Load reads every record from the file.
func (r *Repository) Load(_ context.Context) (patient.LoadResult, error) {
	f, err := os.Open(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return patient.LoadResult{}, fmt.Errorf("%w: %s", ErrMissingFile, r.path)
		}
		return patient.LoadResult{}, fmt.Errorf("open %s: %w", r.path, err)
	}
	defer f.Close()
	return Decode(f)
}

// Save rewrites the whole file. The new content is written to a temporary
// file in the same directory and renamed over the target.
func (r *Repository) Save(_ context.Context, patients []patient.Patient) error {
	var buf bytes.Buffer
	if err := Encode(&buf, patients); err != nil {
		return fmt.Errorf("encode records: %w", err)
	}
	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		cleanup()
		return fmt.Errorf("replace %s: %w", r.path, err)
	}
	return nil
}
