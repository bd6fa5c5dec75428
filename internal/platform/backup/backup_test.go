package backup

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"
)

// ---------- Keys ----------

func TestNewKey(t *testing.T) {
	now := time.Date(2025, 6, 15, 9, 30, 0, 0, time.UTC)
	key := NewKey(now)
	re := regexp.MustCompile(`^snapshots/patients-20250615T093000Z-[0-9a-f]{8}\.csv$`)
	if !re.MatchString(key) {
		t.Errorf("unexpected key %q", key)
	}
	if NewKey(now) == key {
		t.Error("expected keys taken at the same instant to differ")
	}
	if err := validateKey(key); err != nil {
		t.Errorf("generated key rejected: %v", err)
	}
}

func TestValidateKey(t *testing.T) {
	for _, key := range []string{"", "snapshots/", "other/a.csv", "snapshots/../x.csv", `snapshots\a.csv`} {
		if err := validateKey(key); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("validateKey(%q) = %v, want ErrInvalidKey", key, err)
		}
	}
}

// ---------- Memory ----------

func TestMemory_PutGetList(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	data := []byte("ID,Name\n1,Jane Doe\n")

	snap, err := m.Put(ctx, "snapshots/b.csv", data)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if snap.Size != int64(len(data)) || len(snap.Hash) != 64 {
		t.Errorf("unexpected snapshot %+v", snap)
	}
	if _, err := m.Put(ctx, "snapshots/a.csv", []byte("x")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := m.Get(ctx, "snapshots/b.csv")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("Get = %q", got)
	}
	got[0] = 'X'
	again, _ := m.Get(ctx, "snapshots/b.csv")
	if again[0] != 'I' {
		t.Error("expected stored data to be isolated from callers")
	}

	list, err := m.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].Key != "snapshots/a.csv" {
		t.Errorf("expected sorted listing, got %+v", list)
	}
}

func TestMemory_Errors(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	if _, err := m.Get(ctx, "snapshots/missing.csv"); !errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("expected ErrSnapshotNotFound, got %v", err)
	}
	if _, err := m.Put(ctx, "snapshots/a.csv", nil); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := m.Put(ctx, "snapshots/a.csv", nil); !errors.Is(err, ErrSnapshotExists) {
		t.Errorf("expected ErrSnapshotExists, got %v", err)
	}
	big := make([]byte, MaxSnapshotSize+1)
	if _, err := m.Put(ctx, "snapshots/big.csv", big); !errors.Is(err, ErrSnapshotTooLarge) {
		t.Errorf("expected ErrSnapshotTooLarge, got %v", err)
	}
}

// ---------- Filesystem ----------

func TestFilesystem_RoundTrip(t *testing.T) {
	ctx := context.Background()
	f, err := NewFilesystem(t.TempDir())
	if err != nil {
		t.Fatalf("NewFilesystem: %v", err)
	}
	key := NewKey(time.Now())
	snap, err := f.Put(ctx, key, []byte("hello"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if snap.Key != key || snap.Size != 5 {
		t.Errorf("unexpected snapshot %+v", snap)
	}
	if _, err := f.Put(ctx, key, []byte("again")); !errors.Is(err, ErrSnapshotExists) {
		t.Errorf("expected ErrSnapshotExists, got %v", err)
	}
	got, err := f.Get(ctx, key)
	if err != nil || string(got) != "hello" {
		t.Errorf("Get = %q, %v", got, err)
	}
	list, err := f.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 || list[0].Key != key {
		t.Errorf("unexpected listing %+v", list)
	}
}

func TestFilesystem_EmptyAndMissing(t *testing.T) {
	ctx := context.Background()
	f, err := NewFilesystem(t.TempDir())
	if err != nil {
		t.Fatalf("NewFilesystem: %v", err)
	}
	list, err := f.List(ctx)
	if err != nil || len(list) != 0 {
		t.Errorf("expected empty listing, got %v, %v", list, err)
	}
	if _, err := f.Get(ctx, "snapshots/none.csv"); !errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("expected ErrSnapshotNotFound, got %v", err)
	}
	if _, err := f.Get(ctx, "../etc/passwd"); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("expected ErrInvalidKey, got %v", err)
	}
}

// ---------- Open ----------

func TestOpen(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, Config{Driver: DriverMemory})
	if err != nil || s.Driver() != DriverMemory {
		t.Errorf("Open(memory) = %v, %v", s, err)
	}
	s, err = Open(ctx, Config{Driver: DriverFilesystem, FSRoot: t.TempDir()})
	if err != nil || s.Driver() != DriverFilesystem {
		t.Errorf("Open(fs) = %v, %v", s, err)
	}
	if _, err := Open(ctx, Config{Driver: "tape"}); err == nil || !strings.Contains(err.Error(), "tape") {
		t.Errorf("expected unknown driver error, got %v", err)
	}
	if _, err := Open(ctx, Config{Driver: DriverS3}); err == nil {
		t.Error("expected s3 without a bucket to fail")
	}
}
