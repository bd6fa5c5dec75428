package db

import (
	"context"
	"path/filepath"
	"testing"
)

func TestLoadMigrations(t *testing.T) {
	migrator := NewMigrator(nil, SQLite)
	migrations, err := migrator.LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations() error: %v", err)
	}
	if len(migrations) < 2 {
		t.Fatalf("expected at least 2 migrations, got %d", len(migrations))
	}
	if migrations[0].Version != 1 || migrations[0].Name != "001_patient_record.sql" {
		t.Errorf("unexpected first migration %d %s", migrations[0].Version, migrations[0].Name)
	}
	for i := 1; i < len(migrations); i++ {
		if migrations[i].Version <= migrations[i-1].Version {
			t.Errorf("migrations not sorted: %d after %d", migrations[i].Version, migrations[i-1].Version)
		}
	}
}

func TestMigrator_UpIsIdempotent(t *testing.T) {
	ctx := context.Background()
	conn, err := Open(ctx, SQLite, filepath.Join(t.TempDir(), "patients.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer conn.Close()

	m := NewMigrator(conn, SQLite)
	n, err := m.Up(ctx)
	if err != nil {
		t.Fatalf("Up: %v", err)
	}
	all, _ := m.LoadMigrations()
	if n != len(all) {
		t.Errorf("expected %d migrations applied, got %d", len(all), n)
	}

	n, err = m.Up(ctx)
	if err != nil || n != 0 {
		t.Errorf("second Up() = %d, %v; want 0, nil", n, err)
	}

	statuses, err := m.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	for _, s := range statuses {
		if !s.Applied || s.AppliedAt == "" {
			t.Errorf("expected migration %d to be applied, got %+v", s.Version, s)
		}
	}
}

func TestRebind(t *testing.T) {
	q := "INSERT INTO t (a, b) VALUES (?, ?)"
	if got := Postgres.rebind(q); got != "INSERT INTO t (a, b) VALUES ($1, $2)" {
		t.Errorf("Postgres.rebind = %q", got)
	}
	if got := SQLite.rebind(q); got != q {
		t.Errorf("SQLite.rebind = %q", got)
	}
}

func TestOpen_UnknownDialect(t *testing.T) {
	if _, err := Open(context.Background(), Dialect("oracle"), "x"); err == nil {
		t.Error("expected an error for an unsupported dialect")
	}
}
