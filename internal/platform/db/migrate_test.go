package db

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadMigrations(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "0002_indexes.sql", "CREATE INDEX x ON y (z);")
	writeFile(t, dir, "0001_init.sql", "CREATE TABLE y (z INT);")
	writeFile(t, dir, "notes.txt", "not a migration")
	writeFile(t, dir, "README.sql.bak", "skipped")
	writeFile(t, dir, "bogus_version.sql", "skipped, no numeric prefix")

	m := NewMigrator(nil, dir)
	migrations, err := m.LoadMigrations()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(migrations) != 2 {
		t.Fatalf("expected 2 migrations, got %d", len(migrations))
	}
	if migrations[0].Version != 1 || migrations[1].Version != 2 {
		t.Errorf("expected version order 1,2 got %d,%d", migrations[0].Version, migrations[1].Version)
	}
	if migrations[0].Name != "0001_init.sql" {
		t.Errorf("unexpected name %q", migrations[0].Name)
	}
	if migrations[0].SQL != "CREATE TABLE y (z INT);" {
		t.Errorf("unexpected content %q", migrations[0].SQL)
	}
}

func TestLoadMigrations_MissingDir(t *testing.T) {
	m := NewMigrator(nil, "/does/not/exist")
	if _, err := m.LoadMigrations(); err == nil {
		t.Error("expected error for missing directory")
	}
}
