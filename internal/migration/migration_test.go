package migration

import (
	"database/sql"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"

	"github.com/julianstephens/agenda/migrations"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "migrate.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func files(m map[string]string) fstest.MapFS {
	fsys := fstest.MapFS{}
	for name, body := range m {
		fsys[name] = &fstest.MapFile{Data: []byte(body)}
	}
	return fsys
}

func hasTable(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", name).Scan(&n); err != nil {
		t.Fatalf("sqlite_master: %v", err)
	}
	return n == 1
}

func TestMigrationsOrdered(t *testing.T) {
	r := NewRunner(openDB(t), files(map[string]string{
		"001_schedules.sql":  "CREATE TABLE a (id INTEGER);",
		"010_late.sql":       "CREATE TABLE c (id INTEGER);",
		"002_exceptions.sql": "CREATE TABLE b (id INTEGER);",
		"notes.txt":          "ignored",
	}), DialectSQLite)

	got, err := r.Migrations()
	if err != nil {
		t.Fatalf("Migrations: %v", err)
	}
	var names []string
	for _, m := range got {
		names = append(names, m.Name)
	}
	if strings.Join(names, ",") != "schedules,exceptions,late" {
		t.Errorf("order = %v", names)
	}
	if got[2].Version != 10 {
		t.Errorf("version = %d, want 10", got[2].Version)
	}
}

func TestMigrationsBadNames(t *testing.T) {
	tests := []struct {
		name    string
		files   map[string]string
		wantErr string
	}{
		{"no separator", map[string]string{"001init.sql": "SELECT 1;"}, "invalid migration filename"},
		{"empty name", map[string]string{"001_.sql": "SELECT 1;"}, "invalid migration filename"},
		{"zero", map[string]string{"000_init.sql": "SELECT 1;"}, "at least 1"},
		{"not a number", map[string]string{"one_init.sql": "SELECT 1;"}, "invalid version number"},
		{"duplicate", map[string]string{"001_a.sql": "SELECT 1;", "1_b.sql": "SELECT 1;"}, "duplicate migration version 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRunner(openDB(t), files(tt.files), DialectSQLite).Migrations()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Migrations() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestUpIncremental(t *testing.T) {
	db := openDB(t)
	fsys := files(map[string]string{
		"001_schedules.sql": "CREATE TABLE schedules (id TEXT PRIMARY KEY);",
	})
	r := NewRunner(db, fsys, DialectSQLite)

	var log []string
	n, err := r.Up(func(s string) { log = append(log, s) })
	if err != nil || n != 1 {
		t.Fatalf("Up = %d, %v", n, err)
	}
	if !hasTable(t, db, "schedules") || len(log) == 0 {
		t.Fatalf("expected schedules table and progress output, log=%v", log)
	}

	fsys["002_exceptions.sql"] = &fstest.MapFile{Data: []byte("CREATE TABLE schedule_exceptions (schedule_id TEXT);")}
	if n, err = r.Up(nil); err != nil || n != 1 {
		t.Fatalf("second Up = %d, %v", n, err)
	}
	if n, err = r.Up(nil); err != nil || n != 0 {
		t.Fatalf("third Up = %d, %v", n, err)
	}

	cur, err := r.Current()
	if err != nil || cur != 2 {
		t.Errorf("Current = %d, %v", cur, err)
	}
	var rows int
	if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&rows); err != nil || rows != 2 {
		t.Errorf("history rows = %d, %v", rows, err)
	}
	if err := r.Check(); err != nil {
		t.Errorf("Check on current schema: %v", err)
	}
}

func TestUpRollsBackFailure(t *testing.T) {
	db := openDB(t)
	r := NewRunner(db, files(map[string]string{
		"001_ok.sql":     "CREATE TABLE first (id INTEGER);",
		"002_broken.sql": "CREATE TABLE second (id INTEGER); NOT SQL AT ALL;",
	}), DialectSQLite)

	n, err := r.Up(nil)
	if err == nil {
		t.Fatal("expected failure")
	}
	if n != 1 {
		t.Errorf("applied = %d, want 1", n)
	}
	if !hasTable(t, db, "first") || hasTable(t, db, "second") {
		t.Error("the failing migration should leave no trace")
	}
	if cur, _ := r.Current(); cur != 1 {
		t.Errorf("Current = %d, want 1", cur)
	}
}

func TestCheck(t *testing.T) {
	db := openDB(t)
	r := NewRunner(db, files(map[string]string{
		"001_init.sql": "CREATE TABLE t (id INTEGER);",
	}), DialectSQLite)

	if err := r.Check(); err == nil || !strings.Contains(err.Error(), "behind") {
		t.Errorf("Check on empty db = %v, want behind", err)
	}

	if _, err := r.Up(nil); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec("INSERT INTO schema_migrations (version, name, applied_at) VALUES (7, 'future', 'x')"); err != nil {
		t.Fatal(err)
	}
	if err := r.Check(); err == nil || !strings.Contains(err.Error(), "newer") {
		t.Errorf("Check = %v, want newer", err)
	}
	if _, err := r.Up(nil); err == nil {
		t.Error("Up should refuse a newer schema")
	}
}

func TestEmbeddedSQLite(t *testing.T) {
	db := openDB(t)
	sub, err := fs.Sub(migrations.FS, "sqlite")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewRunner(db, sub, DialectSQLite).Up(nil); err != nil {
		t.Fatalf("Up: %v", err)
	}
	for _, table := range []string{"schedules", "schedule_exceptions"} {
		if !hasTable(t, db, table) {
			t.Errorf("%s missing", table)
		}
	}
}

func TestRecordQueryPlaceholders(t *testing.T) {
	pg := NewRunner(nil, fstest.MapFS{}, DialectPostgres).recordQuery()
	if !strings.Contains(pg, "$1, $2, $3") {
		t.Errorf("postgres = %q", pg)
	}
	lite := NewRunner(nil, fstest.MapFS{}, DialectSQLite).recordQuery()
	if !strings.Contains(lite, "?, ?, ?") {
		t.Errorf("sqlite = %q", lite)
	}
}
