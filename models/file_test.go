package models

import (
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "catalog.sqlite")
	gdb, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	return gdb
}

func TestMigrate_CreatesTableAndIsIdempotent(t *testing.T) {
	gdb := openTestDB(t)

	if err := Migrate(gdb); err != nil {
		t.Fatalf("first Migrate failed: %v", err)
	}
	if !gdb.Migrator().HasTable(&FileRecord{}) {
		t.Fatal("files table missing after Migrate")
	}
	if err := Migrate(gdb); err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}
}

// A catalog created before the JSON metadata columns existed must gain them
// on migration, with existing rows untouched and their new columns empty.
func TestMigrate_AddsJSONColumnsToLegacySchema(t *testing.T) {
	gdb := openTestDB(t)

	legacy := `CREATE TABLE files (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		original_path TEXT,
		stored_path TEXT,
		mime TEXT,
		category TEXT,
		sha256 TEXT,
		added_at TEXT
	)`
	if err := gdb.Exec(legacy).Error; err != nil {
		t.Fatalf("create legacy table: %v", err)
	}
	insert := `INSERT INTO files (original_path, stored_path, mime, category, sha256, added_at)
		VALUES ('/tmp/old.txt', '/store/text/1_old.txt', 'text/plain', 'text', 'abc', '2020-01-01T00:00:00Z')`
	if err := gdb.Exec(insert).Error; err != nil {
		t.Fatalf("insert legacy row: %v", err)
	}

	if err := Migrate(gdb); err != nil {
		t.Fatalf("Migrate over legacy schema failed: %v", err)
	}
	if err := Migrate(gdb); err != nil {
		t.Fatalf("repeat Migrate failed: %v", err)
	}

	var rec FileRecord
	if err := gdb.First(&rec).Error; err != nil {
		t.Fatalf("read migrated row: %v", err)
	}
	if rec.OriginalPath != "/tmp/old.txt" || rec.SHA256 != "abc" {
		t.Errorf("legacy row disturbed: %+v", rec)
	}
	if rec.JSONKeys != "" || rec.JSONPreview != "" || rec.JSONSearchText != "" {
		t.Errorf("new columns should read empty, got %+v", rec)
	}
}

func TestInsertAndRecent(t *testing.T) {
	gdb := openTestDB(t)
	if err := Migrate(gdb); err != nil {
		t.Fatal(err)
	}

	for i, name := range []string{"a.txt", "b.txt", "c.txt"} {
		rec := FileRecord{
			OriginalPath: "/src/" + name,
			StoredPath:   "/store/text/" + name,
			MIME:         "text/plain",
			Category:     "text",
			AddedAt:      "2024-01-01T00:00:00Z",
		}
		if err := Insert(gdb, &rec); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
		if rec.ID == 0 {
			t.Fatalf("insert %d did not assign an id", i)
		}
	}

	recs, err := Recent(gdb, 2)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if recs[0].ID <= recs[1].ID {
		t.Errorf("records not newest-first: %d, %d", recs[0].ID, recs[1].ID)
	}
	if filepath.Base(recs[0].StoredPath) != "c.txt" {
		t.Errorf("unexpected newest record: %s", recs[0].StoredPath)
	}
}

func TestInsert_DuplicateStoredPathRejected(t *testing.T) {
	gdb := openTestDB(t)
	if err := Migrate(gdb); err != nil {
		t.Fatal(err)
	}

	rec := FileRecord{StoredPath: "/store/text/1_same.txt", Category: "text"}
	if err := Insert(gdb, &rec); err != nil {
		t.Fatal(err)
	}
	dup := FileRecord{StoredPath: "/store/text/1_same.txt", Category: "text"}
	if err := Insert(gdb, &dup); err == nil {
		t.Fatal("expected unique constraint violation on stored_path")
	}
}
