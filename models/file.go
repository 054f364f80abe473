package models

import (
	"fmt"

	"gorm.io/gorm"
)

// FileRecord is one row of the catalog: a single ingested file. Rows are only
// ever appended; nothing in this codebase updates or deletes them.
type FileRecord struct {
	ID             int64  `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	OriginalPath   string `gorm:"column:original_path" json:"original_path"`
	StoredPath     string `gorm:"column:stored_path;uniqueIndex" json:"stored_path"`
	MIME           string `gorm:"column:mime" json:"mime"`
	Category       string `gorm:"column:category" json:"category"`
	SHA256         string `gorm:"column:sha256" json:"sha256"`
	AddedAt        string `gorm:"column:added_at" json:"added_at"`
	JSONKeys       string `gorm:"column:json_keys" json:"json_keys"`
	JSONPreview    string `gorm:"column:json_preview" json:"json_preview"`
	JSONSearchText string `gorm:"column:json_search_text" json:"json_search_text"`
}

func (FileRecord) TableName() string {
	return "files"
}

// jsonColumns were added after the first release; catalogs created before
// then lack them and get them via Migrate.
var jsonColumns = []string{"json_keys", "json_preview", "json_search_text"}

// Migrate creates the files table if it does not exist. For a pre-existing
// table it only adds the JSON metadata columns that are missing; existing
// rows keep their data and read the new columns as empty. Running Migrate
// against an up-to-date catalog is a no-op.
func Migrate(db *gorm.DB) error {
	m := db.Migrator()
	if !m.HasTable(&FileRecord{}) {
		if err := m.CreateTable(&FileRecord{}); err != nil {
			return fmt.Errorf("create files table: %w", err)
		}
		return nil
	}
	for _, col := range jsonColumns {
		if m.HasColumn(&FileRecord{}, col) {
			continue
		}
		if err := m.AddColumn(&FileRecord{}, col); err != nil {
			return fmt.Errorf("add column %s: %w", col, err)
		}
	}
	return nil
}

// Insert appends one record and fills in its assigned id.
func Insert(db *gorm.DB, rec *FileRecord) error {
	if err := db.Create(rec).Error; err != nil {
		return fmt.Errorf("insert file record: %w", err)
	}
	return nil
}

// Recent returns up to limit records, most recently inserted first.
func Recent(db *gorm.DB, limit int) ([]FileRecord, error) {
	var recs []FileRecord
	if err := db.Order("id desc").Limit(limit).Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list recent records: %w", err)
	}
	return recs, nil
}

// ByID fetches a single record.
func ByID(db *gorm.DB, id int64) (*FileRecord, error) {
	var rec FileRecord
	if err := db.First(&rec, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}
