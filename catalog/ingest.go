package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gorm.io/gorm"

	"mimestore/logging"
	"mimestore/models"
	"mimestore/storage"
)

// Outcome statuses. Every ingest run ends in exactly one of these; errors
// are reported here and never escape the pipeline.
const (
	StatusCopied = "copied"
	StatusDryRun = "dry-run"
	StatusError  = "error"
)

// Outcome reasons for StatusError.
const (
	ReasonNotFound  = "not_found"
	ReasonIOFailure = "io_failure"
)

// Outcome is the tagged result of ingesting one file.
type Outcome struct {
	Status   string `json:"status"`
	Reason   string `json:"reason,omitempty"`
	ID       int64  `json:"id,omitempty"`
	Original string `json:"original"`
	Stored   string `json:"stored_path,omitempty"`
	MIME     string `json:"mime,omitempty"`
	Category string `json:"category,omitempty"`
	SHA256   string `json:"sha256,omitempty"`
}

// Pipeline ingests files into one storage location and catalog database.
// Both handles are explicit; nothing here touches global state. A Pipeline
// is the single writer for its catalog.
type Pipeline struct {
	loc    storage.Location
	db     *gorm.DB
	dryRun bool

	mu        sync.Mutex
	lastStamp int64
	now       func() time.Time
}

// NewPipeline wires a pipeline to a provisioned location and an open catalog
// handle. With dryRun set, Ingest simulates runs without copying or writing
// records.
func NewPipeline(loc storage.Location, gdb *gorm.DB, dryRun bool) *Pipeline {
	return &Pipeline{loc: loc, db: gdb, dryRun: dryRun, now: time.Now}
}

// stamp returns the epoch-millisecond prefix for a destination name. Stamps
// are strictly increasing per pipeline, so two files ingested inside the
// same millisecond still get distinct destinations.
func (p *Pipeline) stamp() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	ms := p.now().UnixMilli()
	if ms <= p.lastStamp {
		ms = p.lastStamp + 1
	}
	p.lastStamp = ms
	return ms
}

// Ingest runs the full pipeline for one file: validate, classify, extract
// metadata for JSON, fingerprint, copy into the category tree, persist the
// record. The source file is copied, never moved or modified.
func (p *Pipeline) Ingest(path string) Outcome {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return Outcome{Status: StatusError, Reason: ReasonNotFound, Original: path}
	}

	name := filepath.Base(path)
	mimeType, category := Classify(name, InferMIME(path))

	var meta JSONMeta
	if category == "json" {
		data, err := os.ReadFile(path)
		if err == nil {
			meta, err = ExtractJSON(data)
		}
		if err != nil {
			// Unparseable JSON is not fatal; the file is still stored,
			// just without searchable metadata.
			logging.Warnf("no json metadata for %s: %v", path, err)
			meta = JSONMeta{}
		}
	}

	sha, err := DigestFile(path)
	if err != nil {
		return Outcome{Status: StatusError, Reason: ReasonIOFailure, Original: path}
	}

	destName := fmt.Sprintf("%d_%s", p.stamp(), storage.SanitizeName(name))
	destPath := filepath.Join(p.loc.CategoryDir(category), destName)

	if p.dryRun {
		return Outcome{
			Status:   StatusDryRun,
			Original: path,
			Stored:   destPath,
			MIME:     mimeType,
			Category: category,
			SHA256:   sha,
		}
	}

	if err := storage.CopyFile(path, destPath); err != nil {
		logging.Errorw("copy failed", "path", path, "dest", destPath, "error", err)
		return Outcome{Status: StatusError, Reason: ReasonIOFailure, Original: path}
	}

	rec := models.FileRecord{
		OriginalPath:   path,
		StoredPath:     destPath,
		MIME:           mimeType,
		Category:       category,
		SHA256:         sha,
		AddedAt:        p.now().UTC().Format(time.RFC3339),
		JSONKeys:       meta.Keys,
		JSONPreview:    meta.Preview,
		JSONSearchText: meta.SearchText,
	}
	if err := models.Insert(p.db, &rec); err != nil {
		// The copy already landed; the record did not. At-least-once, not
		// exactly-once: an orphaned stored file is possible here.
		logging.Errorw("record insert failed", "path", path, "dest", destPath, "error", err)
		return Outcome{Status: StatusError, Reason: ReasonIOFailure, Original: path}
	}

	return Outcome{
		Status:   StatusCopied,
		ID:       rec.ID,
		Original: path,
		Stored:   destPath,
		MIME:     mimeType,
		Category: category,
		SHA256:   sha,
	}
}

// IngestBatch processes paths sequentially. One file's failure never stops
// the rest of the batch.
func (p *Pipeline) IngestBatch(paths []string) []Outcome {
	outcomes := make([]Outcome, 0, len(paths))
	for _, path := range paths {
		outcomes = append(outcomes, p.Ingest(path))
	}
	return outcomes
}
