package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"mimestore/catalog"
	"mimestore/logging"
	"mimestore/models"
	"mimestore/storage"
)

// Job tracks one background ingestion batch.
type Job struct {
	ID       string            `json:"id"`
	Status   string            `json:"status"` // queued, running, done
	DryRun   bool              `json:"dry_run"`
	Total    int               `json:"total"`
	Done     int               `json:"done"`
	Outcomes []catalog.Outcome `json:"outcomes"`

	paths []string
}

// API holds the handlers' shared state. Ingestion batches are queued onto a
// single runner goroutine, so only one pipeline ever writes to the catalog
// at a time; search handlers read concurrently with best-effort isolation.
type API struct {
	loc      storage.Location
	db       *gorm.DB
	searcher *catalog.Searcher
	pipeline *catalog.Pipeline
	dryPipe  *catalog.Pipeline

	mu    sync.Mutex
	jobs  map[string]*Job
	queue chan *Job
}

func New(loc storage.Location, gdb *gorm.DB) *API {
	a := &API{
		loc:      loc,
		db:       gdb,
		searcher: catalog.NewSearcher(loc, gdb),
		pipeline: catalog.NewPipeline(loc, gdb, false),
		dryPipe:  catalog.NewPipeline(loc, gdb, true),
		jobs:     make(map[string]*Job),
		queue:    make(chan *Job, 64),
	}
	go a.run()
	return a
}

// Register mounts all routes onto the api group.
func (a *API) Register(api *gin.RouterGroup) {
	api.POST("/ingest", a.StartIngest)
	api.GET("/ingest/:id", a.IngestStatus)
	api.GET("/search", a.Search)
	api.GET("/files", a.RecentFiles)
	api.GET("/files/:id/download", a.DownloadFile)
}

// run is the single batch runner. Files within a batch are processed
// sequentially; batches are processed in arrival order.
func (a *API) run() {
	for job := range a.queue {
		a.mu.Lock()
		job.Status = "running"
		a.mu.Unlock()

		pipe := a.pipeline
		if job.DryRun {
			pipe = a.dryPipe
		}
		for _, path := range job.paths {
			outcome := pipe.Ingest(path)
			a.mu.Lock()
			job.Outcomes = append(job.Outcomes, outcome)
			job.Done++
			a.mu.Unlock()
		}

		a.mu.Lock()
		job.Status = "done"
		a.mu.Unlock()
		logging.Infow("ingest batch finished", "job", job.ID, "files", job.Total, "dry_run", job.DryRun)
	}
}

// StartIngest queues a batch of local paths for ingestion and returns a job
// id the caller can poll.
func (a *API) StartIngest(c *gin.Context) {
	var input struct {
		Paths  []string `json:"paths"`
		DryRun bool     `json:"dry_run"`
	}
	if err := c.BindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	if len(input.Paths) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No paths provided"})
		return
	}

	job := &Job{
		ID:       uuid.New().String(),
		Status:   "queued",
		DryRun:   input.DryRun,
		Total:    len(input.Paths),
		Outcomes: []catalog.Outcome{},
		paths:    input.Paths,
	}
	a.mu.Lock()
	a.jobs[job.ID] = job
	a.mu.Unlock()
	a.queue <- job

	c.JSON(http.StatusAccepted, gin.H{"job_id": job.ID})
}

// IngestStatus reports a job's progress and per-file outcomes so far.
func (a *API) IngestStatus(c *gin.Context) {
	a.mu.Lock()
	job, ok := a.jobs[c.Param("id")]
	if !ok {
		a.mu.Unlock()
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}
	snapshot := Job{
		ID:       job.ID,
		Status:   job.Status,
		DryRun:   job.DryRun,
		Total:    job.Total,
		Done:     job.Done,
		Outcomes: append([]catalog.Outcome{}, job.Outcomes...),
	}
	a.mu.Unlock()

	c.JSON(http.StatusOK, snapshot)
}

// Search answers a free-text or type-scoped query.
func (a *API) Search(c *gin.Context) {
	results := a.searcher.Search(c.Query("q"))
	c.JSON(http.StatusOK, results)
}

// RecentFiles lists the most recently ingested records, newest first.
func (a *API) RecentFiles(c *gin.Context) {
	limit := 50
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	recs, err := models.Recent(a.db, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch records"})
		return
	}
	if recs == nil {
		recs = []models.FileRecord{}
	}
	c.JSON(http.StatusOK, recs)
}

// DownloadFile serves the stored bytes of a record, named by its display name.
func (a *API) DownloadFile(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id"})
		return
	}
	rec, err := models.ByID(a.db, id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
		return
	}
	if _, err := os.Stat(rec.StoredPath); os.IsNotExist(err) {
		c.JSON(http.StatusNotFound, gin.H{"error": "File content not found"})
		return
	}
	c.FileAttachment(rec.StoredPath, catalog.DisplayName(filepath.Base(rec.StoredPath)))
}
