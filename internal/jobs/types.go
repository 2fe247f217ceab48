package jobs

import (
	"context"
	"time"
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeExportDaily builds and uploads one day's history export.
	JobTypeExportDaily JobType = "export_daily"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// ExportDailyJob asks the worker to export every history row of one
// calendar date.
type ExportDailyJob struct {
	JobID string `json:"job_id"`

	// Date is the calendar date to export (YYYY-MM-DD).
	Date string `json:"date"`

	// Format is "csv" or "xlsx".
	Format string `json:"format"`

	Status JobStatus `json:"status"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// ExportID is the daily_exports row written by the job.
	ExportID string `json:"export_id,omitempty"`

	Error string `json:"error,omitempty"`
}

// Job is a generic interface for all job types.
type Job interface {
	GetID() string
	GetType() JobType
	GetStatus() JobStatus
}

// GetID implements the Job interface.
func (j *ExportDailyJob) GetID() string {
	return j.JobID
}

// GetType implements the Job interface.
func (j *ExportDailyJob) GetType() JobType {
	return JobTypeExportDaily
}

// GetStatus implements the Job interface.
func (j *ExportDailyJob) GetStatus() JobStatus {
	return j.Status
}

// Publisher defines the interface for publishing jobs to a queue.
type Publisher interface {
	// PublishExportDaily enqueues an export job, filling in its ID,
	// status and creation time.
	PublishExportDaily(ctx context.Context, job *ExportDailyJob) error

	// Close closes the publisher and releases resources.
	Close() error
}

// Consumer defines the interface for consuming jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs from the queue.
	// The handler function is called for each job received.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler processes a job. A returned error marks the job failed; jobs
// are never retried automatically.
type JobHandler func(ctx context.Context, job Job) error

// JobStore defines the interface for storing and retrieving job status.
type JobStore interface {
	// SaveJob saves or updates a job's state.
	SaveJob(ctx context.Context, job *ExportDailyJob) error

	// GetJob retrieves a job by ID.
	GetJob(ctx context.Context, jobID string) (*ExportDailyJob, error)

	// ListJobs retrieves jobs with optional filtering, newest first.
	ListJobs(ctx context.Context, filter JobFilter) ([]*ExportDailyJob, error)
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	// Date filters jobs by export date.
	Date string

	// Status filters jobs by status.
	Status JobStatus

	Limit  int
	Offset int
}
