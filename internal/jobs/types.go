package jobs

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeProcessRecurring materializes one occurrence of a due
	// recurring transaction template.
	JobTypeProcessRecurring JobType = "process_recurring"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusRetrying  JobStatus = "retrying"
)

// ProcessRecurringJob asks the processor to materialize one occurrence of a
// recurring transaction template. Delivery is at-least-once; the processor's
// database transaction is responsible for de-duplication.
type ProcessRecurringJob struct {
	JobID string `json:"job_id"`

	// TransactionID is the recurring template to process.
	TransactionID uuid.UUID `json:"transaction_id"`

	// UserID scopes the template; the processor refuses rows the user
	// does not own.
	UserID uuid.UUID `json:"user_id"`

	Status      JobStatus  `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
	RetryCount  int        `json:"retry_count"`
	MaxRetries  int        `json:"max_retries"`
}

// Job is a generic interface for all job types.
type Job interface {
	GetID() string
	GetType() JobType
	GetStatus() JobStatus
}

// GetID implements the Job interface.
func (j *ProcessRecurringJob) GetID() string {
	return j.JobID
}

// GetType implements the Job interface.
func (j *ProcessRecurringJob) GetType() JobType {
	return JobTypeProcessRecurring
}

// GetStatus implements the Job interface.
func (j *ProcessRecurringJob) GetStatus() JobStatus {
	return j.Status
}

// Publisher defines the interface for publishing jobs to a queue.
// This abstraction allows for different queue implementations.
type Publisher interface {
	// PublishProcessRecurring publishes a recurring-transaction job.
	PublishProcessRecurring(ctx context.Context, job *ProcessRecurringJob) error

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

// JobHandler is a function that processes a job.
// It should return an error if the job failed and should be retried.
type JobHandler func(ctx context.Context, job Job) error

// JobStore defines the interface for storing and retrieving job status.
type JobStore interface {
	// SaveJob saves or updates a job's state.
	SaveJob(ctx context.Context, job *ProcessRecurringJob) error

	// GetJob retrieves a job by ID.
	GetJob(ctx context.Context, jobID string) (*ProcessRecurringJob, error)

	// ListJobs retrieves jobs with optional filtering.
	ListJobs(ctx context.Context, filter JobFilter) ([]*ProcessRecurringJob, error)
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	// UserID filters jobs by owning user.
	UserID uuid.UUID

	// Status filters jobs by status.
	Status JobStatus

	// Limit limits the number of results.
	Limit int
}
