package domain

import (
	"errors"
	"time"
)

var (
	ErrDuplicateID = errors.New("job with this id already exists")
	ErrNotFound    = errors.New("record not found")
	ErrValidation  = errors.New("validation error")
)

// State is the lifecycle state of a Job row. Terminal failure does not
// appear here — a terminally failed job is moved to the DLQ table and
// removed from Job entirely.
type State string

const (
	StatePending    State = "pending"
	StateProcessing State = "processing"
	StateCompleted  State = "completed"
)

// Job is a unit of work: an id, a shell command, and scheduling metadata.
type Job struct {
	ID         string
	Command    string
	State      State
	Attempts   int
	MaxRetries int
	CreatedAt  time.Time
	UpdatedAt  time.Time
	NextRunAt  time.Time
	Priority   int

	// LeaseExpiresAt bounds how long a Processing row may go unresolved
	// before the reaper treats the claiming worker as crashed. Nil outside
	// the Processing state.
	LeaseExpiresAt *time.Time
}

// DLQEntry is the terminal record for a job that exhausted retries or
// suffered a non-retryable failure.
type DLQEntry struct {
	ID        string
	Command   string
	Reason    string
	CreatedAt time.Time
}

// ConfigEntry is a single row of the config key/value store.
type ConfigEntry struct {
	Key   string
	Value string
}

const (
	ConfigMaxRetries   = "max_retries"
	ConfigBackoffBase  = "backoff_base"
	ConfigStop         = "stop"
	ConfigLeaseSeconds = "lease_seconds"
)

// StatusSnapshot is a consistent-at-a-point-in-time aggregation of job
// counts by state, plus the current stop flag.
type StatusSnapshot struct {
	Counts   map[State]int
	StopFlag bool
}

// EnqueueInput is the payload accepted by Scheduler.Enqueue.
type EnqueueInput struct {
	ID         string
	Command    string
	MaxRetries *int
	Attempts   int
	CreatedAt  *time.Time
	Priority   int
	RunAt      string // "" (now), "in <N>" (minutes), or an ISO-8601 timestamp
}
