// Package repository defines the Persistent Store contract the Scheduler
// depends on. The Scheduler depends on this interface, not a concrete
// implementation: storage can be swapped without touching scheduler logic,
// and a fake can be substituted in tests.
package repository

import (
	"context"
	"time"

	"github.com/queuectl/queuectl/internal/domain"
)

// Store is the durable, crash-consistent record of jobs, DLQ entries, and
// runtime configuration. Every write method is transactional; a claim
// executed concurrently against the same row yields a lost race, not a
// partial update.
type Store interface {
	// Enqueue inserts a new pending job. Returns domain.ErrDuplicateID if
	// id already exists.
	Enqueue(ctx context.Context, job *domain.Job) error

	// ClaimNext atomically selects the highest-priority, oldest-by-
	// created_at due job and transitions it to Processing. Returns
	// (nil, nil) if no job is eligible.
	ClaimNext(ctx context.Context, now time.Time, leaseDuration time.Duration) (*domain.Job, error)

	// MarkCompleted transitions a job to Completed.
	MarkCompleted(ctx context.Context, id string, now time.Time) error

	// MarkRetry transitions a job back to Pending with the given attempt
	// count and next_run_at.
	MarkRetry(ctx context.Context, id string, attempts int, nextRunAt, now time.Time) error

	// MoveToDLQ atomically inserts a DLQ row and deletes the Job row.
	MoveToDLQ(ctx context.Context, id, command, reason string, now time.Time) error

	// RetryFromDLQ upserts the DLQ entry back into Job as Pending and
	// removes the DLQ row. Returns domain.ErrNotFound if absent.
	RetryFromDLQ(ctx context.Context, id string, now time.Time) error

	// ReapExpiredLeases selects Processing jobs whose lease has expired and
	// applies fn to each inside its own transaction, skipping any row that
	// is no longer Processing when re-read. fn returns the retry/DLQ
	// decision to apply; ReapExpiredLeases performs the corresponding write.
	ReapExpiredLeases(ctx context.Context, now time.Time, limit int, fn func(job *domain.Job) (retry bool, reason string)) (int, error)

	ListJobs(ctx context.Context, state string) ([]*domain.Job, error)
	ListDLQ(ctx context.Context) ([]*domain.DLQEntry, error)
	SnapshotStatus(ctx context.Context) (domain.StatusSnapshot, error)

	ConfigGet(ctx context.Context, key string) (string, bool, error)
	ConfigSet(ctx context.Context, key, value string) error

	Close() error
}
