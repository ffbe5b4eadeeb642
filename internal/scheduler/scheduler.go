// Package scheduler implements the stateless set of operations over the
// Persistent Store that own the job lifecycle invariants and the backoff
// formula: enqueue, claim-next, mark-completed, mark-retry, move-to-dlq,
// retry-from-dlq, and snapshot-status, plus the listing, config and
// pool-control operations the CLI and HTTP adapters are allowed to call.
package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/queuectl/queuectl/internal/domain"
	"github.com/queuectl/queuectl/internal/repository"
)

type Scheduler struct {
	store repository.Store
}

func New(store repository.Store) *Scheduler {
	return &Scheduler{store: store}
}

// Enqueue validates the payload, resolves defaults from config, and
// writes a new pending job. Returns domain.ErrValidation on a malformed
// payload and domain.ErrDuplicateID if id already exists.
func (s *Scheduler) Enqueue(ctx context.Context, in domain.EnqueueInput) error {
	if in.ID == "" {
		return fmt.Errorf("%w: missing field: id", domain.ErrValidation)
	}
	if in.Command == "" {
		return fmt.Errorf("%w: missing field: command", domain.ErrValidation)
	}
	if in.Attempts < 0 {
		return fmt.Errorf("%w: attempts must be >= 0", domain.ErrValidation)
	}

	now := time.Now().UTC()

	maxRetries := in.MaxRetries
	if maxRetries == nil {
		v, ok, err := s.store.ConfigGet(ctx, domain.ConfigMaxRetries)
		if err != nil {
			return fmt.Errorf("enqueue: read max_retries: %w", err)
		}
		n := 3
		if ok {
			if parsed, convErr := strconv.Atoi(v); convErr == nil {
				n = parsed
			}
		}
		maxRetries = &n
	}

	runAt, err := parseRunAt(in.RunAt, now)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	createdAt := now
	if in.CreatedAt != nil {
		createdAt = *in.CreatedAt
	}

	job := &domain.Job{
		ID:         in.ID,
		Command:    in.Command,
		State:      domain.StatePending,
		Attempts:   in.Attempts,
		MaxRetries: *maxRetries,
		CreatedAt:  createdAt,
		UpdatedAt:  now,
		NextRunAt:  runAt,
		Priority:   in.Priority,
	}

	return s.store.Enqueue(ctx, job)
}

// parseRunAt accepts "" (now), "in <N>" (N minutes from now), or an
// ISO-8601 UTC timestamp with trailing Z.
func parseRunAt(raw string, now time.Time) (time.Time, error) {
	val := strings.TrimSpace(raw)
	if val == "" {
		return now, nil
	}
	if strings.HasPrefix(strings.ToLower(val), "in ") {
		fields := strings.Fields(val)
		if len(fields) != 2 {
			return time.Time{}, fmt.Errorf("invalid 'run_at' format (expected 'in <minutes>' or ISO timestamp)")
		}
		minutes, err := strconv.Atoi(fields[1])
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid 'run_at' format (expected 'in <minutes>' or ISO timestamp)")
		}
		return now.Add(time.Duration(minutes) * time.Minute), nil
	}
	t, err := time.Parse("2006-01-02T15:04:05Z", val)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid 'run_at' format (expected 'in <minutes>' or ISO timestamp)")
	}
	return t, nil
}

// ClaimNext hands out the next due job, if any, stamping its processing
// lease. leaseSeconds governs how long the claim is valid before the
// reaper treats the attempt as abandoned.
func (s *Scheduler) ClaimNext(ctx context.Context, leaseSeconds time.Duration) (*domain.Job, error) {
	return s.store.ClaimNext(ctx, time.Now().UTC(), leaseSeconds)
}

func (s *Scheduler) MarkCompleted(ctx context.Context, id string) error {
	return s.store.MarkCompleted(ctx, id, time.Now().UTC())
}

// MarkRetry schedules a retry at now + backoff(attempts), where attempts
// is the post-increment attempt count.
func (s *Scheduler) MarkRetry(ctx context.Context, id string, attempts int) error {
	now := time.Now().UTC()
	base, err := s.backoffBase(ctx)
	if err != nil {
		return err
	}
	delay := Backoff(base, attempts)
	return s.store.MarkRetry(ctx, id, attempts, now.Add(delay), now)
}

func (s *Scheduler) MoveToDLQ(ctx context.Context, id, command, reason string) error {
	return s.store.MoveToDLQ(ctx, id, command, reason, time.Now().UTC())
}

func (s *Scheduler) RetryFromDLQ(ctx context.Context, id string) error {
	return s.store.RetryFromDLQ(ctx, id, time.Now().UTC())
}

func (s *Scheduler) SnapshotStatus(ctx context.Context) (domain.StatusSnapshot, error) {
	return s.store.SnapshotStatus(ctx)
}

func (s *Scheduler) ListJobs(ctx context.Context, state string) ([]*domain.Job, error) {
	return s.store.ListJobs(ctx, state)
}

func (s *Scheduler) ListDLQ(ctx context.Context) ([]*domain.DLQEntry, error) {
	return s.store.ListDLQ(ctx)
}

func (s *Scheduler) ConfigGet(ctx context.Context, key string) (string, bool, error) {
	return s.store.ConfigGet(ctx, key)
}

func (s *Scheduler) ConfigSet(ctx context.Context, key, value string) error {
	return s.store.ConfigSet(ctx, key, value)
}

func (s *Scheduler) LeaseSeconds(ctx context.Context) (time.Duration, error) {
	v, ok, err := s.store.ConfigGet(ctx, domain.ConfigLeaseSeconds)
	if err != nil {
		return 0, fmt.Errorf("read lease_seconds: %w", err)
	}
	if !ok {
		return 40 * time.Second, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 40 * time.Second, nil
	}
	return time.Duration(n) * time.Second, nil
}

func (s *Scheduler) ShouldStop(ctx context.Context) (bool, error) {
	v, ok, err := s.store.ConfigGet(ctx, domain.ConfigStop)
	if err != nil {
		return false, err
	}
	return ok && v == "1", nil
}

func (s *Scheduler) StopPool(ctx context.Context) error {
	return s.store.ConfigSet(ctx, domain.ConfigStop, "1")
}

func (s *Scheduler) StartPool(ctx context.Context) error {
	return s.store.ConfigSet(ctx, domain.ConfigStop, "0")
}

func (s *Scheduler) backoffBase(ctx context.Context) (int, error) {
	v, ok, err := s.store.ConfigGet(ctx, domain.ConfigBackoffBase)
	if err != nil {
		return 0, fmt.Errorf("read backoff_base: %w", err)
	}
	if !ok {
		return 2, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 2, nil
	}
	return n, nil
}

// ReapExpiredLeases delegates to the store, applying the given retry/DLQ
// decision function to every job whose processing lease has expired.
func (s *Scheduler) ReapExpiredLeases(ctx context.Context, limit int, fn func(job *domain.Job) (retry bool, reason string)) (int, error) {
	return s.store.ReapExpiredLeases(ctx, time.Now().UTC(), limit, fn)
}
