package scheduler_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/queuectl/queuectl/internal/domain"
	"github.com/queuectl/queuectl/internal/scheduler"
)

// ---- fakes ----

type fakeStore struct {
	enqueue           func(ctx context.Context, job *domain.Job) error
	claimNext         func(ctx context.Context, now time.Time, lease time.Duration) (*domain.Job, error)
	markCompleted     func(ctx context.Context, id string, now time.Time) error
	markRetry         func(ctx context.Context, id string, attempts int, nextRunAt, now time.Time) error
	moveToDLQ         func(ctx context.Context, id, command, reason string, now time.Time) error
	retryFromDLQ      func(ctx context.Context, id string, now time.Time) error
	reapExpiredLeases func(ctx context.Context, now time.Time, limit int, fn func(*domain.Job) (bool, string)) (int, error)
	listJobs          func(ctx context.Context, state string) ([]*domain.Job, error)
	listDLQ           func(ctx context.Context) ([]*domain.DLQEntry, error)
	snapshotStatus    func(ctx context.Context) (domain.StatusSnapshot, error)
	configGet         func(ctx context.Context, key string) (string, bool, error)
	configSet         func(ctx context.Context, key, value string) error
}

func (f *fakeStore) Enqueue(ctx context.Context, job *domain.Job) error {
	return f.enqueue(ctx, job)
}
func (f *fakeStore) ClaimNext(ctx context.Context, now time.Time, lease time.Duration) (*domain.Job, error) {
	return f.claimNext(ctx, now, lease)
}
func (f *fakeStore) MarkCompleted(ctx context.Context, id string, now time.Time) error {
	return f.markCompleted(ctx, id, now)
}
func (f *fakeStore) MarkRetry(ctx context.Context, id string, attempts int, nextRunAt, now time.Time) error {
	return f.markRetry(ctx, id, attempts, nextRunAt, now)
}
func (f *fakeStore) MoveToDLQ(ctx context.Context, id, command, reason string, now time.Time) error {
	return f.moveToDLQ(ctx, id, command, reason, now)
}
func (f *fakeStore) RetryFromDLQ(ctx context.Context, id string, now time.Time) error {
	return f.retryFromDLQ(ctx, id, now)
}
func (f *fakeStore) ReapExpiredLeases(ctx context.Context, now time.Time, limit int, fn func(*domain.Job) (bool, string)) (int, error) {
	return f.reapExpiredLeases(ctx, now, limit, fn)
}
func (f *fakeStore) ListJobs(ctx context.Context, state string) ([]*domain.Job, error) {
	return f.listJobs(ctx, state)
}
func (f *fakeStore) ListDLQ(ctx context.Context) ([]*domain.DLQEntry, error) {
	return f.listDLQ(ctx)
}
func (f *fakeStore) SnapshotStatus(ctx context.Context) (domain.StatusSnapshot, error) {
	return f.snapshotStatus(ctx)
}
func (f *fakeStore) ConfigGet(ctx context.Context, key string) (string, bool, error) {
	return f.configGet(ctx, key)
}
func (f *fakeStore) ConfigSet(ctx context.Context, key, value string) error {
	return f.configSet(ctx, key, value)
}
func (f *fakeStore) Close() error { return nil }

func configBackedBy(values map[string]string) func(ctx context.Context, key string) (string, bool, error) {
	return func(_ context.Context, key string) (string, bool, error) {
		v, ok := values[key]
		return v, ok, nil
	}
}

// ---- Enqueue ----

func TestEnqueue_MissingID_ReturnsValidationError(t *testing.T) {
	store := &fakeStore{}
	err := scheduler.New(store).Enqueue(context.Background(), domain.EnqueueInput{Command: "echo hi"})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("want ErrValidation, got %v", err)
	}
}

func TestEnqueue_MissingCommand_ReturnsValidationError(t *testing.T) {
	store := &fakeStore{}
	err := scheduler.New(store).Enqueue(context.Background(), domain.EnqueueInput{ID: "job-1"})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("want ErrValidation, got %v", err)
	}
}

func TestEnqueue_DefaultsMaxRetriesFromConfig(t *testing.T) {
	var captured *domain.Job
	store := &fakeStore{
		configGet: configBackedBy(map[string]string{domain.ConfigMaxRetries: "7"}),
		enqueue: func(_ context.Context, job *domain.Job) error {
			captured = job
			return nil
		},
	}

	err := scheduler.New(store).Enqueue(context.Background(), domain.EnqueueInput{ID: "job-1", Command: "echo hi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if captured.MaxRetries != 7 {
		t.Errorf("MaxRetries = %d, want 7", captured.MaxRetries)
	}
	if captured.State != domain.StatePending {
		t.Errorf("State = %v, want pending", captured.State)
	}
}

func TestEnqueue_ExplicitMaxRetries_OverridesConfig(t *testing.T) {
	var captured *domain.Job
	n := 1
	store := &fakeStore{
		configGet: configBackedBy(map[string]string{domain.ConfigMaxRetries: "7"}),
		enqueue: func(_ context.Context, job *domain.Job) error {
			captured = job
			return nil
		},
	}

	err := scheduler.New(store).Enqueue(context.Background(), domain.EnqueueInput{ID: "job-1", Command: "echo hi", MaxRetries: &n})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if captured.MaxRetries != 1 {
		t.Errorf("MaxRetries = %d, want 1", captured.MaxRetries)
	}
}

func TestEnqueue_RunAtInMinutes(t *testing.T) {
	var captured *domain.Job
	store := &fakeStore{
		configGet: configBackedBy(nil),
		enqueue: func(_ context.Context, job *domain.Job) error {
			captured = job
			return nil
		},
	}

	before := time.Now().UTC()
	err := scheduler.New(store).Enqueue(context.Background(), domain.EnqueueInput{ID: "job-1", Command: "echo hi", RunAt: "in 5"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if captured.NextRunAt.Before(before.Add(4 * time.Minute)) {
		t.Errorf("NextRunAt %v too soon", captured.NextRunAt)
	}
}

func TestEnqueue_DuplicateID_PropagatesStoreError(t *testing.T) {
	store := &fakeStore{
		configGet: configBackedBy(nil),
		enqueue: func(_ context.Context, _ *domain.Job) error {
			return domain.ErrDuplicateID
		},
	}

	err := scheduler.New(store).Enqueue(context.Background(), domain.EnqueueInput{ID: "job-1", Command: "echo hi"})
	if !errors.Is(err, domain.ErrDuplicateID) {
		t.Fatalf("want ErrDuplicateID, got %v", err)
	}
}

// ---- MarkRetry backoff ----

func TestMarkRetry_SchedulesBackoffFromConfig(t *testing.T) {
	var gotNextRunAt time.Time
	var gotAttempts int
	store := &fakeStore{
		configGet: configBackedBy(map[string]string{domain.ConfigBackoffBase: "3"}),
		markRetry: func(_ context.Context, _ string, attempts int, nextRunAt, now time.Time) error {
			gotAttempts = attempts
			gotNextRunAt = nextRunAt
			return nil
		},
	}

	before := time.Now().UTC()
	if err := scheduler.New(store).MarkRetry(context.Background(), "job-1", 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotAttempts != 2 {
		t.Errorf("attempts = %d, want 2", gotAttempts)
	}
	// base=3, attempts=2 -> 9s delay
	if gotNextRunAt.Before(before.Add(8 * time.Second)) {
		t.Errorf("nextRunAt %v not delayed by backoff", gotNextRunAt)
	}
}

// ---- ShouldStop ----

func TestShouldStop_ReadsStopConfigKey(t *testing.T) {
	store := &fakeStore{configGet: configBackedBy(map[string]string{domain.ConfigStop: "1"})}
	stop, err := scheduler.New(store).ShouldStop(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !stop {
		t.Error("ShouldStop = false, want true")
	}
}

func TestShouldStop_DefaultsFalse(t *testing.T) {
	store := &fakeStore{configGet: configBackedBy(nil)}
	stop, err := scheduler.New(store).ShouldStop(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stop {
		t.Error("ShouldStop = true, want false")
	}
}
