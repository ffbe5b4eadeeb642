package executor_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/queuectl/queuectl/internal/domain"
	"github.com/queuectl/queuectl/internal/executor"
	"github.com/queuectl/queuectl/internal/scheduler"
)

// fakeStore backs a real *scheduler.Scheduler so the executor is exercised
// through its normal dependency rather than a hand-rolled scheduler stub.
type fakeStore struct {
	job          *domain.Job
	claimed      bool
	completedIDs []string
	retried      map[string]int
	dlqReasons   map[string]string
	configValues map[string]string
}

func newFakeStore(job *domain.Job) *fakeStore {
	return &fakeStore{
		job:          job,
		retried:      make(map[string]int),
		dlqReasons:   make(map[string]string),
		configValues: map[string]string{},
	}
}

func (f *fakeStore) Enqueue(context.Context, *domain.Job) error { return nil }

func (f *fakeStore) ClaimNext(context.Context, time.Time, time.Duration) (*domain.Job, error) {
	if f.claimed || f.job == nil {
		return nil, nil
	}
	f.claimed = true
	return f.job, nil
}

func (f *fakeStore) MarkCompleted(_ context.Context, id string, _ time.Time) error {
	f.completedIDs = append(f.completedIDs, id)
	return nil
}

func (f *fakeStore) MarkRetry(_ context.Context, id string, attempts int, _, _ time.Time) error {
	f.retried[id] = attempts
	return nil
}

func (f *fakeStore) MoveToDLQ(_ context.Context, id, _, reason string, _ time.Time) error {
	f.dlqReasons[id] = reason
	return nil
}

func (f *fakeStore) RetryFromDLQ(context.Context, string, time.Time) error { return nil }

func (f *fakeStore) ReapExpiredLeases(context.Context, time.Time, int, func(*domain.Job) (bool, string)) (int, error) {
	return 0, nil
}

func (f *fakeStore) ListJobs(context.Context, string) ([]*domain.Job, error) { return nil, nil }
func (f *fakeStore) ListDLQ(context.Context) ([]*domain.DLQEntry, error)     { return nil, nil }

func (f *fakeStore) SnapshotStatus(context.Context) (domain.StatusSnapshot, error) {
	return domain.StatusSnapshot{}, nil
}

func (f *fakeStore) ConfigGet(_ context.Context, key string) (string, bool, error) {
	v, ok := f.configValues[key]
	return v, ok, nil
}

func (f *fakeStore) ConfigSet(_ context.Context, key, value string) error {
	f.configValues[key] = value
	return nil
}

func (f *fakeStore) Close() error { return nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestRunOnce_SuccessfulCommand_MarksCompleted(t *testing.T) {
	store := newFakeStore(&domain.Job{ID: "job-1", Command: "true", Attempts: 0, MaxRetries: 3})
	sched := scheduler.New(store)
	dataDir := t.TempDir()
	ex := executor.New(sched, dataDir, testLogger())

	if err := ex.RunOnce(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(store.completedIDs) != 1 || store.completedIDs[0] != "job-1" {
		t.Errorf("completedIDs = %v, want [job-1]", store.completedIDs)
	}

	logPath := filepath.Join(dataDir, "logs", "job_job-1.log")
	if _, err := os.Stat(logPath); err != nil {
		t.Errorf("expected log file at %s: %v", logPath, err)
	}
}

func TestRunOnce_FailingCommand_BelowMaxRetries_SchedulesRetry(t *testing.T) {
	store := newFakeStore(&domain.Job{ID: "job-1", Command: "false", Attempts: 0, MaxRetries: 3})
	sched := scheduler.New(store)
	ex := executor.New(sched, t.TempDir(), testLogger())

	if err := ex.RunOnce(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if attempts, ok := store.retried["job-1"]; !ok || attempts != 1 {
		t.Errorf("retried[job-1] = %d, ok=%v; want 1, true", attempts, ok)
	}
	if len(store.dlqReasons) != 0 {
		t.Errorf("expected no dlq entries, got %v", store.dlqReasons)
	}
}

func TestRunOnce_FailingCommand_ExhaustsRetries_MovesToDLQ(t *testing.T) {
	store := newFakeStore(&domain.Job{ID: "job-1", Command: "false", Attempts: 3, MaxRetries: 3})
	sched := scheduler.New(store)
	ex := executor.New(sched, t.TempDir(), testLogger())

	if err := ex.RunOnce(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reason, ok := store.dlqReasons["job-1"]
	if !ok {
		t.Fatal("expected job-1 to be moved to dlq")
	}
	if reason != "Exit code 1, retries exhausted" {
		t.Errorf("dlq reason = %q", reason)
	}
}

func TestRunOnce_UnknownCommand_RecordsReason(t *testing.T) {
	// sh -c reports an unresolvable command via its own exit status (127)
	// rather than a Go exec.ErrNotFound, since "sh" itself always resolves.
	store := newFakeStore(&domain.Job{ID: "job-1", Command: "definitely-not-a-real-binary-xyz", Attempts: 3, MaxRetries: 3})
	sched := scheduler.New(store)
	ex := executor.New(sched, t.TempDir(), testLogger())

	if err := ex.RunOnce(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reason, ok := store.dlqReasons["job-1"]
	if !ok {
		t.Fatal("expected job-1 to be moved to dlq")
	}
	if reason == "" {
		t.Error("expected a non-empty dlq reason")
	}
}

func TestRunOnce_NoJobDue_ReturnsWithoutError(t *testing.T) {
	store := newFakeStore(nil)
	sched := scheduler.New(store)
	ex := executor.New(sched, t.TempDir(), testLogger())

	if err := ex.RunOnce(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.completedIDs) != 0 {
		t.Errorf("expected no completed jobs, got %v", store.completedIDs)
	}
}
