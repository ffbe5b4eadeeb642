package handler_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/queuectl/queuectl/internal/domain"
	"github.com/queuectl/queuectl/internal/scheduler"
	"github.com/queuectl/queuectl/internal/transport/http/handler"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeStore backs a real *scheduler.Scheduler so the handler is exercised
// through its normal dependency rather than a hand-rolled scheduler stub.
type fakeStore struct {
	enqueue        func(ctx context.Context, job *domain.Job) error
	listJobs       func(ctx context.Context, state string) ([]*domain.Job, error)
	listDLQ        func(ctx context.Context) ([]*domain.DLQEntry, error)
	retryFromDLQ   func(ctx context.Context, id string, now time.Time) error
	snapshotStatus func(ctx context.Context) (domain.StatusSnapshot, error)
	configGet      func(ctx context.Context, key string) (string, bool, error)
	configSet      func(ctx context.Context, key, value string) error
}

func (f *fakeStore) Enqueue(ctx context.Context, job *domain.Job) error {
	if f.enqueue == nil {
		return nil
	}
	return f.enqueue(ctx, job)
}
func (f *fakeStore) ClaimNext(context.Context, time.Time, time.Duration) (*domain.Job, error) {
	return nil, nil
}
func (f *fakeStore) MarkCompleted(context.Context, string, time.Time) error { return nil }
func (f *fakeStore) MarkRetry(context.Context, string, int, time.Time, time.Time) error {
	return nil
}
func (f *fakeStore) MoveToDLQ(context.Context, string, string, string, time.Time) error {
	return nil
}
func (f *fakeStore) RetryFromDLQ(ctx context.Context, id string, now time.Time) error {
	return f.retryFromDLQ(ctx, id, now)
}
func (f *fakeStore) ReapExpiredLeases(context.Context, time.Time, int, func(*domain.Job) (bool, string)) (int, error) {
	return 0, nil
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

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newJobEngine(store *fakeStore) *gin.Engine {
	sched := scheduler.New(store)
	h := handler.NewJobHandler(sched, testLogger())

	r := gin.New()
	r.POST("/jobs", h.Enqueue)
	r.GET("/jobs", h.List)
	r.GET("/status", h.Status)
	return r
}

func TestEnqueue_InvalidJSON_Returns400(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/jobs", strings.NewReader(`{bad json}`))
	req.Header.Set("Content-Type", "application/json")
	newJobEngine(&fakeStore{}).ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestEnqueue_MissingRequiredField_Returns400(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/jobs", strings.NewReader(`{"id":"job-1"}`))
	req.Header.Set("Content-Type", "application/json")
	newJobEngine(&fakeStore{}).ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestEnqueue_Success_Returns201(t *testing.T) {
	store := &fakeStore{
		configGet: func(context.Context, string) (string, bool, error) { return "", false, nil },
		enqueue:   func(context.Context, *domain.Job) error { return nil },
	}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/jobs", strings.NewReader(`{"id":"job-1","command":"echo hi"}`))
	req.Header.Set("Content-Type", "application/json")
	newJobEngine(store).ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201, body: %s", w.Code, w.Body.String())
	}
}

func TestEnqueue_DuplicateID_Returns409(t *testing.T) {
	store := &fakeStore{
		configGet: func(context.Context, string) (string, bool, error) { return "", false, nil },
		enqueue:   func(context.Context, *domain.Job) error { return domain.ErrDuplicateID },
	}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/jobs", strings.NewReader(`{"id":"job-1","command":"echo hi"}`))
	req.Header.Set("Content-Type", "application/json")
	newJobEngine(store).ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", w.Code)
	}
}

func TestList_ReturnsJobs(t *testing.T) {
	store := &fakeStore{
		listJobs: func(_ context.Context, state string) ([]*domain.Job, error) {
			if state != "pending" {
				t.Errorf("state = %q, want pending", state)
			}
			return []*domain.Job{{ID: "job-1", State: domain.StatePending}}, nil
		},
	}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/jobs?state=pending", nil)
	newJobEngine(store).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "job-1") {
		t.Errorf("body %q does not contain job-1", w.Body.String())
	}
}

func TestStatus_ReturnsSnapshot(t *testing.T) {
	store := &fakeStore{
		snapshotStatus: func(context.Context) (domain.StatusSnapshot, error) {
			return domain.StatusSnapshot{Counts: map[domain.State]int{domain.StatePending: 2}, StopFlag: true}, nil
		},
	}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	newJobEngine(store).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"StopFlag":true`) {
		t.Errorf("body %q does not reflect stop flag", w.Body.String())
	}
}
