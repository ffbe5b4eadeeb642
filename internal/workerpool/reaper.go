package workerpool

import (
	"context"
	"log/slog"
	"time"

	"github.com/queuectl/queuectl/internal/domain"
	"github.com/queuectl/queuectl/internal/metrics"
	"github.com/queuectl/queuectl/internal/scheduler"
)

// reapBatchLimit bounds how many expired leases a single cycle reclaims,
// matching the teacher reaper's per-cycle cap.
const reapBatchLimit = 100

// Reaper answers spec.md's open question about orphaned Processing rows:
// a job claimed by a worker that then crashed before reporting an outcome
// would otherwise sit in Processing forever. Reaper runs on its own
// ticker and re-applies the executor's retry/DLQ decision to any job whose
// lease has expired.
type Reaper struct {
	sched    *scheduler.Scheduler
	interval time.Duration
	logger   *slog.Logger
}

func NewReaper(sched *scheduler.Scheduler, interval time.Duration, logger *slog.Logger) *Reaper {
	return &Reaper{sched: sched, interval: interval, logger: logger.With("component", "reaper")}
}

func (r *Reaper) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("reaper started", "interval", r.interval)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reaper shut down")
			return
		case <-ticker.C:
			r.reap(ctx)
		}
	}
}

func (r *Reaper) reap(ctx context.Context) {
	start := time.Now()
	defer func() {
		metrics.ReaperCycleDuration.Observe(time.Since(start).Seconds())
	}()

	var retried, dlq int
	countingDecide := func(job *domain.Job) (bool, string) {
		retry, reason := decide(job)
		if retry {
			retried++
		} else {
			dlq++
		}
		return retry, reason
	}

	n, err := r.sched.ReapExpiredLeases(ctx, reapBatchLimit, countingDecide)
	if err != nil {
		r.logger.Error("reap cycle", "error", err)
		return
	}
	if retried > 0 {
		metrics.ReaperReclaimedTotal.WithLabelValues("retried").Add(float64(retried))
	}
	if dlq > 0 {
		metrics.ReaperReclaimedTotal.WithLabelValues("dlq").Add(float64(dlq))
	}
	if n > 0 {
		r.logger.Warn("reaped expired leases", "count", n)
	}
}

// decide mirrors the executor's own retry-vs-DLQ arithmetic for a job
// whose worker went silent: it is treated exactly like a failed attempt.
func decide(job *domain.Job) (retry bool, reason string) {
	attempts := job.Attempts + 1
	if attempts > job.MaxRetries {
		return false, "worker lease expired, retries exhausted"
	}
	return true, "worker lease expired"
}
