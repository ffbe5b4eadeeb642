// Package executor implements the per-worker loop: claim one job, run its
// command as a child process under a timeout, append an execution record
// to the job's log, and inform the Scheduler of the outcome.
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"time"

	"github.com/queuectl/queuectl/internal/domain"
	"github.com/queuectl/queuectl/internal/joblog"
	"github.com/queuectl/queuectl/internal/metrics"
	"github.com/queuectl/queuectl/internal/scheduler"
)

// idlePause is how long RunOnce sleeps when the queue has nothing due,
// avoiding a busy spin on an empty queue.
const idlePause = 500 * time.Millisecond

// CommandTimeout is fixed for this version; spec.md notes this as a
// desirable configuration seam for a future version.
const CommandTimeout = 10 * time.Second

type Executor struct {
	sched   *scheduler.Scheduler
	dataDir string
	logger  *slog.Logger
}

func New(sched *scheduler.Scheduler, dataDir string, logger *slog.Logger) *Executor {
	return &Executor{
		sched:   sched,
		dataDir: dataDir,
		logger:  logger.With("component", "executor"),
	}
}

// RunOnce claims one job and supervises its execution to completion. It
// never returns an error for a job execution failure — those are domain
// outcomes that feed the retry/DLQ decision. A returned error indicates a
// Scheduler-level failure (claim or outcome-reporting I/O).
func (e *Executor) RunOnce(ctx context.Context) error {
	leaseSeconds, err := e.sched.LeaseSeconds(ctx)
	if err != nil {
		return fmt.Errorf("run once: lease seconds: %w", err)
	}

	job, err := e.sched.ClaimNext(ctx, leaseSeconds)
	if err != nil {
		return fmt.Errorf("run once: claim: %w", err)
	}
	if job == nil {
		time.Sleep(idlePause)
		return nil
	}
	metrics.ClaimLatency.Observe(time.Since(job.NextRunAt).Seconds())

	// Once claimed, the job runs to completion (or its own timeout) and its
	// outcome is recorded even if ctx is cancelled meanwhile.
	jobCtx := context.WithoutCancel(ctx)

	e.logger.Info("processing",
		"job_id", job.ID, "attempt", job.Attempts, "max_retries", job.MaxRetries, "command", job.Command)

	metrics.JobsInFlight.Inc()
	start := time.Now()
	outcome, stdout, stderr := e.execute(jobCtx, job.Command)
	metrics.ExecutionDuration.WithLabelValues(outcome.Kind.String()).Observe(time.Since(start).Seconds())
	metrics.JobsInFlight.Dec()

	e.appendLog(job, outcome, stdout, stderr)
	return e.dispatch(jobCtx, job, outcome)
}

// RunWorkerLoop repeatedly invokes RunOnce until shouldStop reports true.
// The in-process cancellation (ctx) and the persistent stop flag are both
// checked only between jobs — never mid-job.
func (e *Executor) RunWorkerLoop(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		stop, err := e.sched.ShouldStop(ctx)
		if err != nil {
			e.logger.Error("check stop flag", "error", err)
		} else if stop {
			return
		}

		if err := e.RunOnce(ctx); err != nil {
			e.logger.Error("run once", "error", err)
		}
	}
}

func (e *Executor) execute(ctx context.Context, command string) (outcome domain.Outcome, stdout, stderr string) {
	execCtx, cancel := context.WithTimeout(ctx, CommandTimeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, "sh", "-c", command)
	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	runErr := cmd.Run()
	stdout, stderr = outBuf.String(), errBuf.String()

	switch {
	case runErr == nil:
		return domain.Outcome{Kind: domain.OutcomeSuccess}, stdout, stderr
	case errors.Is(execCtx.Err(), context.DeadlineExceeded):
		return domain.Outcome{Kind: domain.OutcomeTimeout, TimeoutSecs: int(CommandTimeout.Seconds())}, stdout, stderr
	case errors.Is(runErr, exec.ErrNotFound):
		return domain.Outcome{Kind: domain.OutcomeCommandNotFound, Detail: runErr.Error()}, stdout, stderr
	default:
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			return domain.Outcome{Kind: domain.OutcomeNonZeroExit, ExitCode: exitErr.ExitCode()}, stdout, stderr
		}
		return domain.Outcome{Kind: domain.OutcomeOther, Detail: runErr.Error()}, stdout, stderr
	}
}

func (e *Executor) appendLog(job *domain.Job, outcome domain.Outcome, stdout, stderr string) {
	var exitLine string
	switch outcome.Kind {
	case domain.OutcomeSuccess:
		exitLine = "Exit Code: 0"
	case domain.OutcomeNonZeroExit:
		exitLine = fmt.Sprintf("Exit Code: %d", outcome.ExitCode)
	default:
		exitLine = outcome.Reason()
	}

	if err := joblog.Append(e.dataDir, joblog.Record{
		JobID:    job.ID,
		At:       time.Now(),
		Command:  job.Command,
		ExitLine: exitLine,
		Stdout:   stdout,
		Stderr:   stderr,
	}); err != nil {
		e.logger.Warn("append job log", "job_id", job.ID, "error", err)
	}
}

// dispatch is the outcome-to-state-machine decision: success completes the
// job; every failure kind shares the same retry-vs-DLQ arithmetic with a
// kind-specific diagnostic reason.
func (e *Executor) dispatch(ctx context.Context, job *domain.Job, outcome domain.Outcome) error {
	if outcome.Kind == domain.OutcomeSuccess {
		e.logger.Info("completed", "job_id", job.ID)
		metrics.JobsFinishedTotal.WithLabelValues("completed").Inc()
		return e.sched.MarkCompleted(ctx, job.ID)
	}

	attempts := job.Attempts + 1
	if attempts > job.MaxRetries {
		e.logger.Warn("moved to dlq", "job_id", job.ID, "reason", outcome.Reason())
		metrics.JobsFinishedTotal.WithLabelValues("dlq").Inc()
		return e.sched.MoveToDLQ(ctx, job.ID, job.Command, outcome.Reason())
	}
	// outcome.Reason() is worded for the DLQ record ("...retries exhausted")
	// and would be misleading here, where the job is in fact being retried.
	e.logger.Warn("scheduled retry", "job_id", job.ID, "attempts", attempts, "outcome", outcome.Kind.String())
	metrics.JobsFinishedTotal.WithLabelValues("retried").Inc()
	return e.sched.MarkRetry(ctx, job.ID, attempts)
}
