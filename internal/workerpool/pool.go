// Package workerpool spawns N independent Executor loops and aggregates
// their shutdown, plus the lease-based Reaper that recovers jobs whose
// claiming worker crashed mid-attempt.
package workerpool

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/queuectl/queuectl/internal/executor"
)

// Pool spawns N independent Executor instances as goroutines and
// aggregates their shutdown. "Independent parallel unit" here is a
// goroutine scheduled by the Go runtime, not a separate OS process as in
// the original implementation. Unlike process isolation, a panic inside
// one goroutine unwinds the whole Go process unless recovered — Run
// recovers each executor's loop individually and restarts it so one
// crashing executor never brings down its siblings.
type Pool struct {
	executors []*executor.Executor
	logger    *slog.Logger
}

func New(executors []*executor.Executor, logger *slog.Logger) *Pool {
	return &Pool{executors: executors, logger: logger.With("component", "worker_pool")}
}

// Run starts every executor's loop and blocks until all of them have
// returned, which happens once ctx is cancelled or the persistent stop flag
// is set. It always returns nil: job execution outcomes are never errors,
// and Scheduler-level failures are logged by each executor's loop, which
// then carries on with its next cycle.
func (p *Pool) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i, ex := range p.executors {
		i, ex := i, ex
		g.Go(func() error {
			p.runExecutor(ctx, i, ex)
			return nil
		})
	}
	return g.Wait()
}

// runExecutor supervises one executor's loop, restarting it if it panics.
// RunWorkerLoop only returns normally once ctx is cancelled or the stop
// flag is set, so a normal return ends the supervision loop; a recovered
// panic logs and restarts it instead of letting the panic unwind the
// errgroup goroutine and take the rest of the pool down with it.
func (p *Pool) runExecutor(ctx context.Context, index int, ex *executor.Executor) {
	p.logger.Info("executor started", "index", index)
	for ctx.Err() == nil {
		if p.runLoopRecovered(ctx, index, ex) {
			break
		}
	}
	p.logger.Info("executor stopped", "index", index)
}

func (p *Pool) runLoopRecovered(ctx context.Context, index int, ex *executor.Executor) (returnedNormally bool) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("executor panicked, restarting", "index", index, "panic", r)
			returnedNormally = false
		}
	}()
	ex.RunWorkerLoop(ctx)
	return true
}
