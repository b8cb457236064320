// Package scheduler dispatches suites onto a bounded worker pool and wires
// up interrupt handling: the first SIGINT aborts in-flight suites (but
// still runs their teardown); the second exits immediately.
package scheduler

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"sync/atomic"
	"syscall"

	"golang.org/x/sync/semaphore"

	"github.com/andreasjansson/cctr/internal/discovery"
	"github.com/andreasjansson/cctr/internal/runner"
	"github.com/andreasjansson/cctr/models"
)

// RunFunc executes one suite; injected so tests can stub it out.
type RunFunc func(ctx context.Context, suite discovery.Suite) (models.SuiteResult, error)

// Options configures the scheduler.
type Options struct {
	Sequential bool
	Workers    int // 0 -> runtime.NumCPU()
}

// Schedule runs every suite, respecting Options.Sequential/Workers, and
// streams each suite's result to onResult in suite-dispatch order per
// worker (cross-suite ordering is not promised, matching spec.md §5).
func Schedule(ctx context.Context, suites []discovery.Suite, run RunFunc, opts Options, onResult func(models.SuiteResult)) error {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if opts.Sequential {
		workers = 1
	}

	interruptCtx, stop := installSignalHandler(ctx)
	defer stop()

	type indexed struct {
		idx int
		res models.SuiteResult
		err error
	}
	results := make(chan indexed, len(suites))
	sem := semaphore.NewWeighted(int64(workers))

	var dispatchStopped int32
	for i, s := range suites {
		if atomic.LoadInt32(&dispatchStopped) == 1 || interruptCtx.Err() != nil {
			results <- indexed{idx: i, res: models.SuiteResult{SuiteName: s.Name, Interrupted: true}}
			continue
		}
		if err := sem.Acquire(interruptCtx, 1); err != nil {
			atomic.StoreInt32(&dispatchStopped, 1)
			results <- indexed{idx: i, res: models.SuiteResult{SuiteName: s.Name, Interrupted: true}}
			continue
		}
		go func(i int, s discovery.Suite) {
			defer sem.Release(1)
			res, err := run(interruptCtx, s)
			results <- indexed{idx: i, res: res, err: err}
		}(i, s)
	}

	var firstErr error
	for range suites {
		r := <-results
		if r.err != nil && firstErr == nil {
			firstErr = r.err
		}
		onResult(r.res)
	}
	return firstErr
}

// installSignalHandler returns a context canceled on the first SIGINT and
// registers a hard os.Exit on the second, per the spec's sticky-interrupt
// model. Callers must call the returned stop func to release the signal
// channel.
func installSignalHandler(parent context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGINT)

	done := make(chan struct{})
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-done:
			return
		}
		select {
		case <-sigCh:
			os.Exit(130)
		case <-done:
			return
		}
	}()

	return ctx, func() {
		close(done)
		signal.Stop(sigCh)
		cancel()
	}
}
