package capture

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Job is a unit of capture work. It returns the path of the file it produced.
type Job func(ctx context.Context) (string, error)

// Result is the outcome of a submitted job
type Result struct {
	JobID string
	Path  string
	Err   error
}

type queuedJob struct {
	id      string
	ctx     context.Context
	job     Job
	results chan Result
}

// Worker runs capture jobs one at a time on a single goroutine.
type Worker struct {
	jobs chan queuedJob
	done chan struct{}

	mu     sync.Mutex
	closed bool
}

func NewWorker(queueSize int) *Worker {
	if queueSize < 0 {
		queueSize = 0
	}
	w := &Worker{
		jobs: make(chan queuedJob, queueSize),
		done: make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *Worker) run() {
	defer close(w.done)
	for queued := range w.jobs {
		result := Result{JobID: queued.id}
		if err := queued.ctx.Err(); err != nil {
			result.Err = err
		} else {
			result.Path, result.Err = queued.job(queued.ctx)
		}
		if result.Err != nil {
			slog.Warn("capture job failed", "job_id", queued.id, "error", result.Err)
		} else {
			slog.Debug("capture job completed", "job_id", queued.id, "path", result.Path)
		}
		queued.results <- result
	}
}

// Submit queues job. The returned channel receives exactly one Result.
func (w *Worker) Submit(ctx context.Context, job Job) <-chan Result {
	results := make(chan Result, 1)
	id := uuid.NewString()

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		results <- Result{JobID: id, Err: ErrWorkerClosed}
		return results
	}

	select {
	case w.jobs <- queuedJob{id: id, ctx: ctx, job: job, results: results}:
	case <-ctx.Done():
		results <- Result{JobID: id, Err: ctx.Err()}
	}
	return results
}

// Shutdown stops accepting jobs and waits for queued ones to finish
func (w *Worker) Shutdown() {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.jobs)
	}
	w.mu.Unlock()
	<-w.done
}
