package upload

import (
	"context"
)

// Task is an analysis request running in its own goroutine.
type Task struct {
	done chan struct{}

	result string
	err    error
}

// Start runs analyzer.Analyze for path in the background. Cancelling ctx aborts the request.
func Start(ctx context.Context, analyzer Analyzer, path string) *Task {
	task := &Task{done: make(chan struct{})}
	go func() {
		defer close(task.done)
		task.result, task.err = analyzer.Analyze(ctx, path)
	}()
	return task
}

// Done is closed once the request has finished
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the request has finished and returns its outcome
func (t *Task) Wait() (string, error) {
	<-t.done
	return t.result, t.err
}
