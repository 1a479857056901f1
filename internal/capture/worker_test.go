package capture

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestWorker_Submit(t *testing.T) {
	worker := NewWorker(4)
	defer worker.Shutdown()

	result := <-worker.Submit(context.Background(), func(ctx context.Context) (string, error) {
		return "/captures/a.jpg", nil
	})
	if result.Err != nil {
		t.Fatalf("unexpected error: %v", result.Err)
	}
	if result.Path != "/captures/a.jpg" {
		t.Errorf("unexpected path %s", result.Path)
	}
	if result.JobID == "" {
		t.Error("expected a job id")
	}
}

func TestWorker_RunsOneJobAtATime(t *testing.T) {
	worker := NewWorker(8)
	defer worker.Shutdown()

	var running, maxRunning int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		results := worker.Submit(context.Background(), func(ctx context.Context) (string, error) {
			current := atomic.AddInt32(&running, 1)
			for {
				previous := atomic.LoadInt32(&maxRunning)
				if current <= previous || atomic.CompareAndSwapInt32(&maxRunning, previous, current) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&running, -1)
			return "", nil
		})
		go func() {
			defer wg.Done()
			<-results
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt32(&maxRunning); got != 1 {
		t.Errorf("expected jobs to run sequentially, saw %d at once", got)
	}
}

func TestWorker_JobError(t *testing.T) {
	worker := NewWorker(1)
	defer worker.Shutdown()

	boom := errors.New("camera unavailable")
	result := <-worker.Submit(context.Background(), func(ctx context.Context) (string, error) {
		return "", boom
	})
	if !errors.Is(result.Err, boom) {
		t.Fatalf("expected job error, got %v", result.Err)
	}
}

func TestWorker_CanceledBeforeRun(t *testing.T) {
	worker := NewWorker(1)
	defer worker.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	result := <-worker.Submit(ctx, func(ctx context.Context) (string, error) {
		called = true
		return "", nil
	})
	if !errors.Is(result.Err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", result.Err)
	}
	if called {
		t.Error("job must not run with a canceled context")
	}
}

func TestWorker_SubmitAfterShutdown(t *testing.T) {
	worker := NewWorker(1)
	worker.Shutdown()
	// a second shutdown is a no-op
	worker.Shutdown()

	result := <-worker.Submit(context.Background(), func(ctx context.Context) (string, error) {
		t.Error("job must not run after shutdown")
		return "", nil
	})
	if !errors.Is(result.Err, ErrWorkerClosed) {
		t.Fatalf("expected ErrWorkerClosed, got %v", result.Err)
	}
}

func TestWorker_ShutdownDrainsQueue(t *testing.T) {
	worker := NewWorker(4)
	var completed int32
	var channels []<-chan Result
	for i := 0; i < 4; i++ {
		channels = append(channels, worker.Submit(context.Background(), func(ctx context.Context) (string, error) {
			atomic.AddInt32(&completed, 1)
			return "", nil
		}))
	}
	worker.Shutdown()

	if got := atomic.LoadInt32(&completed); got != 4 {
		t.Errorf("expected queued jobs to complete before shutdown returns, got %d", got)
	}
	for _, results := range channels {
		if result := <-results; result.Err != nil {
			t.Errorf("unexpected error %v", result.Err)
		}
	}
}
