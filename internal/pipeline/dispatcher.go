package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
)

var (
	// ErrJobInFlight is returned when a job id is submitted while a previous submission still runs.
	ErrJobInFlight = errors.New("job already in flight")
	// ErrDispatcherClosed is returned by Submit after Shutdown.
	ErrDispatcherClosed = errors.New("dispatcher is shut down")
)

// Task is one unit of background work: process a job from its audio file.
type Task struct {
	JobID     uuid.UUID
	AudioPath string
}

// Runner executes a task. *Orchestrator implements it.
type Runner interface {
	Run(ctx context.Context, jobID uuid.UUID, audioPath string) error
}

// Dispatcher hands tasks to a background executor. Submit must not block on
// the task itself. A durable queue only has to implement this interface.
type Dispatcher interface {
	Submit(task Task) error
}

// AsyncDispatcher runs each task on its own goroutine. Tasks are not
// persisted; a process exit loses any task still running.
type AsyncDispatcher struct {
	runner   Runner
	mu       sync.Mutex
	inFlight map[uuid.UUID]struct{}
	closed   bool
	wg       sync.WaitGroup
}

// NewAsyncDispatcher creates a dispatcher backed by runner
func NewAsyncDispatcher(runner Runner) *AsyncDispatcher {
	return &AsyncDispatcher{
		runner:   runner,
		inFlight: make(map[uuid.UUID]struct{}),
	}
}

// Submit starts the task in the background and returns immediately.
func (d *AsyncDispatcher) Submit(task Task) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrDispatcherClosed
	}
	if _, busy := d.inFlight[task.JobID]; busy {
		return fmt.Errorf("%w: %s", ErrJobInFlight, task.JobID)
	}
	d.inFlight[task.JobID] = struct{}{}
	d.wg.Add(1)

	go d.run(task)
	return nil
}

func (d *AsyncDispatcher) run(task Task) {
	defer d.wg.Done()
	defer func() {
		d.mu.Lock()
		delete(d.inFlight, task.JobID)
		d.mu.Unlock()
	}()

	// Runs are detached from the submitting request and are never cancelled.
	if err := d.runner.Run(context.Background(), task.JobID, task.AudioPath); err != nil {
		log.Printf("[dispatcher] job %s finished with error: %v", task.JobID, err)
	}
}

// InFlight reports whether a task for jobID is currently running.
func (d *AsyncDispatcher) InFlight(jobID uuid.UUID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.inFlight[jobID]
	return ok
}

// Wait blocks until every submitted task has returned.
func (d *AsyncDispatcher) Wait() {
	d.wg.Wait()
}

// Shutdown stops accepting tasks and waits for running ones until ctx is done.
func (d *AsyncDispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("dispatcher shutdown: %w", ctx.Err())
	}
}
