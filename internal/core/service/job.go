package service

import (
	"context"
	"sync"

	"github.com/rl1809/inventory-metafields/internal/core/domain"
)

// Job is a handle on a reconciliation running in the background.
type Job struct {
	id     string
	cancel context.CancelFunc
	done   chan struct{}

	mu  sync.Mutex
	run domain.Run
	err error
}

func newJob(run domain.Run, cancel context.CancelFunc) *Job {
	return &Job{
		id:     run.ID,
		cancel: cancel,
		done:   make(chan struct{}),
		run:    run,
	}
}

func (j *Job) ID() string {
	return j.id
}

// Done is closed once the run has finished and its record is final.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Err returns the error that ended the run, nil while running or on success.
func (j *Job) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

// Run returns a snapshot of the run record, including progress while running.
func (j *Job) Run() domain.Run {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.run
}

// Cancel stops the run at its next upstream call or pause.
func (j *Job) Cancel() {
	j.cancel()
}

// Wait blocks until the job is done or ctx expires.
func (j *Job) Wait(ctx context.Context) error {
	select {
	case <-j.done:
		return j.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (j *Job) setRun(run domain.Run) {
	j.mu.Lock()
	j.run = run
	j.mu.Unlock()
}

func (j *Job) finish(run domain.Run, err error) {
	j.mu.Lock()
	j.run = run
	j.err = err
	j.mu.Unlock()
	close(j.done)
}
