package queue

import (
	"context"

	appdocument "github.com/ledgerdocs/backend/internal/application/document"
)

// Ensure MemoryJobQueue implements the job queue port
var _ appdocument.JobQueue = (*MemoryJobQueue)(nil)

// MemoryJobQueue is a single-process job transport over a buffered channel.
// Use this for development and tests.
type MemoryJobQueue struct {
	jobs chan appdocument.ExtractionJob
}

// NewMemoryJobQueue creates a queue with the given buffer capacity
func NewMemoryJobQueue(capacity int) *MemoryJobQueue {
	if capacity <= 0 {
		capacity = 256
	}
	return &MemoryJobQueue{jobs: make(chan appdocument.ExtractionJob, capacity)}
}

// Enqueue pushes one job, blocking when the buffer is full
func (q *MemoryJobQueue) Enqueue(ctx context.Context, job appdocument.ExtractionJob) error {
	select {
	case q.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dequeue blocks until a job arrives or the context ends
func (q *MemoryJobQueue) Dequeue(ctx context.Context) (*appdocument.ExtractionJob, error) {
	select {
	case job := <-q.jobs:
		return &job, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Len returns the number of waiting jobs
func (q *MemoryJobQueue) Len(context.Context) (int64, error) {
	return int64(len(q.jobs)), nil
}
