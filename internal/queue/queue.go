// Package queue bounds how many toolchain jobs run at once.
package queue

import (
	"context"
	"fmt"
	"sync/atomic"

	"fortio.org/safecast"
	"golang.org/x/sync/semaphore"
)

// Status is a snapshot of the queue.
//
// Pending counts jobs holding a slot (running); Size counts jobs waiting for
// one. Busy is true while either is non-zero.
type Status struct {
	Busy    bool `json:"busy"`
	Pending int  `json:"pending"`
	Size    int  `json:"size"`
}

// Queue runs jobs with at most Concurrency of them in flight.
type Queue struct {
	sem         *semaphore.Weighted
	concurrency int
	running     atomic.Int64
	waiting     atomic.Int64
}

// New creates a queue. Non-positive concurrency is treated as 1.
func New(concurrency int) *Queue {
	if concurrency <= 0 {
		concurrency = 1
	}
	n, err := safecast.Conv[int64](concurrency)
	if err != nil {
		n = 1
	}
	return &Queue{sem: semaphore.NewWeighted(n), concurrency: concurrency}
}

// Concurrency returns the slot count.
func (q *Queue) Concurrency() int { return q.concurrency }

// Do waits for a slot and runs job in it. The wait is abandoned when ctx is
// done; a job that already started always runs to completion. The job gets ctx
// without its cancellation, so its values survive but a client going away
// does not kill the subprocess; jobs bound themselves with their own timeouts.
func (q *Queue) Do(ctx context.Context, job func(context.Context) error) error {
	q.waiting.Add(1)
	err := q.sem.Acquire(ctx, 1)
	q.waiting.Add(-1)
	if err != nil {
		return fmt.Errorf("queue: waiting for a slot: %w", err)
	}
	q.running.Add(1)
	defer func() {
		q.running.Add(-1)
		q.sem.Release(1)
	}()
	return job(context.WithoutCancel(ctx))
}

// Status reports the current load.
func (q *Queue) Status() Status {
	running := int(q.running.Load())
	waiting := int(q.waiting.Load())
	return Status{
		Busy:    running > 0 || waiting > 0,
		Pending: running,
		Size:    waiting,
	}
}
