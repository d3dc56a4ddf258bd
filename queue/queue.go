// Package queue implements the bounded multi-producer/multi-consumer queue
// of VerifyJobs described in §4.4: enqueue blocks when full, dequeue blocks
// when empty, and a shutdown wakes every blocked caller; after it, Enqueue
// reports false and Dequeue returns any still-buffered jobs before
// reporting ok == false.
package queue

import (
	"sync"

	"github.com/creepminer-go/capacity-miner/job"
)

// Queue is a bounded MPMC channel of *job.VerifyJob with a cooperative
// shutdown. The zero value is not usable; use New.
type Queue struct {
	items     chan *job.VerifyJob
	done      chan struct{}
	closeOnce sync.Once
}

// New constructs a Queue with the given capacity. Per §4.4, capacity should
// be the verifier worker count plus a small slack (2x workers is the
// recommended default) since the arbiter, not queue depth, is the primary
// backpressure mechanism.
func New(capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{
		items: make(chan *job.VerifyJob, capacity),
		done:  make(chan struct{}),
	}
}

// Enqueue blocks until there is room or the queue is shut down. It reports
// false if the queue was (or became) shut down before the job was accepted;
// the caller still owns the job's memory in that case and must release it.
func (q *Queue) Enqueue(j *job.VerifyJob) bool {
	select {
	case q.items <- j:
		return true
	case <-q.done:
		return false
	}
}

// Dequeue blocks until a job is available or the queue is shut down. ok is
// false only once every buffered job has already been drained.
func (q *Queue) Dequeue() (*job.VerifyJob, bool) {
	select {
	case j := <-q.items:
		return j, true
	case <-q.done:
		select {
		case j := <-q.items:
			return j, true
		default:
			return nil, false
		}
	}
}

// Shutdown wakes every blocked Enqueue/Dequeue caller. Any jobs still
// buffered at the time of the call are passed to onDrop (if non-nil) so the
// caller can release their arbiter reservation — this is what guarantees
// §8 invariant 1 (outstanding returns to zero) survives a shutdown with
// in-flight buffered jobs. Safe to call more than once.
func (q *Queue) Shutdown(onDrop func(*job.VerifyJob)) {
	q.closeOnce.Do(func() { close(q.done) })
	if onDrop == nil {
		return
	}
	for {
		select {
		case j := <-q.items:
			onDrop(j)
		default:
			return
		}
	}
}
