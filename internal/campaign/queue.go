package campaign

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/hqnguyen/hotelharvest/internal/harvest"
)

const (
	defaultQueuePoll   = time.Second
	defaultIdleTimeout = 60 * time.Second
)

// TaskQueue is the dynamic assignment strategy: one shared concurrent queue
// for a whole partition, balancing load at the cost of shared state. A
// consumer stops when the shared success counter reaches the partition
// total (primary), when the queue has been empty past the idle timeout
// (secondary safety net for runs with failures), or on cancellation.
type TaskQueue struct {
	items        chan harvest.WorkItem
	total        int64
	done         atomic.Int64
	lastActivity atomic.Int64
	idleTimeout  time.Duration
	poll         time.Duration
}

// NewTaskQueue builds a queue preloaded with every item of the partition.
func NewTaskQueue(items []harvest.WorkItem, idleTimeout, poll time.Duration) *TaskQueue {
	if idleTimeout <= 0 {
		idleTimeout = defaultIdleTimeout
	}
	if poll <= 0 {
		poll = defaultQueuePoll
	}
	q := &TaskQueue{
		items:       make(chan harvest.WorkItem, len(items)),
		total:       int64(len(items)),
		idleTimeout: idleTimeout,
		poll:        poll,
	}
	for _, item := range items {
		q.items <- item
	}
	q.touch()
	return q
}

// Next pulls one item with a bounded wait. Safe for concurrent consumers;
// each item is delivered to exactly one of them.
func (q *TaskQueue) Next(ctx context.Context) (harvest.WorkItem, bool) {
	timer := time.NewTimer(q.poll)
	defer timer.Stop()

	for {
		if q.done.Load() >= q.total {
			return harvest.WorkItem{}, false
		}

		select {
		case item := <-q.items:
			q.touch()
			return item, true
		case <-ctx.Done():
			return harvest.WorkItem{}, false
		case <-timer.C:
			if len(q.items) == 0 && q.idle() {
				return harvest.WorkItem{}, false
			}
			timer.Reset(q.poll)
		}
	}
}

// Completed increments the shared success counter that acts as the primary
// completion barrier.
func (q *TaskQueue) Completed() {
	q.done.Add(1)
	q.touch()
}

func (q *TaskQueue) touch() {
	q.lastActivity.Store(time.Now().UnixNano())
}

func (q *TaskQueue) idle() bool {
	last := time.Unix(0, q.lastActivity.Load())
	return time.Since(last) > q.idleTimeout
}
