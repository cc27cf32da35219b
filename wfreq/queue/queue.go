// Package queue provides the FIFO handoff between the directory walk and the
// counting workers.
package queue

import (
	"context"
	"errors"
	"sync"

	"github.com/ZanzyTHEbar/wordfreq/wfreq/filesystem/common"

	"github.com/emirpasic/gods/queues/linkedlistqueue"
)

// ErrEndOfInput is returned by Pop once the queue is closed and drained.
var ErrEndOfInput = errors.New("end of input")

// WorkItem is a path to one regular file. Once pushed, the producer gives it
// up; once popped, it belongs to the popping worker.
type WorkItem string

// WorkQueue is an unbounded, thread-safe FIFO of work items.
//
// Push never blocks. Pop blocks until an item is available, the queue is
// closed and empty, or the caller's context is done. The zero value is not
// usable; call New.
type WorkQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  *linkedlistqueue.Queue
	closed bool

	pushed uint64
	popped uint64
}

// New creates an empty open queue
func New() *WorkQueue {
	q := &WorkQueue{items: linkedlistqueue.New()}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push enqueues item and wakes one waiting consumer.
// Pushing after Close is a programming error and panics.
func (q *WorkQueue) Push(item WorkItem) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		panic(common.ErrQueueClosed)
	}
	q.items.Enqueue(item)
	q.pushed++
	q.cond.Signal()
}

// Pop removes the oldest item. It returns ErrEndOfInput when the queue is
// closed and empty, or ctx.Err() if ctx ends first.
func (q *WorkQueue) Pop(ctx context.Context) (WorkItem, error) {
	// Waiters must be woken when ctx ends. Broadcast under the lock so the
	// wakeup cannot slip in between a waiter's check and its Wait.
	stop := context.AfterFunc(ctx, func() {
		q.mu.Lock()
		q.cond.Broadcast()
		q.mu.Unlock()
	})
	defer stop()

	q.mu.Lock()
	defer q.mu.Unlock()

	for q.items.Empty() && !q.closed {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		q.cond.Wait()
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	v, ok := q.items.Dequeue()
	if !ok {
		return "", ErrEndOfInput
	}
	q.popped++
	return v.(WorkItem), nil
}

// Close marks that no more items will be pushed and wakes every waiting
// consumer. Calling it more than once is harmless.
func (q *WorkQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	q.cond.Broadcast()
}

// Len returns the number of items waiting to be popped
func (q *WorkQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Size()
}

// Stats returns how many items were pushed and popped so far
func (q *WorkQueue) Stats() (pushed, popped uint64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pushed, q.popped
}
