// Implements the BoundedQueue that sits in front of every dispatcher and worker.
// Messages are enqueued on Accept and dequeued by the owner's goroutine.

package sim

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
)

// ErrQueueFull is returned by TryPut (and by endpoints using the reject
// overflow policy) when the queue is at capacity.
var ErrQueueFull = errors.New("queue full")

// BoundedQueue is a FIFO of messages with a capacity fixed at construction.
// Any number of producers may Put concurrently; Take is meant for the single
// consumer goroutine that owns the queue.
//
// The buffered channel makes enqueue/dequeue atomic and keeps Len() <= Cap()
// at every observation point.
type BoundedQueue struct {
	ch        chan *Message
	highWater atomic.Int64
}

// NewBoundedQueue creates a queue holding at most capacity messages.
// Panics if capacity < 1.
func NewBoundedQueue(capacity int) *BoundedQueue {
	if capacity < 1 {
		panic(fmt.Sprintf("NewBoundedQueue: capacity must be >= 1, got %d", capacity))
	}
	return &BoundedQueue{ch: make(chan *Message, capacity)}
}

// Put enqueues msg, waiting for space while the queue is full.
// Returns ctx.Err() if ctx ends first.
func (q *BoundedQueue) Put(ctx context.Context, msg *Message) error {
	select {
	case q.ch <- msg:
		q.observe()
		return nil
	default:
	}
	select {
	case q.ch <- msg:
		q.observe()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryPut enqueues msg if there is space, otherwise returns ErrQueueFull.
func (q *BoundedQueue) TryPut(msg *Message) error {
	select {
	case q.ch <- msg:
		q.observe()
		return nil
	default:
		return ErrQueueFull
	}
}

// Take dequeues the head message, waiting while the queue is empty.
func (q *BoundedQueue) Take(ctx context.Context) (*Message, error) {
	select {
	case msg := <-q.ch:
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Len returns the number of queued messages.
func (q *BoundedQueue) Len() int {
	return len(q.ch)
}

// Cap returns the queue capacity.
func (q *BoundedQueue) Cap() int {
	return cap(q.ch)
}

// HighWater returns the largest length observed right after an enqueue.
func (q *BoundedQueue) HighWater() int {
	return int(q.highWater.Load())
}

func (q *BoundedQueue) observe() {
	n := int64(len(q.ch))
	for {
		cur := q.highWater.Load()
		if n <= cur || q.highWater.CompareAndSwap(cur, n) {
			return
		}
	}
}
