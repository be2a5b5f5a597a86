package session

import (
	"context"
	"sync"
)

// effect is one unit of background I/O triggered by a transition.
// run receives the machine context and must only read state captured when
// the effect was created.
type effect struct {
	name string
	run  func(ctx context.Context)

	// done is closed after the effect ran or was skipped; used by Flush.
	done chan struct{}
}

// effectQueue is a thread-safe FIFO queue of effects.
//
// Transitions enqueue while holding the machine lock; a single worker
// goroutine dequeues, so effects run one at a time in submission order.
//
// The queue uses a size-1 channel for signaling so the worker can wait
// for work and context cancellation in the same select.
type effectQueue struct {
	mu      sync.Mutex
	effects []effect
	closed  bool
	signal  chan struct{} // Signals effect availability (buffered, size 1)
}

func newEffectQueue() *effectQueue {
	return &effectQueue{
		effects: make([]effect, 0, 16),
		signal:  make(chan struct{}, 1),
	}
}

// Enqueue adds e to the back of the queue.
// Returns false if the queue is closed.
func (q *effectQueue) Enqueue(e effect) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.effects = append(q.effects, e)

	// Non-blocking: the buffer of 1 coalesces multiple signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue removes the front effect without blocking.
func (q *effectQueue) TryDequeue() (effect, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.effects) == 0 {
		return effect{}, false
	}

	e := q.effects[0]
	// Release the closure so captured session copies can be collected.
	q.effects[0] = effect{}
	if len(q.effects) == 1 {
		q.effects = q.effects[:0]
	} else {
		q.effects = q.effects[1:]
	}
	return e, true
}

// Wait returns a channel that signals when effects may be available.
// After Close the channel is closed and always ready.
func (q *effectQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the number of queued effects.
func (q *effectQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.effects)
}

// Drained reports whether the queue is closed and empty.
func (q *effectQueue) Drained() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed && len(q.effects) == 0
}

// Close stops further enqueues and wakes the worker.
func (q *effectQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
