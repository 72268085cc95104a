package capture

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrQueueTimeout is returned when a Put or Get does not complete in time.
	ErrQueueTimeout = errors.New("capture queue timeout")
	// ErrQueueClosed is returned by Put once the queue has been closed.
	ErrQueueClosed = errors.New("capture queue closed")
)

// Queue is a bounded FIFO of frames with join semantics: every item taken
// with Get must be acknowledged with Done, and Join waits until all items put
// so far have been acknowledged.
type Queue struct {
	items chan Frame

	mu      sync.Mutex
	pending int
	drained chan struct{}
	closed  bool
}

// NewQueue creates a queue holding at most capacity frames.
func NewQueue(capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	drained := make(chan struct{})
	close(drained)
	return &Queue{items: make(chan Frame, capacity), drained: drained}
}

// Cap returns the queue capacity.
func (q *Queue) Cap() int { return cap(q.items) }

// Len returns the number of queued frames.
func (q *Queue) Len() int { return len(q.items) }

// Put enqueues f, waiting at most timeout for room. A timeout <= 0 waits
// until ctx is done.
func (q *Queue) Put(ctx context.Context, f Frame, timeout time.Duration) error {
	if err := q.acquire(false); err != nil {
		return err
	}
	return q.send(ctx, f, timeout)
}

// PutTerminal enqueues the entry telling one consumer to exit. It is accepted
// after Close.
func (q *Queue) PutTerminal(ctx context.Context, timeout time.Duration) error {
	if err := q.acquire(true); err != nil {
		return err
	}
	return q.send(ctx, Frame{terminal: true}, timeout)
}

func (q *Queue) send(ctx context.Context, f Frame, timeout time.Duration) error {

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case q.items <- f:
		return nil
	case <-ctx.Done():
		q.Done()
		return ctx.Err()
	case <-expired:
		q.Done()
		return ErrQueueTimeout
	}
}

// Get dequeues the next frame, waiting at most timeout. A timeout <= 0 waits
// until ctx is done.
func (q *Queue) Get(ctx context.Context, timeout time.Duration) (Frame, error) {
	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case f := <-q.items:
		return f, nil
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	case <-expired:
		return Frame{}, ErrQueueTimeout
	}
}

// Done acknowledges one frame returned by Get.
func (q *Queue) Done() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.pending == 0 {
		return
	}
	q.pending--
	if q.pending == 0 {
		close(q.drained)
	}
}

// Join blocks until every queued frame has been acknowledged or ctx is done.
func (q *Queue) Join(ctx context.Context) error {
	q.mu.Lock()
	drained := q.drained
	q.mu.Unlock()

	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close rejects further frames. Queued frames can still be taken.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
}

func (q *Queue) acquire(terminal bool) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed && !terminal {
		return ErrQueueClosed
	}
	if q.pending == 0 {
		q.drained = make(chan struct{})
	}
	q.pending++
	return nil
}
