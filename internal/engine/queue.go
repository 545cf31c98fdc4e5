package engine

import (
	"sync"

	"github.com/roach88/tagtree/internal/ir"
	"github.com/roach88/tagtree/internal/label"
)

// requestKind distinguishes between request kinds.
type requestKind int

const (
	requestIntern requestKind = iota + 1
	requestUnion
	requestMark
	requestDecode
	requestStats
	requestSnapshot
)

func (k requestKind) String() string {
	switch k {
	case requestIntern:
		return "intern"
	case requestUnion:
		return "union"
	case requestMark:
		return "mark"
	case requestDecode:
		return "decode"
	case requestStats:
		return "stats"
	case requestSnapshot:
		return "snapshot"
	default:
		return "unknown"
	}
}

// request is one unit of work for the Run loop. The reply channel is
// buffered so the loop never blocks on a caller that gave up waiting.
type request struct {
	kind    requestKind
	session string
	pos     uint32
	a, b    label.Label
	reply   chan response
}

type response struct {
	label    label.Label
	marked   bool
	decoded  Decoded
	stats    Stats
	snapshot *ir.Snapshot
	err      error
}

// requestQueue is a thread-safe FIFO queue for requests.
//
// The queue is unbounded so callers never block on enqueue; backpressure
// comes from callers waiting on their reply.
//
// The queue uses a channel for signaling to enable context-aware waiting
// in the Run loop (prevents goroutine hangs on context cancellation).
type requestQueue struct {
	mu       sync.Mutex
	requests []request
	closed   bool
	signal   chan struct{} // Signals request availability (buffered, size 1)
}

func newRequestQueue() *requestQueue {
	return &requestQueue{
		requests: make([]request, 0, 64),
		signal:   make(chan struct{}, 1),
	}
}

// Enqueue adds a request to the back of the queue.
// Thread-safe: may be called from any goroutine.
// Returns false if the queue is closed.
func (q *requestQueue) Enqueue(r request) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.requests = append(q.requests, r)

	// Non-blocking: buffer of 1 coalesces multiple signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue attempts to dequeue without blocking.
// Returns (request{}, false) if queue is empty.
func (q *requestQueue) TryDequeue() (request, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.requests) == 0 {
		return request{}, false
	}

	r := q.requests[0]

	// Clear the slot so the reply channel can be collected.
	q.requests[0] = request{}

	if len(q.requests) == 1 {
		q.requests = q.requests[:0]
	} else {
		q.requests = q.requests[1:]
	}

	return r, true
}

// Wait returns a channel that signals when requests may be available.
// The channel is closed once the queue is closed.
func (q *requestQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *requestQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.requests)
}

// Drained reports whether the queue is closed and has nothing left.
func (q *requestQueue) Drained() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed && len(q.requests) == 0
}

// Close signals that no more requests will be enqueued.
// Wakes any blocked waiters by closing the signal channel.
func (q *requestQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}
