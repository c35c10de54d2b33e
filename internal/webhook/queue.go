package webhook

import "sync"

// Queue is a FIFO of account IDs awaiting notification.
//
// An ID that is already queued is not added again and keeps its position.
// Once dequeued, the same ID may be queued afresh.
//
// Thread Safety: all methods are safe for concurrent use.
type Queue struct {
	mu      sync.Mutex
	items   []string
	pending map[string]struct{}
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{pending: make(map[string]struct{})}
}

// Enqueue appends id unless it is already waiting.
// Returns true if id was added.
func (q *Queue) Enqueue(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.pending[id]; ok {
		return false
	}
	q.pending[id] = struct{}{}
	q.items = append(q.items, id)
	return true
}

// Dequeue removes and returns the oldest id. ok is false when the queue is empty.
func (q *Queue) Dequeue() (id string, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return "", false
	}
	id = q.items[0]
	q.items[0] = ""
	q.items = q.items[1:]
	delete(q.pending, id)

	// Release the backing array once drained so it does not grow unbounded.
	if len(q.items) == 0 {
		q.items = nil
	}
	return id, true
}

// Len returns the number of queued ids.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// IsEmpty reports whether nothing is queued.
func (q *Queue) IsEmpty() bool {
	return q.Len() == 0
}
