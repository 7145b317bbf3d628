package heartbeat

import "sync"

// Queue buffers heartbeats between producers and the dispatcher. Enqueue
// never blocks on a drain for longer than a slice swap, and a drain takes
// everything present at that instant: later arrivals wait for the next one.
type Queue struct {
	mu    sync.Mutex
	items []Heartbeat
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Enqueue appends h.
func (q *Queue) Enqueue(h Heartbeat) {
	q.mu.Lock()
	q.items = append(q.items, h)
	q.mu.Unlock()
}

// Len returns the number of buffered heartbeats.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Drain removes and returns every buffered heartbeat in arrival order.
func (q *Queue) Drain() []Heartbeat {
	q.mu.Lock()
	items := q.items
	q.items = nil
	q.mu.Unlock()
	return items
}

// NextBatch splits a drain into the primary heartbeat and the extras that
// ride along with it. ok is false when the queue was empty.
func (q *Queue) NextBatch() (primary Heartbeat, extras []Heartbeat, ok bool) {
	items := q.Drain()
	if len(items) == 0 {
		return Heartbeat{}, nil, false
	}
	return items[0], items[1:], true
}
