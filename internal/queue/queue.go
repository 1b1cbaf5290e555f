package queue

import "sync"

// Queue is an unbounded FIFO safe for many producers and one consumer.
// A task equal to one still pending is not added again.
type Queue struct {
	mu      sync.Mutex
	items   []Task
	pending map[Task]struct{}
}

func New() *Queue {
	return &Queue{pending: make(map[Task]struct{})}
}

// Push appends the task and reports whether it was added.
func (q *Queue) Push(task Task) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.pending[task]; ok {
		return false
	}
	q.pending[task] = struct{}{}
	q.items = append(q.items, task)
	return true
}

// Pop removes the oldest task. ok is false when the queue is empty.
func (q *Queue) Pop() (task Task, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return Task{}, false
	}

	task = q.items[0]
	q.items[0] = Task{}
	q.items = q.items[1:]
	delete(q.pending, task)

	if len(q.items) == 0 {
		q.items = nil
	}
	return task, true
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Snapshot copies the pending tasks in execution order.
func (q *Queue) Snapshot() []Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Task, len(q.items))
	copy(out, q.items)
	return out
}
