package engine

import (
	"container/heap"
	"sync"
	"time"
)

// pendingTask is one parked task awaiting agent capacity.
type pendingTask struct {
	taskID   string
	priority int
	parkedAt time.Time
}

// pendingQueue orders parked tasks by priority descending, then park time
// ascending so equal-priority tasks drain in arrival order.
type pendingQueue struct {
	mu    sync.Mutex
	items pendingHeap
}

func newPendingQueue() *pendingQueue {
	q := &pendingQueue{}
	heap.Init(&q.items)
	return q
}

func (q *pendingQueue) push(taskID string, priority int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	heap.Push(&q.items, pendingTask{taskID: taskID, priority: priority, parkedAt: time.Now()})
}

func (q *pendingQueue) pop() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.items.Len() == 0 {
		return "", false
	}
	item := heap.Pop(&q.items).(pendingTask)
	return item.taskID, true
}

func (q *pendingQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len()
}

// pendingHeap implements heap.Interface.
type pendingHeap []pendingTask

func (h pendingHeap) Len() int { return len(h) }

func (h pendingHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority > h[j].priority
	}
	return h[i].parkedAt.Before(h[j].parkedAt)
}

func (h pendingHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *pendingHeap) Push(x interface{}) {
	*h = append(*h, x.(pendingTask))
}

func (h *pendingHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
