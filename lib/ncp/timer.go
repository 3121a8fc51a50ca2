package ncp

import (
	"container/heap"
	"time"
)

// timerTask is one deferred task keyed by its absolute due time. seq breaks
// ties so tasks with equal due times fire in posting order.
type timerTask struct {
	due  time.Time
	task func()
	seq  uint64
}

// timerHeap is a min-heap of deferred tasks ordered by due time.
type timerHeap []*timerTask

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].due.Equal(h[j].due) {
		return h[i].seq < h[j].seq
	}
	return h[i].due.Before(h[j].due)
}

func (h timerHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *timerHeap) Push(x interface{}) { *h = append(*h, x.(*timerTask)) }

func (h *timerHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// timerQueue schedules deferred tasks by absolute due time. Duplicate due
// times are allowed and there is no cancellation. Not safe for concurrent
// use; the controller drives it from the loop goroutine.
type timerQueue struct {
	heap timerHeap
	seq  uint64
}

func newTimerQueue() *timerQueue {
	return &timerQueue{}
}

// Post schedules task at due.
func (q *timerQueue) Post(due time.Time, task func()) {
	q.seq++
	heap.Push(&q.heap, &timerTask{due: due, task: task, seq: q.seq})
}

// NextDue returns the earliest due time, if any task is queued.
func (q *timerQueue) NextDue() (time.Time, bool) {
	if q.heap.Len() == 0 {
		return time.Time{}, false
	}
	return q.heap[0].due, true
}

// Fire invokes every task with due <= now in ascending due order. Each entry
// is removed from the queue before its task runs, so a task reposting itself
// lands in the queue as new work. A task posting work already due fires in
// the same pass. Returns the number of tasks fired.
func (q *timerQueue) Fire(now time.Time) int {
	fired := 0
	for q.heap.Len() > 0 && !q.heap[0].due.After(now) {
		entry := heap.Pop(&q.heap).(*timerTask)
		entry.task()
		fired++
	}
	return fired
}

// Len returns the number of queued tasks.
func (q *timerQueue) Len() int {
	return q.heap.Len()
}
