// Package scheduler holds deferred tasks ordered by their ready time. It is
// not safe for concurrent use; the owning run loop drains it.
package scheduler

import (
	"container/heap"
	"time"
)

type Task func()

type Handle struct {
	item *item
}

type item struct {
	readyAt   time.Time
	seq       uint64
	task      Task
	index     int
	cancelled bool
}

type Queue struct {
	items taskHeap
	seq   uint64
}

func New() *Queue {
	return &Queue{}
}

// Schedule adds a task. Tasks with equal ready times run in insertion order.
func (q *Queue) Schedule(readyAt time.Time, task Task) Handle {
	q.seq++
	it := &item{readyAt: readyAt, seq: q.seq, task: task}
	heap.Push(&q.items, it)
	return Handle{item: it}
}

func (q *Queue) Cancel(h Handle) bool {
	if h.item == nil || h.item.cancelled || h.item.index < 0 {
		return false
	}
	h.item.cancelled = true
	heap.Remove(&q.items, h.item.index)
	return true
}

// RunDue runs every task ready at or before now and returns how many ran.
// Tasks scheduled by a running task are eligible in the same call when due.
func (q *Queue) RunDue(now time.Time) int {
	ran := 0
	for q.items.Len() > 0 {
		next := q.items[0]
		if next.readyAt.After(now) {
			break
		}
		heap.Pop(&q.items)
		ran++
		next.task()
	}
	return ran
}

func (q *Queue) Len() int {
	return q.items.Len()
}

func (q *Queue) NextAt() (time.Time, bool) {
	if q.items.Len() == 0 {
		return time.Time{}, false
	}
	return q.items[0].readyAt, true
}

type taskHeap []*item

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	if h[i].readyAt.Equal(h[j].readyAt) {
		return h[i].seq < h[j].seq
	}
	return h[i].readyAt.Before(h[j].readyAt)
}

func (h taskHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *taskHeap) Push(x any) {
	it := x.(*item)
	it.index = len(*h)
	*h = append(*h, it)
}

func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	it.index = -1
	*h = old[:n-1]
	return it
}
