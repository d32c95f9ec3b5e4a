package sched

import (
	"container/heap"
	"time"
)

// timerHeap orders waiting fibers by wake deadline, earliest first.
// Ties are broken by arrival order so equal deadlines wake FIFO.
type timerHeap []*Fiber

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].deadline.Equal(h[j].deadline) {
		return h[i].seq < h[j].seq
	}
	return h[i].deadline.Before(h[j].deadline)
}

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].heapIdx = i
	h[j].heapIdx = j
}

func (h *timerHeap) Push(x any) {
	f := x.(*Fiber)
	f.heapIdx = len(*h)
	*h = append(*h, f)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	f := old[n-1]
	old[n-1] = nil
	f.heapIdx = -1
	*h = old[:n-1]
	return f
}

// earliest returns the nearest wake deadline, if any fiber is waiting on one.
func (h timerHeap) earliest() (time.Time, bool) {
	if len(h) == 0 {
		return time.Time{}, false
	}
	return h[0].deadline, true
}

// popDue removes and returns the earliest-deadline fiber whose deadline has
// elapsed, or nil when none is due.
func (h *timerHeap) popDue(now time.Time) *Fiber {
	if len(*h) == 0 || (*h)[0].deadline.After(now) {
		return nil
	}
	return heap.Pop(h).(*Fiber)
}
