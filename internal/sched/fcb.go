package sched

import (
	"io"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/aretw0/tendril/pkg/stack"
)

// ID identifies a fiber for the lifetime of the process. The zero ID is never
// assigned and acts as the null identity of an empty handle.
type ID uint64

var nextID atomic.Uint64

// Priority orders the run queue. It never preempts a running fiber.
type Priority uint8

const (
	Low Priority = iota
	Normal
	High

	numPriorities = 3
)

func (p Priority) String() string {
	switch p {
	case Low:
		return "low"
	case Normal:
		return "normal"
	case High:
		return "high"
	}
	return "unknown"
}

// Launch selects how a new fiber is started.
type Launch uint8

const (
	// Post enqueues the fiber; the creator keeps running.
	Post Launch = iota
	// Dispatch suspends the creator and transfers control to the new fiber
	// immediately; the creator resumes when the fiber first suspends or
	// terminates.
	Dispatch
)

// State is the run state of a fiber. Terminated is absorbing.
type State uint8

const (
	Created State = iota
	Runnable
	Running
	Waiting
	Terminated
)

func (s State) String() string {
	switch s {
	case Created:
		return "created"
	case Runnable:
		return "runnable"
	case Running:
		return "running"
	case Waiting:
		return "waiting"
	case Terminated:
		return "terminated"
	}
	return "unknown"
}

// SafetyMargin is the low-water mark for CheckStackMargin. A fiber whose
// remaining stack budget drops below it is considered about to overflow.
const SafetyMargin = 4 * 1024

// Fiber is the control block of one fiber: the scheduler-visible state record.
// All fields except refs are owned by the fiber's carrier and must only be
// touched from it; refs is the sole cross-carrier mutable state.
type Fiber struct {
	id       ID
	name     string
	priority Priority
	state    State
	sched    *Scheduler
	stack    *stack.Region

	refs atomic.Int32

	entry  func()
	resume chan struct{}

	// dispatcher, when set, is resumed directly at this fiber's first
	// suspension point instead of going through the run queue.
	dispatcher *Fiber

	seq      uint64
	deadline time.Time
	heapIdx  int
	waiters  []*Fiber

	readyAt  time.Time
	runStart time.Time
	running  time.Duration
	preempts uint64

	stackOrigin uintptr
	dumpLocals  func(io.Writer)
}

// ID returns the fiber's stable identity.
func (f *Fiber) ID() ID { return f.id }

// Name returns the fiber's label.
func (f *Fiber) Name() string { return f.name }

// SetName relabels the fiber. Visible to diagnostics.
func (f *Fiber) SetName(name string) { f.name = name }

// Priority returns the fiber's scheduling class.
func (f *Fiber) Priority() Priority { return f.priority }

// State returns the fiber's current run state.
func (f *Fiber) State() State { return f.state }

// Scheduler returns the carrier scheduler this fiber is bound to. Fixed at
// creation; fibers never migrate.
func (f *Fiber) Scheduler() *Scheduler { return f.sched }

// IsActive reports whether this fiber is the one currently running on its
// carrier.
func (f *Fiber) IsActive() bool { return f.sched.active == f }

// RunningTime returns the cumulative time this fiber spent actually
// executing, excluding time spent runnable or waiting.
func (f *Fiber) RunningTime() time.Duration {
	if f.state == Running {
		return f.running + time.Since(f.runStart)
	}
	return f.running
}

// PreemptCount returns how many times this fiber has been switched out.
func (f *Fiber) PreemptCount() uint64 { return f.preempts }

// StackSize returns the size of the fiber's stack budget in bytes.
func (f *Fiber) StackSize() int {
	if f.stack == nil {
		return 0
	}
	return f.stack.Size()
}

// StackMarginAt computes the remaining stack budget, in bytes, between the
// given address (typically the address of a local variable in the caller) and
// the low end of the fiber's stack budget. The budget is anchored at the
// highest address observed so far; goroutine stacks may be relocated as they
// grow, so a probe outside the tracked window re-anchors at the given address
// and reports a full margin.
func (f *Fiber) StackMarginAt(addr uintptr) int {
	size := f.StackSize()
	if size == 0 {
		return 0
	}
	used := int64(f.stackOrigin) - int64(addr)
	if f.stackOrigin == 0 || used < 0 || used > int64(size) {
		f.stackOrigin = addr
		return size
	}
	return size - int(used)
}

// CheckStackMargin verifies the current margin against SafetyMargin and
// panics when the fiber is about to exhaust its stack budget. A fiber without
// a stack budget (the carrier's idle fiber) has nothing to exhaust, so the
// check never fires for it. A last-resort guard, not a guarantee.
func (f *Fiber) CheckStackMargin() {
	if f.StackSize() == 0 {
		return
	}
	var anchor byte
	if m := f.StackMarginAt(uintptr(unsafe.Pointer(&anchor))); m < SafetyMargin {
		f.sched.log.Error("fiber stack margin exhausted",
			"fiber", f.id, "name", f.name, "margin", m, "stack_size", f.StackSize())
		panic("sched: fiber stack margin below safety threshold")
	}
}

// SetDumpCallback installs or clears (nil) the locals-dump callback invoked
// by DumpStacks for this fiber. At most one callback is active at a time.
func (f *Fiber) SetDumpCallback(fn func(io.Writer)) { f.dumpLocals = fn }

// Retain adds a strong reference to the control block.
func (f *Fiber) Retain() { f.refs.Add(1) }

// Release drops a strong reference. The stack region is reclaimed when the
// last reference is gone; the scheduler holds one until termination, so the
// region is never freed under a running fiber.
func (f *Fiber) Release() {
	if f.refs.Add(-1) != 0 {
		return
	}
	if f.stack != nil {
		size := int64(f.stack.Size())
		f.stack.Release()
		f.stack = nil
		f.sched.stackBytes.Add(-size)
		f.sched.stackCount.Add(-1)
		liveStackBytes.Add(-size)
		liveFibers.Add(-1)
	}
}
