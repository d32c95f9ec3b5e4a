package sched

import (
	"container/heap"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/aretw0/tendril/internal/logging"
	"github.com/aretw0/tendril/pkg/stack"
)

// Scheduler multiplexes the fibers of one carrier. A carrier is a logical
// serial execution domain: its fibers run strictly one at a time, switching
// only at voluntary suspension points; true parallelism exists only across
// distinct carriers. All Scheduler fields are owned by whichever fiber
// currently holds control, so no locking is needed around queue manipulation.
type Scheduler struct {
	idle   *Fiber
	active *Fiber

	runq   [numPriorities][]*Fiber
	timers timerHeap
	fibers map[*Fiber]struct{}

	// drainer is the idle fiber while it is parked waiting for the last
	// worker to terminate.
	drainer *Fiber

	atomicDepth int
	seq         uint64
	workers     int

	epoch      atomic.Uint64
	stackBytes atomic.Int64
	stackCount atomic.Int64

	log *slog.Logger
}

// RunOption configures a carrier.
type RunOption func(*Scheduler)

// WithLogger sets the structured logger used for fatal diagnostics.
func WithLogger(l *slog.Logger) RunOption {
	return func(s *Scheduler) {
		if l != nil {
			s.log = l
		}
	}
}

// Run turns the calling goroutine into a carrier: it installs a fresh
// Scheduler whose idle fiber is the caller, executes root, then keeps
// dispatching until every fiber created on this carrier has terminated.
// Nesting Run inside a fiber is a contract violation.
func Run(root func(), opts ...RunOption) {
	if InFiber() {
		panic("sched: Run called from inside a fiber")
	}
	s := &Scheduler{
		fibers: make(map[*Fiber]struct{}),
		log:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	idle := &Fiber{
		id:       ID(nextID.Add(1)),
		name:     "main",
		priority: Normal,
		state:    Running,
		sched:    s,
		resume:   make(chan struct{}, 1),
	}
	idle.refs.Store(1)
	idle.runStart = time.Now()
	s.idle = idle
	s.active = idle
	s.fibers[idle] = struct{}{}
	registerCurrent(idle)
	defer unregisterCurrent()
	root()
	s.drain()
}

// Options configures a new fiber.
type Options struct {
	Launch    Launch
	Priority  Priority
	Name      string
	StackSize int
}

// Spawn creates a fiber bound to the calling carrier and starts it according
// to the launch policy. Stack allocation failure is fatal.
func Spawn(fn func(), opts Options) *Fiber {
	cur := Current()
	s := cur.sched
	if opts.Priority >= numPriorities {
		panic(fmt.Sprintf("sched: invalid priority %d", opts.Priority))
	}
	region, err := stack.Allocate(opts.StackSize)
	if err != nil {
		s.log.Error("fiber stack allocation failed", "err", err, "stack_size", opts.StackSize)
		panic(fmt.Sprintf("sched: %v", err))
	}
	f := &Fiber{
		id:       ID(nextID.Add(1)),
		name:     opts.Name,
		priority: opts.Priority,
		state:    Created,
		sched:    s,
		stack:    region,
		resume:   make(chan struct{}, 1),
		entry:    fn,
		heapIdx:  -1,
	}
	f.refs.Store(2) // one reference for the handle, one for the scheduler
	s.fibers[f] = struct{}{}
	s.workers++
	size := int64(region.Size())
	s.stackBytes.Add(size)
	s.stackCount.Add(1)
	liveStackBytes.Add(size)
	liveFibers.Add(1)

	go f.trampoline()

	f.state = Runnable
	f.readyAt = time.Now()
	if opts.Launch == Dispatch {
		// Synchronous hand-off: the creator suspends here and resumes when
		// the new fiber first suspends or terminates.
		f.dispatcher = cur
		cur.state = Waiting
		s.noteSwitchOut(cur, time.Now())
		s.switchTo(cur, f)
	} else {
		s.enqueue(f)
	}
	return f
}

func (f *Fiber) trampoline() {
	<-f.resume
	registerCurrent(f)
	defer unregisterCurrent()
	var anchor byte
	f.stackOrigin = uintptr(unsafe.Pointer(&anchor))
	f.entry()
	f.sched.finish(f)
}

// Yield relinquishes the remainder of the current turn. The fiber is
// re-enqueued at the tail of its priority class.
func Yield() {
	cur := Current()
	s := cur.sched
	cur.state = Runnable
	cur.readyAt = time.Now()
	s.enqueue(cur)
	s.dispatch(cur)
}

// SleepUntil suspends the current fiber until no earlier than tp.
func SleepUntil(tp time.Time) {
	cur := Current()
	s := cur.sched
	cur.state = Waiting
	cur.deadline = tp
	cur.seq = s.nextSeq()
	heap.Push(&s.timers, cur)
	s.dispatch(cur)
}

// Sleep suspends the current fiber for at least d.
func Sleep(d time.Duration) {
	SleepUntil(time.Now().Add(d))
}

// Join suspends the current fiber until target terminates, or returns
// immediately if it already has. The caller must be on the target's carrier
// and outside any atomic section.
func Join(target *Fiber) {
	cur := Current()
	s := cur.sched
	if target.sched != s {
		panic("sched: Join requires the target fiber's own carrier")
	}
	if cur == target {
		panic("sched: fiber cannot join itself")
	}
	if s.atomicDepth > 0 {
		panic("sched: Join inside an atomic section")
	}
	if target.state == Terminated {
		return
	}
	cur.state = Waiting
	target.waiters = append(target.waiters, cur)
	s.dispatch(cur)
}

// EnterAtomic increments the carrier's atomic-section depth. While the depth
// is positive the scheduler performs no involuntary suspension of the active
// fiber; voluntary suspension points still suspend.
func (s *Scheduler) EnterAtomic() { s.atomicDepth++ }

// LeaveAtomic decrements the atomic-section depth. Unbalanced exits panic.
func (s *Scheduler) LeaveAtomic() {
	if s.atomicDepth == 0 {
		panic("sched: unbalanced atomic section exit")
	}
	s.atomicDepth--
}

// AtomicDepth returns the current atomic-section nesting depth.
func (s *Scheduler) AtomicDepth() int { return s.atomicDepth }

// Epoch returns the carrier's context-switch epoch: a counter incremented on
// every switch, usable to detect whether any switch happened between two
// observation points.
func (s *Scheduler) Epoch() uint64 { return s.epoch.Load() }

// WorkerStackBytes returns the total stack bytes reserved for live worker
// fibers on this carrier.
func (s *Scheduler) WorkerStackBytes() int64 { return s.stackBytes.Load() }

// WorkerCount returns the number of live worker fibers on this carrier.
func (s *Scheduler) WorkerCount() int64 { return s.stackCount.Load() }

func (s *Scheduler) nextSeq() uint64 {
	s.seq++
	return s.seq
}

func (s *Scheduler) enqueue(f *Fiber) {
	f.seq = s.nextSeq()
	s.runq[f.priority] = append(s.runq[f.priority], f)
}

// pickNext pops the next eligible fiber: the earliest-deadline expired timer
// entry if any is due, else the highest-priority run queue head.
func (s *Scheduler) pickNext(now time.Time) *Fiber {
	if f := s.timers.popDue(now); f != nil {
		f.state = Runnable
		f.readyAt = f.deadline
		return f
	}
	for p := int(numPriorities) - 1; p >= 0; p-- {
		if q := s.runq[p]; len(q) > 0 {
			f := q[0]
			q[0] = nil
			s.runq[p] = q[1:]
			return f
		}
	}
	return nil
}

// dispatch switches away from cur, which must already be parked in the run
// queue, the timer heap, a waiter list, or be terminated. It returns when cur
// is switched back in. When nothing is eligible the carrier blocks until the
// earliest deadline. The switch-out is accounted here, so a fiber that ends up
// being picked again itself (nothing else to run) still counts as one switch.
func (s *Scheduler) dispatch(cur *Fiber) {
	if cur.state != Terminated {
		s.noteSwitchOut(cur, time.Now())
	}
	if d := cur.dispatcher; d != nil {
		// First suspension of a dispatch-launched fiber: control returns
		// straight to the creator.
		cur.dispatcher = nil
		s.switchTo(cur, d)
		return
	}
	for {
		now := time.Now()
		if next := s.pickNext(now); next != nil {
			if next == cur {
				s.noteSwitchIn(cur, now)
				cur.state = Running
				s.active = cur
				s.epoch.Add(1)
				switchTotal.Add(1)
				return
			}
			s.switchTo(cur, next)
			return
		}
		deadline, ok := s.timers.earliest()
		if !ok {
			s.log.Error("carrier deadlock: live fibers but nothing runnable",
				"workers", s.workers)
			panic("sched: deadlock: live fibers but nothing runnable and no pending timers")
		}
		time.Sleep(time.Until(deadline))
	}
}

// switchTo performs the context switch from out to next: state flip, epoch
// bump, then the opaque transfer (unpark next, park out). The switch-out of
// out must already be accounted by the caller.
func (s *Scheduler) switchTo(out, next *Fiber) {
	terminated := out.state == Terminated
	s.noteSwitchIn(next, time.Now())
	next.state = Running
	s.active = next
	s.epoch.Add(1)
	switchTotal.Add(1)
	next.resume <- struct{}{}
	if terminated {
		return
	}
	<-out.resume
}

func (s *Scheduler) noteSwitchOut(f *Fiber, now time.Time) {
	dur := now.Sub(f.runStart)
	f.running += dur
	f.preempts++
	if thr := LongRunThreshold(); dur > thr {
		longRunCount.Add(1)
		longRunTotal.Add(int64(dur - thr))
	}
}

func (s *Scheduler) noteSwitchIn(f *Fiber, now time.Time) {
	if !f.readyAt.IsZero() {
		if d := now.Sub(f.readyAt); d > 0 {
			switchDelay.Add(int64(d))
		}
		f.readyAt = time.Time{}
	}
	f.runStart = now
}

func (s *Scheduler) wake(f *Fiber, now time.Time) {
	f.state = Runnable
	f.readyAt = now
	s.enqueue(f)
}

// finish runs on the dying fiber's goroutine after its entry returned:
// Terminated is absorbing, all joiners wake exactly once, the scheduler drops
// its reference, and control moves on without re-enqueueing the fiber.
func (s *Scheduler) finish(f *Fiber) {
	now := time.Now()
	s.noteSwitchOut(f, now)
	f.state = Terminated
	for _, w := range f.waiters {
		s.wake(w, now)
	}
	f.waiters = nil
	delete(s.fibers, f)
	s.workers--
	if s.drainer != nil && s.workers == 0 {
		d := s.drainer
		s.drainer = nil
		s.wake(d, now)
	}
	f.Release()
	s.dispatch(f)
}

// drain keeps the carrier dispatching until every worker fiber terminated.
// Called by Run after root returns.
func (s *Scheduler) drain() {
	idle := s.idle
	for s.workers > 0 {
		now := time.Now()
		if next := s.pickNext(now); next != nil {
			idle.state = Waiting
			s.drainer = idle
			s.noteSwitchOut(idle, now)
			s.switchTo(idle, next)
			continue
		}
		deadline, ok := s.timers.earliest()
		if !ok {
			s.log.Error("carrier deadlock while draining", "workers", s.workers)
			panic("sched: deadlock: live fibers but nothing runnable and no pending timers")
		}
		time.Sleep(time.Until(deadline))
	}
}
