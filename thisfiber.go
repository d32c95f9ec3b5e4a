package tendril

import (
	"io"
	"time"

	"github.com/aretw0/tendril/internal/sched"
)

// The functions in this file operate on whichever fiber is active on the
// calling carrier. Calling any of them from outside a fiber (outside Run)
// panics.

// Yield voluntarily relinquishes the remainder of the current scheduling
// turn; the fiber is re-enqueued at the tail of its priority class.
func Yield() {
	sched.Yield()
}

// Sleep suspends the current fiber for at least d. Resumption is best-effort:
// never earlier than the deadline, possibly later under load.
func Sleep(d time.Duration) {
	sched.Sleep(d)
}

// SleepUntil suspends the current fiber until no earlier than tp.
func SleepUntil(tp time.Time) {
	sched.SleepUntil(tp)
}

// SetName relabels the current fiber; visible to diagnostics.
func SetName(name string) {
	sched.Current().SetName(name)
}

// Name returns the current fiber's label.
func Name() string {
	return sched.Current().Name()
}

// RunningTime returns the cumulative time the current fiber spent actually
// executing, excluding time spent runnable or waiting.
func RunningTime() time.Duration {
	return sched.Current().RunningTime()
}

// PreemptCount returns how many times the current fiber has been switched
// out.
func PreemptCount() uint64 {
	return sched.Current().PreemptCount()
}

// StackMargin returns the distance in bytes from the given address (typically
// the address of a local variable) down to the low end of the current fiber's
// stack budget. It decreases as call depth grows and never exceeds the
// allocated size.
func StackMargin(addr uintptr) int {
	return sched.Current().StackMarginAt(addr)
}

// CheckStackMargin panics if the current fiber's remaining stack budget is
// below the safety threshold. A last-resort overflow guard, not a guarantee.
func CheckStackMargin() {
	sched.Current().CheckStackMargin()
}

// StackDumpGuard scopes a locals-dump callback registration. Close always
// clears the callback, on every exit path.
type StackDumpGuard struct {
	f *sched.Fiber
}

// OnStackDump registers fn as the current fiber's locals renderer: while the
// guard is open, DumpFiberStacks invokes fn after the fiber's summary line.
// At most one callback is active per fiber. Close the guard with defer.
func OnStackDump(fn func(io.Writer)) *StackDumpGuard {
	f := sched.Current()
	f.SetDumpCallback(fn)
	return &StackDumpGuard{f: f}
}

// Close unregisters the callback. Safe to call more than once.
func (g *StackDumpGuard) Close() {
	if g.f != nil {
		g.f.SetDumpCallback(nil)
		g.f = nil
	}
}
