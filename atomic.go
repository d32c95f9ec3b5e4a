package tendril

import "github.com/aretw0/tendril/internal/sched"

// AtomicSection marks a region during which the active fiber must not be
// involuntarily suspended. Sections nest: the carrier keeps a depth counter,
// and the suppression lifts when the outermost section ends. Voluntary
// suspension points (Yield, Sleep) still suspend inside a section; Join does
// not and panics. A section is not copyable and must be ended exactly once.
type AtomicSection struct {
	s     *sched.Scheduler
	ended bool
}

// BeginAtomic opens an atomic section on the calling carrier. Pair with a
// deferred End.
func BeginAtomic() *AtomicSection {
	s := sched.Current().Scheduler()
	s.EnterAtomic()
	return &AtomicSection{s: s}
}

// End closes the section. Ending twice panics.
func (a *AtomicSection) End() {
	if a.ended {
		panic("tendril: atomic section ended twice")
	}
	a.ended = true
	a.s.LeaveAtomic()
}
