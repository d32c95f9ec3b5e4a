package sched

import (
	"fmt"
	"io"
	"sort"
)

// DumpStacks renders every live fiber of this carrier: identity, state,
// priority, accounting, and stack budget, followed by the fiber's registered
// locals callback when one is active. Must be called from a fiber of this
// carrier; fibers of other carriers are not visible.
func (s *Scheduler) DumpStacks(w io.Writer) {
	fibers := make([]*Fiber, 0, len(s.fibers))
	for f := range s.fibers {
		fibers = append(fibers, f)
	}
	sort.Slice(fibers, func(i, j int) bool { return fibers[i].id < fibers[j].id })

	for _, f := range fibers {
		name := f.name
		if name == "" {
			name = "-"
		}
		fmt.Fprintf(w, "fiber %d (%s): state=%s prio=%s switches=%d running=%s stack=%dB\n",
			f.id, name, f.state, f.priority, f.preempts, f.RunningTime(), f.StackSize())
		if f.dumpLocals != nil {
			f.dumpLocals(w)
		}
	}
}
