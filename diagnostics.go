package tendril

import (
	"io"
	"time"

	"github.com/aretw0/tendril/internal/sched"
)

// Stats is a snapshot of the process-wide runtime aggregates.
type Stats = sched.Stats

// RuntimeStats snapshots the aggregates across all carriers.
func RuntimeStats() Stats {
	return sched.GlobalStats()
}

// SwitchEpoch returns the calling carrier's context-switch epoch: a counter
// incremented on every switch, usable to detect whether any switch occurred
// between two observation points.
func SwitchEpoch() uint64 {
	return sched.Current().Scheduler().Epoch()
}

// SwitchDelay returns the aggregated delay between fibers becoming runnable
// and actually being switched to, summed over all carriers.
func SwitchDelay() time.Duration {
	return sched.GlobalStats().SwitchDelay
}

// LongRunCount returns how many times a fiber ran continuously past the
// long-run threshold.
func LongRunCount() uint64 {
	return sched.GlobalStats().LongRuns
}

// LongRunTotal returns the aggregate excess duration of long runs beyond the
// threshold.
func LongRunTotal() time.Duration {
	return sched.GlobalStats().LongRunTotal
}

// SetLongRunThreshold installs the long-run warning threshold (default 1ms).
// Purely diagnostic; never alters scheduling.
func SetLongRunThreshold(d time.Duration) {
	sched.SetLongRunThreshold(d)
}

// WorkerStackBytes returns the total stack bytes reserved for live worker
// fibers on the calling carrier. Resident usage is typically smaller,
// depending on actual stack consumption.
func WorkerStackBytes() int64 {
	return sched.Current().Scheduler().WorkerStackBytes()
}

// WorkerCount returns the number of live worker fibers on the calling
// carrier.
func WorkerCount() int64 {
	return sched.Current().Scheduler().WorkerCount()
}

// DumpFiberStacks renders every live fiber of the calling carrier to w,
// invoking registered locals callbacks along the way.
func DumpFiberStacks(w io.Writer) {
	sched.Current().Scheduler().DumpStacks(w)
}
