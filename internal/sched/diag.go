package sched

import (
	"sync/atomic"
	"time"
)

// Process-wide diagnostic aggregates, summed over all carriers. These are the
// only scheduler counters mutated from switch paths on multiple carriers, so
// they are atomics.
var (
	switchTotal    atomic.Uint64
	switchDelay    atomic.Int64 // nanoseconds
	longRunCount   atomic.Uint64
	longRunTotal   atomic.Int64 // nanoseconds of excess beyond the threshold
	liveFibers     atomic.Int64
	liveStackBytes atomic.Int64

	longRunThresholdNanos atomic.Int64
)

func init() {
	longRunThresholdNanos.Store(int64(time.Millisecond))
}

// SetLongRunThreshold installs the warning threshold for continuously running
// fibers. Purely diagnostic; never alters scheduling. Non-positive values are
// ignored.
func SetLongRunThreshold(d time.Duration) {
	if d > 0 {
		longRunThresholdNanos.Store(int64(d))
	}
}

// LongRunThreshold returns the current long-run warning threshold.
func LongRunThreshold() time.Duration {
	return time.Duration(longRunThresholdNanos.Load())
}

// Stats is a snapshot of the process-wide runtime aggregates.
type Stats struct {
	Switches     uint64
	SwitchDelay  time.Duration
	LongRuns     uint64
	LongRunTotal time.Duration
	LiveFibers   int64
	StackBytes   int64
}

// GlobalStats snapshots the process-wide aggregates across all carriers.
func GlobalStats() Stats {
	return Stats{
		Switches:     switchTotal.Load(),
		SwitchDelay:  time.Duration(switchDelay.Load()),
		LongRuns:     longRunCount.Load(),
		LongRunTotal: time.Duration(longRunTotal.Load()),
		LiveFibers:   liveFibers.Load(),
		StackBytes:   liveStackBytes.Load(),
	}
}
