package tendril_test

import (
	"bytes"
	"io"
	"time"
	"unsafe"

	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aretw0/tendril"
)

func TestGoAndJoin(t *testing.T) {
	var order []string
	tendril.Run(func() {
		fb := tendril.Go(func() { order = append(order, "worker") })
		order = append(order, "creator")
		fb.Join()
	})
	require.Equal(t, []string{"creator", "worker"}, order)
}

func TestDispatchLaunchRunsFiberBeforeCreator(t *testing.T) {
	var order []string
	tendril.Run(func() {
		fb := tendril.Go(func() {
			order = append(order, "worker")
		}, tendril.WithLaunch(tendril.LaunchDispatch))
		order = append(order, "creator")
		fb.Join()
	})
	require.Equal(t, []string{"worker", "creator"}, order)
}

func TestPriorityOrderAfterYield(t *testing.T) {
	var order []string
	tendril.Run(func() {
		spawn := func(p tendril.Priority, label string) *tendril.Fiber {
			return tendril.Go(func() { order = append(order, label) },
				tendril.WithName(label), tendril.WithPriority(p))
		}
		low := spawn(tendril.Low, "low")
		high := spawn(tendril.High, "high")
		normal := spawn(tendril.Normal, "normal")

		tendril.Yield()

		low.Join()
		high.Join()
		normal.Join()
	})
	require.Equal(t, []string{"high", "normal", "low"}, order)
}

func TestJoinEmptyHandlePanics(t *testing.T) {
	tendril.Run(func() {
		fb := tendril.Go(func() {})
		fb.Join()
		require.False(t, fb.IsJoinable())
		require.Panics(t, func() { fb.Join() })
		require.Panics(t, func() { fb.Detach() })
	})
}

func TestJoinIfNeededIsIdempotent(t *testing.T) {
	tendril.Run(func() {
		fb := tendril.Go(func() {})
		fb.JoinIfNeeded()
		fb.JoinIfNeeded()
		require.False(t, fb.IsJoinable())
	})
}

func TestDetachReclaimsOnTermination(t *testing.T) {
	tendril.Run(func() {
		require.Zero(t, tendril.WorkerCount())
		fb := tendril.Go(func() { tendril.Sleep(2 * time.Millisecond) },
			tendril.WithStackSize(16*1024))
		require.Equal(t, int64(1), tendril.WorkerCount())
		require.Equal(t, int64(16*1024), tendril.WorkerStackBytes())

		fb.Detach()
		require.False(t, fb.IsJoinable())
		for tendril.WorkerCount() > 0 {
			tendril.Sleep(time.Millisecond)
		}
		require.Zero(t, tendril.WorkerStackBytes())
	})
}

func TestHandleIdentityAndLocality(t *testing.T) {
	tendril.Run(func() {
		fb := tendril.Go(func() { tendril.Sleep(5 * time.Millisecond) })
		require.NotZero(t, fb.ID())
		require.True(t, fb.IsJoinable())
		require.True(t, fb.IsLocal())
		require.False(t, fb.IsActive())
		fb.Join()
		require.Zero(t, fb.ID())
	})
}

func TestAtomicSectionNestsAndBlocksJoin(t *testing.T) {
	tendril.Run(func() {
		fb := tendril.Go(func() {})

		outer := tendril.BeginAtomic()
		inner := tendril.BeginAtomic()

		require.Panics(t, func() { fb.Join() })

		// Voluntary suspension points remain legal inside a section.
		tendril.Yield()
		tendril.Sleep(time.Millisecond)

		inner.End()
		require.Panics(t, func() { fb.Join() })
		outer.End()

		fb.Join()
	})
}

func TestAtomicSectionEndTwicePanics(t *testing.T) {
	tendril.Run(func() {
		a := tendril.BeginAtomic()
		a.End()
		require.Panics(t, func() { a.End() })
	})
}

func TestSleepIsAtLeastDuration(t *testing.T) {
	const d = 10 * time.Millisecond
	tendril.Run(func() {
		fb := tendril.Go(func() {
			start := time.Now()
			tendril.Sleep(d)
			require.GreaterOrEqual(t, time.Since(start), d)
		})
		fb.Join()
	})
}

func TestSleepUntilHonorsDeadline(t *testing.T) {
	tendril.Run(func() {
		deadline := time.Now().Add(5 * time.Millisecond)
		tendril.SleepUntil(deadline)
		require.False(t, time.Now().Before(deadline))
	})
}

func TestSetNameAndRunningTime(t *testing.T) {
	tendril.Run(func() {
		fb := tendril.Go(func() {
			tendril.SetName("cruncher")
			require.Equal(t, "cruncher", tendril.Name())
			for start := time.Now(); time.Since(start) < 2*time.Millisecond; {
			}
			require.GreaterOrEqual(t, tendril.RunningTime(), 2*time.Millisecond)
		}, tendril.WithName("worker"))
		fb.Join()
	})
}

func TestPreemptCountGrowsWithYields(t *testing.T) {
	tendril.Run(func() {
		a := tendril.Go(func() {
			before := tendril.PreemptCount()
			tendril.Yield()
			tendril.Yield()
			require.Equal(t, before+2, tendril.PreemptCount())
		})
		b := tendril.Go(func() {
			tendril.Yield()
			tendril.Yield()
		})
		a.Join()
		b.Join()
	})
}

func TestSwitchEpochAdvancesAcrossSwitches(t *testing.T) {
	tendril.Run(func() {
		before := tendril.SwitchEpoch()
		fb := tendril.Go(func() { tendril.Yield() })
		fb.Join()
		require.Greater(t, tendril.SwitchEpoch(), before)
	})
}

func TestRuntimeStatsAggregate(t *testing.T) {
	before := tendril.RuntimeStats()
	tendril.Run(func() {
		workers := make([]*tendril.Fiber, 0, 4)
		for i := 0; i < 4; i++ {
			workers = append(workers, tendril.Go(func() {
				for j := 0; j < 10; j++ {
					tendril.Yield()
				}
			}))
		}
		for _, fb := range workers {
			fb.Join()
		}
	})
	after := tendril.RuntimeStats()
	require.Greater(t, after.Switches, before.Switches)
	require.Equal(t, before.LiveFibers, after.LiveFibers)
	require.Equal(t, before.StackBytes, after.StackBytes)
}

func TestLongRunDetection(t *testing.T) {
	tendril.SetLongRunThreshold(time.Millisecond)
	before := tendril.LongRunCount()
	tendril.Run(func() {
		fb := tendril.Go(func() {
			for start := time.Now(); time.Since(start) < 5*time.Millisecond; {
			}
		})
		fb.Join()
	})
	require.Greater(t, tendril.LongRunCount(), before)
	require.Positive(t, tendril.LongRunTotal())
}

//go:noinline
func burn(depth int) int {
	var pad [1024]byte
	pad[0] = byte(depth)
	if depth == 0 {
		return int(pad[0])
	}
	return burn(depth-1) + int(pad[0])
}

//go:noinline
func probe(depth int, margins *[]int) {
	var pad [512]byte
	pad[0] = byte(depth)
	*margins = append(*margins, tendril.StackMargin(uintptr(unsafe.Pointer(&pad[0]))))
	if depth > 0 {
		probe(depth-1, margins)
	}
	_ = pad[0]
}

func TestStackMarginShrinksWithCallDepth(t *testing.T) {
	const stackSize = 32 * 1024
	var ok bool
	tendril.Run(func() {
		fb := tendril.Go(func() {
			// Grow the goroutine stack up front so the probe chain below runs
			// without a relocation in the middle.
			burn(32)
			for attempt := 0; attempt < 5 && !ok; attempt++ {
				var margins []int
				probe(4, &margins)
				ok = marginsDescend(margins, stackSize)
			}
		}, tendril.WithStackSize(stackSize))
		fb.Join()
	})
	require.True(t, ok, "stack margins did not descend with call depth")
}

func marginsDescend(margins []int, size int) bool {
	for i, m := range margins {
		if m < 0 || m > size {
			return false
		}
		if i > 0 && m >= margins[i-1] {
			return false
		}
	}
	return len(margins) > 1
}

//go:noinline
func overflow(depth int) int {
	var pad [1024]byte
	pad[0] = byte(depth)
	tendril.CheckStackMargin()
	if depth == 0 {
		return int(pad[0])
	}
	return overflow(depth-1) + int(pad[0])
}

func TestCheckStackMarginOnIdleFiberIsNoOp(t *testing.T) {
	tendril.Run(func() {
		// The idle fiber carries no stack budget, so there is no margin to
		// exhaust and nothing to trip.
		require.NotPanics(t, func() { tendril.CheckStackMargin() })
		require.Zero(t, tendril.StackMargin(0))
	})
}

func TestCheckStackMarginPanicsNearExhaustion(t *testing.T) {
	var tripped bool
	tendril.Run(func() {
		fb := tendril.Go(func() {
			defer func() {
				tripped = recover() != nil
			}()
			burn(32)
			tendril.CheckStackMargin()
			overflow(10)
		}, tendril.WithStackSize(8*1024))
		fb.Join()
	})
	require.True(t, tripped, "expected the margin check to trip on an 8 KiB budget")
}

func TestStackDumpIncludesRegisteredLocals(t *testing.T) {
	var out string
	tendril.Run(func() {
		sleeper := tendril.Go(func() {
			guard := tendril.OnStackDump(func(w io.Writer) {
				io.WriteString(w, "  locals: counter=7\n")
			})
			defer guard.Close()
			tendril.Sleep(20 * time.Millisecond)
		}, tendril.WithName("sleeper"))

		tendril.Yield() // let the sleeper park with its callback installed

		var buf bytes.Buffer
		tendril.DumpFiberStacks(&buf)
		out = buf.String()

		sleeper.Join()
	})
	require.Contains(t, out, "(main)")
	require.Contains(t, out, "(sleeper)")
	require.Contains(t, out, "locals: counter=7")
}

func TestStackDumpGuardCloseIsIdempotent(t *testing.T) {
	tendril.Run(func() {
		guard := tendril.OnStackDump(func(io.Writer) {})
		guard.Close()
		guard.Close()

		var buf bytes.Buffer
		tendril.DumpFiberStacks(&buf)
		require.Contains(t, buf.String(), "(main)")
	})
}

func TestYieldOutsideRunPanics(t *testing.T) {
	require.Panics(t, func() { tendril.Yield() })
	require.Panics(t, func() { tendril.Sleep(time.Millisecond) })
	require.Panics(t, func() { tendril.Name() })
}
