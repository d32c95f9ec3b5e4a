/*
Package tendril is a cooperative fiber runtime: it multiplexes many logical
threads of control ("fibers") over a small number of carrier execution
domains, each fiber with its own stack budget, scheduling priority, and
lifecycle, switching only at explicit suspension points instead of being
time-sliced by the OS.

# Concept

A carrier is started with Run; the calling goroutine becomes the carrier's
idle fiber. Fibers created on a carrier are permanently bound to it and run
strictly one at a time, so state shared between fibers of one carrier needs no
locking. True parallelism exists only across distinct carriers.

Suspension points are Yield, Sleep, SleepUntil, and Join on a fiber that has
not yet terminated. Ordinary function calls never suspend. Scheduling within a
priority class is FIFO; higher classes are preferred with no aging, so
starvation of lower classes is possible.

# Usage

	package main

	import (
		"fmt"
		"time"

		"github.com/aretw0/tendril"
	)

	func main() {
		tendril.Run(func() {
			fb := tendril.Go(func() {
				for i := 0; i < 3; i++ {
					fmt.Println("tick", i)
					tendril.Sleep(10 * time.Millisecond)
				}
			}, tendril.WithName("ticker"))

			fb.Join()
		})
	}

Every fiber handle must be joined or detached before it is dropped; leaking a
still-joinable handle is a programming error and fails fast.

# Key Features

  - Launch policies: enqueue the new fiber (post, the default) or transfer
    control to it synchronously (dispatch).
  - Priority-aware run queue and deadline-ordered sleep queue per carrier.
  - Pluggable stack allocation (pkg/stack) with per-carrier accounting and a
    last-resort stack-margin guard.
  - Runtime diagnostics: switch epochs, switch delay, long-run detection,
    per-carrier fiber dumps, and a Prometheus collector (pkg/observability).
*/
package tendril
