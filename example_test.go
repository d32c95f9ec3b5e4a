package tendril_test

import (
	"fmt"

	"github.com/aretw0/tendril"
)

func ExampleRun() {
	tendril.Run(func() {
		fb := tendril.Go(func() {
			fmt.Println("fiber runs")
		})
		fmt.Println("creator continues")
		fb.Join()
	})
	// Output:
	// creator continues
	// fiber runs
}

func ExampleGo() {
	tendril.Run(func() {
		fb := tendril.Go(func() {
			fmt.Println("dispatched fiber runs first")
		}, tendril.WithLaunch(tendril.LaunchDispatch))
		fmt.Println("creator resumes")
		fb.Join()
	})
	// Output:
	// dispatched fiber runs first
	// creator resumes
}

func ExampleWithPriority() {
	tendril.Run(func() {
		low := tendril.Go(func() { fmt.Println("low") }, tendril.WithPriority(tendril.Low))
		high := tendril.Go(func() { fmt.Println("high") }, tendril.WithPriority(tendril.High))

		tendril.Yield()

		low.Join()
		high.Join()
	})
	// Output:
	// high
	// low
}

func ExampleBeginAtomic() {
	tendril.Run(func() {
		section := tendril.BeginAtomic()
		fmt.Println("no involuntary suspension here")
		section.End()
	})
	// Output:
	// no involuntary suspension here
}
