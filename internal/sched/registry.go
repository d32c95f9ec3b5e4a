package sched

import (
	"runtime"
	"sync"
)

// The active-fiber lookup is the Go rendition of a thread-local "current
// fiber" pointer: each fiber is pinned to one goroutine, so mapping goroutine
// IDs to control blocks gives this-fiber operations their implicit context.

var activeByGoroutine sync.Map // goroutine id -> *Fiber

// goroutineID extracts the current goroutine's ID from the stack header
// ("goroutine N [...").
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	const prefix = len("goroutine ")
	var id uint64
	for _, c := range buf[prefix:n] {
		if c < '0' || c > '9' {
			break
		}
		id = id*10 + uint64(c-'0')
	}
	return id
}

func registerCurrent(f *Fiber) {
	activeByGoroutine.Store(goroutineID(), f)
}

func unregisterCurrent() {
	activeByGoroutine.Delete(goroutineID())
}

// Current returns the fiber executing on the calling goroutine. Calling it
// from outside any fiber (including outside Run) is a contract violation and
// panics.
func Current() *Fiber {
	if f, ok := activeByGoroutine.Load(goroutineID()); ok {
		return f.(*Fiber)
	}
	panic("sched: no active fiber on this goroutine (not inside Run)")
}

// InFiber reports whether the calling goroutine hosts a fiber.
func InFiber() bool {
	_, ok := activeByGoroutine.Load(goroutineID())
	return ok
}
