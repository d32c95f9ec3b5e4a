package tendril

import (
	"log/slog"
	"runtime"

	"github.com/aretw0/tendril/internal/sched"
)

// Priority orders a carrier's run queue. It influences which runnable fiber
// goes next; it never preempts a running fiber.
type Priority = sched.Priority

const (
	Low    = sched.Low
	Normal = sched.Normal
	High   = sched.High
)

// Launch selects how a newly created fiber is started.
type Launch = sched.Launch

const (
	// LaunchPost enqueues the new fiber; the creator keeps running and the
	// fiber runs at the scheduler's later discretion.
	LaunchPost = sched.Post
	// LaunchDispatch suspends the creator immediately and transfers control
	// to the new fiber; the creator resumes when the fiber first suspends or
	// terminates.
	LaunchDispatch = sched.Dispatch
)

// ID is a fiber's stable identity, unique for the process lifetime. The zero
// ID is the null identity of an empty handle.
type ID = sched.ID

// CarrierOption configures a carrier started by Run.
type CarrierOption = sched.RunOption

// WithLogger sets the structured logger a carrier uses for fatal diagnostics.
func WithLogger(l *slog.Logger) CarrierOption {
	return sched.WithLogger(l)
}

// Run turns the calling goroutine into a carrier: root executes as the
// carrier's idle fiber, and Run returns once root has returned and every
// fiber created on this carrier has terminated. Fiber operations outside Run
// panic. Concurrent Run calls on different goroutines form independent
// carriers.
func Run(root func(), opts ...CarrierOption) {
	sched.Run(root, opts...)
}

// Option configures a new fiber.
type Option func(*sched.Options)

// WithName labels the fiber for diagnostics.
func WithName(name string) Option {
	return func(o *sched.Options) { o.Name = name }
}

// WithPriority sets the fiber's scheduling class (default Normal).
func WithPriority(p Priority) Option {
	return func(o *sched.Options) { o.Priority = p }
}

// WithStackSize sets the fiber's stack budget in bytes (default 64 KiB, or
// the size installed via stack.SetDefault).
func WithStackSize(bytes int) Option {
	return func(o *sched.Options) { o.StackSize = bytes }
}

// WithLaunch sets the launch policy (default LaunchPost).
func WithLaunch(l Launch) Option {
	return func(o *sched.Options) { o.Launch = l }
}

// Fiber is the owning handle of one fiber. A handle is singular: it must not
// be copied, and exactly one of Join or Detach must be called before the
// handle is dropped. Dropping a still-joinable handle fails fast (a finalizer
// panics), since silently leaking a running fiber invites use-after-scope
// bugs.
type Fiber struct {
	f *sched.Fiber
}

// Go creates a fiber on the calling carrier and starts it according to the
// launch policy. Must be called from within Run. Stack allocation failure is
// fatal: fiber stacks are not a recoverable resource.
func Go(fn func(), opts ...Option) *Fiber {
	o := sched.Options{Priority: sched.Normal}
	for _, opt := range opts {
		opt(&o)
	}
	fb := &Fiber{f: sched.Spawn(fn, o)}
	runtime.SetFinalizer(fb, leakedHandle)
	return fb
}

func leakedHandle(fb *Fiber) {
	panic("tendril: fiber handle dropped while still joinable; call Join or Detach")
}

// Join blocks the calling fiber until this fiber terminates, then releases
// the handle. Returns immediately if the fiber already terminated. Calling
// Join on an empty handle, from another carrier, or inside an atomic section
// panics.
func (fb *Fiber) Join() {
	if fb.f == nil {
		panic("tendril: Join on an empty fiber handle")
	}
	sched.Join(fb.f)
	fb.release()
}

// JoinIfNeeded joins the fiber if the handle still owns one; otherwise it is
// a no-op.
func (fb *Fiber) JoinIfNeeded() {
	if fb.f != nil {
		fb.Join()
	}
}

// Detach releases the handle without waiting: the fiber's remaining lifecycle
// is governed solely by its scheduler and its resources are reclaimed
// automatically on termination.
func (fb *Fiber) Detach() {
	if fb.f == nil {
		panic("tendril: Detach on an empty fiber handle")
	}
	fb.release()
}

func (fb *Fiber) release() {
	runtime.SetFinalizer(fb, nil)
	fb.f.Release()
	fb.f = nil
}

// IsJoinable reports whether the handle still owns a fiber, regardless of the
// fiber's run state.
func (fb *Fiber) IsJoinable() bool {
	return fb.f != nil
}

// IsLocal reports whether the fiber belongs to the calling carrier. Used to
// guard operations that are only valid for same-carrier fibers.
func (fb *Fiber) IsLocal() bool {
	return fb.f.Scheduler() == sched.Current().Scheduler()
}

// IsActive reports whether this fiber is the one currently running on its
// carrier.
func (fb *Fiber) IsActive() bool {
	return fb.f != nil && fb.f.IsActive()
}

// ID returns the fiber's stable identity, or the zero ID for an empty handle.
func (fb *Fiber) ID() ID {
	if fb.f == nil {
		return 0
	}
	return fb.f.ID()
}
