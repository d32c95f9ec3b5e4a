package stack

import (
	"fmt"
	"sync"
)

// DefaultSize is the stack size used when a fiber does not request one.
const DefaultSize = 64 * 1024

// Resource is the allocation backend for fiber stacks.
// Implementations must be safe for concurrent use: regions are released by
// whichever carrier drops the last reference to a fiber.
type Resource interface {
	// Allocate returns a contiguous region of exactly size bytes.
	Allocate(size int) ([]byte, error)

	// Free returns a region previously obtained from Allocate.
	Free(buf []byte)
}

// heapResource is the fallback backend, backed by the Go heap.
type heapResource struct{}

func (heapResource) Allocate(size int) ([]byte, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid stack size %d", size)
	}
	return make([]byte, size), nil
}

func (heapResource) Free([]byte) {}

// Heap is the default Resource when no custom one is installed.
var Heap Resource = heapResource{}

var (
	mu          sync.Mutex
	installed   bool
	resource    Resource = Heap
	defaultSize          = DefaultSize
)

// SetDefault installs the process-wide stack resource and default region size.
// It may be called at most once, before any fiber with a customized stack is
// created; a second call panics. A size of 0 keeps DefaultSize.
func SetDefault(r Resource, size int) {
	mu.Lock()
	defer mu.Unlock()
	if installed {
		panic("stack: default resource already installed")
	}
	if r == nil {
		panic("stack: nil resource")
	}
	installed = true
	resource = r
	if size > 0 {
		defaultSize = size
	}
}

// Default returns the installed resource (or Heap) and the default region size.
func Default() (Resource, int) {
	mu.Lock()
	defer mu.Unlock()
	return resource, defaultSize
}

// Region is one fiber stack. It is exclusively owned by the fiber control
// block that requested it and is released exactly once, after the fiber has
// terminated and its last reference is gone.
type Region struct {
	buf      []byte
	res      Resource
	released bool
}

// Allocate acquires a region of the given size from the installed resource,
// falling back to the heap when none was installed. A size of 0 requests the
// default size.
func Allocate(size int) (*Region, error) {
	res, def := Default()
	if size <= 0 {
		size = def
	}
	buf, err := res.Allocate(size)
	if err != nil {
		return nil, fmt.Errorf("stack allocation of %d bytes failed: %w", size, err)
	}
	return &Region{buf: buf, res: res}, nil
}

// Size reports the region size in bytes.
func (r *Region) Size() int {
	return len(r.buf)
}

// Release returns the region to its resource. Releasing twice panics.
func (r *Region) Release() {
	if r.released {
		panic("stack: region released twice")
	}
	r.released = true
	r.res.Free(r.buf)
	r.buf = nil
}

// resetDefaultForTest restores the uninstalled state. Test hook only.
func resetDefaultForTest() {
	mu.Lock()
	defer mu.Unlock()
	installed = false
	resource = Heap
	defaultSize = DefaultSize
}
