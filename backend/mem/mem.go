// Package mem provides a pure Go system-memory allocation backend.
//
// Buffers live on the Go heap; locking hands out the backing slice
// directly, so there is no mapping cost. The backend is always
// available and registers itself at low priority as the fallback when
// no device-backed backend can be constructed.
package mem

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gralloc"
)

// BackendName is the name of the system-memory backend.
const BackendName = "mem"

// Priority is the registration priority. System memory is the fallback,
// so it sits below device-backed backends.
const Priority = 10

func init() {
	gralloc.RegisterBackend(BackendName, Priority, func() (gralloc.Backend, error) {
		return New(), nil
	}, nil)
}

// Backend allocates buffer objects from the Go heap.
// It is safe for concurrent use.
type Backend struct {
	mu      sync.Mutex
	nextID  uint64
	objects map[gralloc.BufferID]*object
}

// New creates a system-memory backend.
func New() *Backend {
	return &Backend{
		nextID:  1,
		objects: make(map[gralloc.BufferID]*object),
	}
}

// Name returns the backend identifier.
func (b *Backend) Name() string { return BackendName }

// Descriptor returns -1: system memory has no device descriptor.
func (b *Backend) Descriptor() int { return -1 }

// Close drops the backend's object table. Objects still referenced by
// callers keep their memory until the references are released.
func (b *Backend) Close() {
	b.mu.Lock()
	n := len(b.objects)
	b.objects = make(map[gralloc.BufferID]*object)
	b.mu.Unlock()

	if n > 0 {
		gralloc.Logger().Warn("mem: backend closed with live buffers", "count", n)
	}
}

// CreateObject allocates a buffer object with the layout implied by the
// format, returning it with one reference held.
func (b *Backend) CreateObject(width, height int, format gralloc.Format, usage gralloc.Usage) (gralloc.Object, error) {
	layout, err := gralloc.LayoutFor(width, height, format)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	id := gralloc.BufferID(b.nextID)
	b.nextID++
	obj := &object{
		backend: b,
		id:      id,
		layout:  layout,
		data:    make([]byte, layout.Size),
	}
	obj.refs.Store(1)
	b.objects[id] = obj
	b.mu.Unlock()

	return obj, nil
}

// ImportObject resolves a handle to an object already tracked by this
// backend and takes an additional reference on it. Handles from other
// processes cannot be imported into a heap-backed allocator.
func (b *Backend) ImportObject(h *gralloc.Handle) (gralloc.Object, error) {
	b.mu.Lock()
	obj, ok := b.objects[h.ID()]
	b.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("mem: unknown buffer object %d", h.ID())
	}
	obj.IncRef()
	return obj, nil
}

// drop removes a fully released object from the table.
func (b *Backend) drop(id gralloc.BufferID) {
	b.mu.Lock()
	delete(b.objects, id)
	b.mu.Unlock()
}

// object is one heap-backed native buffer object.
type object struct {
	backend *Backend
	id      gralloc.BufferID
	layout  gralloc.Layout
	data    []byte
	refs    atomic.Int32
}

// ID returns the object's identity.
func (o *object) ID() gralloc.BufferID { return o.id }

// Stride returns the byte stride of the primary plane.
func (o *object) Stride() int { return o.layout.StrideBytes }

// IncRef takes an additional reference.
func (o *object) IncRef() { o.refs.Add(1) }

// Release drops one reference, freeing the object at zero. Extra
// releases on a dead object are ignored.
func (o *object) Release() {
	n := o.refs.Add(-1)
	if n > 0 {
		return
	}
	if n < 0 {
		gralloc.Logger().Warn("mem: release of dead buffer object", "bo", o.id)
		return
	}
	o.backend.drop(o.id)
	o.data = nil
}

// Lock returns the backing memory. The region coordinates are advisory;
// the slice starts at the base of the allocation, like a whole-object
// mapping.
func (o *object) Lock(usage gralloc.Usage, x, y, w, h int) ([]byte, error) {
	if o.data == nil {
		return nil, fmt.Errorf("mem: buffer object %d has been destroyed", o.id)
	}
	return o.data, nil
}

// Unlock is a no-op: heap memory stays addressable.
func (o *object) Unlock() {}

// PlaneLayout returns the (pitch, offset) pairs computed at creation.
func (o *object) PlaneLayout() (pitches, offsets [4]int) {
	return o.layout.Pitches, o.layout.Offsets
}

var _ gralloc.Backend = (*Backend)(nil)
var _ gralloc.Object = (*object)(nil)
