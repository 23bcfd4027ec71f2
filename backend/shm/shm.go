//go:build linux

// Package shm provides a shared-memory allocation backend for Linux.
//
// Each buffer object is backed by an anonymous memfd mapped into the
// process, so buffers carry a real file descriptor and can be exported
// to and imported from other processes. The backend registers itself
// at a higher priority than the heap backend.
package shm

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/gogpu/gralloc"
)

// BackendName is the name of the shared-memory backend.
const BackendName = "shm"

// Priority is the registration priority: above the heap fallback,
// below device-memory backends.
const Priority = 50

func init() {
	gralloc.RegisterBackend(BackendName, Priority, func() (gralloc.Backend, error) {
		return New()
	}, nil)
}

// Backend allocates buffer objects from memfd-backed shared memory.
// It is safe for concurrent use.
type Backend struct {
	mu      sync.Mutex
	control int // backend-level descriptor handed out by Descriptor
	nextID  uint64
	objects map[gralloc.BufferID]*object
}

// New creates a shared-memory backend. The backend holds one control
// memfd whose descriptor identifies the allocator to callers.
func New() (*Backend, error) {
	control, err := unix.MemfdCreate("gralloc-shm", unix.MFD_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("shm: memfd_create: %w", err)
	}
	return &Backend{
		control: control,
		nextID:  1,
		objects: make(map[gralloc.BufferID]*object),
	}, nil
}

// Name returns the backend identifier.
func (b *Backend) Name() string { return BackendName }

// Descriptor returns the backend's control file descriptor.
func (b *Backend) Descriptor() int { return b.control }

// Close releases the control descriptor and drops the object table.
// Objects still referenced by callers keep their mappings until the
// references are released.
func (b *Backend) Close() {
	b.mu.Lock()
	n := len(b.objects)
	b.objects = make(map[gralloc.BufferID]*object)
	control := b.control
	b.control = -1
	b.mu.Unlock()

	if control >= 0 {
		if err := unix.Close(control); err != nil {
			gralloc.Logger().Warn("shm: closing control descriptor", "error", err)
		}
	}
	if n > 0 {
		gralloc.Logger().Warn("shm: backend closed with live buffers", "count", n)
	}
}

// CreateObject allocates a memfd of the layout's size and maps it
// shared, returning the object with one reference held.
func (b *Backend) CreateObject(width, height int, format gralloc.Format, usage gralloc.Usage) (gralloc.Object, error) {
	layout, err := gralloc.LayoutFor(width, height, format)
	if err != nil {
		return nil, err
	}

	fd, err := unix.MemfdCreate("gralloc-bo", unix.MFD_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("shm: memfd_create: %w", err)
	}
	if err := unix.Ftruncate(fd, int64(layout.Size)); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("shm: ftruncate to %d bytes: %w", layout.Size, err)
	}
	data, err := unix.Mmap(fd, 0, layout.Size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("shm: mmap %d bytes: %w", layout.Size, err)
	}

	b.mu.Lock()
	id := gralloc.BufferID(b.nextID)
	b.nextID++
	obj := &object{
		backend: b,
		id:      id,
		fd:      fd,
		layout:  layout,
		data:    data,
		refs:    1,
	}
	b.objects[id] = obj
	b.mu.Unlock()

	return obj, nil
}

// ImportObject resolves a handle to an object tracked by this backend
// and takes an additional reference on it. Cross-process import goes
// through ResolveExternal with the exported descriptor instead.
func (b *Backend) ImportObject(h *gralloc.Handle) (gralloc.Object, error) {
	b.mu.Lock()
	obj, ok := b.objects[h.ID()]
	b.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("shm: unknown buffer object %d", h.ID())
	}
	obj.IncRef()
	return obj, nil
}

// ResolveExternal maps a descriptor exported by another process and
// fills out with the resolved geometry and mapping. The handle supplies
// the geometry; the descriptor supplies the bytes.
func (b *Backend) ResolveExternal(fd int, h *gralloc.Handle, out *gralloc.ExternalBuffer) error {
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return fmt.Errorf("shm: fstat imported descriptor: %w", err)
	}
	size := int(st.Size)
	if size <= 0 {
		return fmt.Errorf("shm: imported descriptor has no backing (size %d)", size)
	}

	data, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return fmt.Errorf("shm: mmap imported descriptor: %w", err)
	}

	*out = gralloc.ExternalBuffer{
		ID:     h.ID(),
		Width:  h.Width(),
		Height: h.Height(),
		Format: h.Format(),
		Pitch:  h.Stride(),
		Size:   size,
		Data:   data,
	}
	return nil
}

// drop removes a fully released object from the table.
func (b *Backend) drop(id gralloc.BufferID) {
	b.mu.Lock()
	delete(b.objects, id)
	b.mu.Unlock()
}

// object is one memfd-backed native buffer object.
type object struct {
	backend *Backend
	id      gralloc.BufferID
	fd      int
	layout  gralloc.Layout
	data    []byte

	mu   sync.Mutex
	refs int
}

// ID returns the object's identity.
func (o *object) ID() gralloc.BufferID { return o.id }

// FD returns the object's exportable file descriptor.
func (o *object) FD() int { return o.fd }

// Stride returns the byte stride of the primary plane.
func (o *object) Stride() int { return o.layout.StrideBytes }

// IncRef takes an additional reference.
func (o *object) IncRef() {
	o.mu.Lock()
	o.refs++
	o.mu.Unlock()
}

// Release drops one reference; at zero the mapping and descriptor are
// reclaimed. Extra releases on a dead object are ignored.
func (o *object) Release() {
	o.mu.Lock()
	o.refs--
	dead := o.refs == 0
	data := o.data
	if dead {
		o.data = nil
	}
	o.mu.Unlock()

	if !dead {
		return
	}
	o.backend.drop(o.id)
	if data != nil {
		if err := unix.Munmap(data); err != nil {
			gralloc.Logger().Warn("shm: munmap buffer object", "bo", o.id, "error", err)
		}
	}
	if err := unix.Close(o.fd); err != nil {
		gralloc.Logger().Warn("shm: closing buffer descriptor", "bo", o.id, "error", err)
	}
}

// Lock returns the shared mapping. The region coordinates are advisory;
// the slice starts at the base of the mapping.
func (o *object) Lock(usage gralloc.Usage, x, y, w, h int) ([]byte, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.data == nil {
		return nil, fmt.Errorf("shm: buffer object %d has been destroyed", o.id)
	}
	return o.data, nil
}

// Unlock is a no-op: the mapping stays in place until release.
func (o *object) Unlock() {}

// PlaneLayout returns the (pitch, offset) pairs computed at creation.
func (o *object) PlaneLayout() (pitches, offsets [4]int) {
	return o.layout.Pitches, o.layout.Offsets
}

var _ gralloc.Backend = (*Backend)(nil)
var _ gralloc.Importer = (*Backend)(nil)
var _ gralloc.Object = (*object)(nil)
