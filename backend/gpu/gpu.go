// Package gpu provides a GPU-memory allocation backend using gogpu/wgpu.
//
// Buffer objects are wgpu HAL buffers paired with a CPU shadow copy.
// Lock hands out the shadow; Unlock flushes the shadow to GPU memory
// through the device queue. The backend registers itself at the highest
// priority but reports unavailable when no Vulkan HAL backend is
// present, so selection falls through to shm or mem on machines
// without a GPU.
package gpu

import (
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/gralloc"
)

// BackendName is the name of the GPU-memory backend.
const BackendName = "wgpu"

// Priority is the registration priority. Device memory is preferred
// when present.
const Priority = 100

func init() {
	gralloc.RegisterBackend(BackendName, Priority, func() (gralloc.Backend, error) {
		return New()
	}, Available)
}

// Available reports whether a Vulkan HAL backend is compiled in.
// Adapter enumeration can still fail later; backend selection treats a
// failing factory as unavailable and moves on.
func Available() bool {
	_, ok := hal.GetBackend(gputypes.BackendVulkan)
	return ok
}

// Backend allocates buffer objects from GPU memory.
// It is safe for concurrent use.
type Backend struct {
	mu       sync.Mutex
	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
	nextID   uint64
	objects  map[gralloc.BufferID]*object
}

// New creates a GPU-memory backend by opening a Vulkan device.
// Prefers a discrete or integrated GPU when several adapters exist.
func New() (*Backend, error) {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, fmt.Errorf("wgpu: vulkan backend not available")
	}

	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create instance: %w", err)
	}

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, fmt.Errorf("wgpu: no GPU adapters found")
	}

	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("wgpu: open device: %w", err)
	}

	gralloc.Logger().Info("wgpu: GPU backend initialized", "adapter", selected.Info.Name)

	return &Backend{
		instance: instance,
		device:   openDev.Device,
		queue:    openDev.Queue,
		nextID:   1,
		objects:  make(map[gralloc.BufferID]*object),
	}, nil
}

// Name returns the backend identifier.
func (b *Backend) Name() string { return BackendName }

// Descriptor returns -1: GPU heap allocations carry no exportable
// file descriptor in this backend.
func (b *Backend) Descriptor() int { return -1 }

// Close destroys all remaining GPU buffers and releases the device.
func (b *Backend) Close() {
	b.mu.Lock()
	objects := b.objects
	b.objects = make(map[gralloc.BufferID]*object)
	device := b.device
	instance := b.instance
	b.device = nil
	b.instance = nil
	b.mu.Unlock()

	if len(objects) > 0 {
		gralloc.Logger().Warn("wgpu: backend closed with live buffers", "count", len(objects))
	}
	for _, obj := range objects {
		if obj.halBuffer != nil && device != nil {
			device.DestroyBuffer(obj.halBuffer)
			obj.halBuffer = nil
		}
	}
	if device != nil {
		device.Destroy()
	}
	if instance != nil {
		instance.Destroy()
	}
	gralloc.Logger().Info("wgpu: GPU backend closed")
}

// CreateObject allocates a GPU buffer of the layout's size plus a CPU
// shadow for the lock protocol, returning the object with one
// reference held.
func (b *Backend) CreateObject(width, height int, format gralloc.Format, usage gralloc.Usage) (gralloc.Object, error) {
	layout, err := gralloc.LayoutFor(width, height, format)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	device := b.device
	id := gralloc.BufferID(b.nextID)
	b.nextID++
	b.mu.Unlock()
	if device == nil {
		return nil, fmt.Errorf("wgpu: backend is closed")
	}

	desc := &hal.BufferDescriptor{
		Label: fmt.Sprintf("gralloc-bo-%d", id),
		Size:  uint64(layout.Size),
		Usage: gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst,
	}
	halBuffer, err := device.CreateBuffer(desc)
	if err != nil {
		return nil, fmt.Errorf("wgpu: create buffer: %w", err)
	}

	obj := &object{
		backend:   b,
		id:        id,
		layout:    layout,
		halBuffer: halBuffer,
		shadow:    make([]byte, layout.Size),
		refs:      1,
	}

	b.mu.Lock()
	b.objects[id] = obj
	b.mu.Unlock()

	return obj, nil
}

// ImportObject resolves a handle to an object tracked by this backend
// and takes an additional reference on it.
func (b *Backend) ImportObject(h *gralloc.Handle) (gralloc.Object, error) {
	b.mu.Lock()
	obj, ok := b.objects[h.ID()]
	b.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("wgpu: unknown buffer object %d", h.ID())
	}
	obj.IncRef()
	return obj, nil
}

// drop removes a fully released object from the table and destroys its
// GPU buffer.
func (b *Backend) drop(o *object) {
	b.mu.Lock()
	delete(b.objects, o.id)
	device := b.device
	b.mu.Unlock()

	if o.halBuffer != nil && device != nil {
		device.DestroyBuffer(o.halBuffer)
		o.halBuffer = nil
	}
}

// object is one GPU-resident native buffer object with a CPU shadow.
type object struct {
	backend   *Backend
	id        gralloc.BufferID
	layout    gralloc.Layout
	halBuffer hal.Buffer
	shadow    []byte

	mu     sync.Mutex
	refs   int
	locked bool
}

// ID returns the object's identity.
func (o *object) ID() gralloc.BufferID { return o.id }

// Stride returns the byte stride of the primary plane.
func (o *object) Stride() int { return o.layout.StrideBytes }

// IncRef takes an additional reference.
func (o *object) IncRef() {
	o.mu.Lock()
	o.refs++
	o.mu.Unlock()
}

// Release drops one reference; at zero the GPU buffer is destroyed.
// Extra releases on a dead object are ignored.
func (o *object) Release() {
	o.mu.Lock()
	o.refs--
	dead := o.refs == 0
	o.mu.Unlock()

	if !dead {
		return
	}
	o.backend.drop(o)
	o.shadow = nil
}

// Lock returns the CPU shadow of the buffer. The region coordinates
// are advisory; the slice starts at the base of the allocation.
func (o *object) Lock(usage gralloc.Usage, x, y, w, h int) ([]byte, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.shadow == nil {
		return nil, fmt.Errorf("wgpu: buffer object %d has been destroyed", o.id)
	}
	o.locked = true
	return o.shadow, nil
}

// Unlock flushes the shadow to GPU memory through the device queue.
func (o *object) Unlock() {
	o.mu.Lock()
	locked := o.locked
	o.locked = false
	shadow := o.shadow
	halBuffer := o.halBuffer
	o.mu.Unlock()

	if !locked || shadow == nil || halBuffer == nil {
		return
	}

	o.backend.mu.Lock()
	queue := o.backend.queue
	o.backend.mu.Unlock()
	if queue != nil {
		queue.WriteBuffer(halBuffer, 0, shadow)
	}
}

// PlaneLayout returns the (pitch, offset) pairs computed at creation.
func (o *object) PlaneLayout() (pitches, offsets [4]int) {
	return o.layout.Pitches, o.layout.Offsets
}

var _ gralloc.Backend = (*Backend)(nil)
var _ gralloc.Object = (*object)(nil)
