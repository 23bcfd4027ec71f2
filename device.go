package gralloc

import "fmt"

// DeviceGPU0 is the name of the allocation device.
const DeviceGPU0 = "gpu0"

// Device is an allocation session opened with Module.Open. Alloc, Free
// and Dump operate on the shared module state; Close tears down the
// backend for the whole process, since the backend is shared.
type Device struct {
	m *Module
}

// Open opens the allocation device with the given name, constructing
// the backend if needed. Unknown names fail with ErrInvalidArgument.
func (m *Module) Open(name string) (*Device, error) {
	if name != DeviceGPU0 {
		return nil, fmt.Errorf("%w: unknown device %q", ErrInvalidArgument, name)
	}
	if err := m.ensureBackend(); err != nil {
		return nil, err
	}
	return &Device{m: m}, nil
}

// Alloc allocates a buffer and returns its handle together with the
// row stride in pixels. FormatImplementationDefined is rewritten to
// FormatRGBA8888 before sizing; a format with no known bytes-per-pixel
// mapping fails with ErrInvalidArgument before any backend call.
func (d *Device) Alloc(width, height int, format Format, usage Usage) (*Handle, int, error) {
	return d.m.createBuffer(width, height, format, usage)
}

// Free destroys the buffer behind the handle.
func (d *Device) Free(h *Handle) error {
	return d.m.destroyBuffer(h)
}

// Dump writes a diagnostic listing of every tracked buffer into dst,
// truncating once the capacity is reached, and returns the number of
// bytes written. Dump never fails; a too-small destination simply
// yields a shorter listing.
func (d *Device) Dump(dst []byte) int {
	n := copy(dst, "dump all buffer objects info:\n")
	for _, h := range d.m.records.snapshot() {
		if n >= len(dst) {
			break
		}
		line := fmt.Sprintf("bo: %d, handle: %p, width: %d, height: %d, format: %#x, usage: %#x\n",
			uint64(h.id), h, h.width, h.height, uint32(h.format), uint32(h.usage))
		n += copy(dst[n:], line)
	}
	return n
}

// Close releases the allocation backend entirely and discards the
// session. The backend is shared, so this invalidates every handle in
// the process, not just those allocated through this device.
func (d *Device) Close() error {
	d.m.closeBackend()
	return nil
}
