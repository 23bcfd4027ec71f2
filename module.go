package gralloc

import (
	"fmt"
	"sync"
)

// Module is the buffer-object lifecycle and locking layer. It owns the
// lazily constructed allocation backend and the process-wide registry
// of tracked buffers.
//
// All methods are synchronous and block on the caller's goroutine.
// Backend construction is guarded so concurrent first calls construct
// exactly one backend; the registry serializes its own mutations.
// Lock/Unlock pairing is the caller's responsibility.
type Module struct {
	// mu guards backend construction and teardown.
	mu      sync.Mutex
	backend Backend

	// backendName selects a registered factory by name; empty means
	// highest-priority available.
	backendName string

	records *records
}

// Option configures a Module during creation.
type Option func(*Module)

// WithBackend injects an externally constructed backend, bypassing the
// factory registry. This is the preferred way to wire a backend in
// tests.
func WithBackend(b Backend) Option {
	return func(m *Module) { m.backend = b }
}

// WithBackendName selects a registered backend by name instead of the
// highest-priority available one. Construction still happens lazily on
// first use.
func WithBackendName(name string) Option {
	return func(m *Module) { m.backendName = name }
}

// New creates a Module. No backend is constructed until the first
// operation that needs one.
func New(opts ...Option) *Module {
	m := &Module{records: newRecords()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ensureBackend constructs the backend if none exists yet. It is
// idempotent and safe to call concurrently; exactly one construction
// occurs even under concurrent first calls.
func (m *Module) ensureBackend() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.backend != nil {
		return nil
	}

	var (
		b   Backend
		err error
	)
	if m.backendName != "" {
		b, err = newBackendByName(m.backendName)
	} else {
		b, err = newDefaultBackend()
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	m.backend = b
	Logger().Info("gralloc: backend initialized", "backend", b.Name())
	return nil
}

// currentBackend returns the active backend, or nil if none has been
// constructed (or it has been closed).
func (m *Module) currentBackend() Backend {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.backend
}

// closeBackend tears down the active backend. This is a process-wide
// effect: every handle created through the backend becomes unusable.
func (m *Module) closeBackend() {
	m.mu.Lock()
	b := m.backend
	m.backend = nil
	m.mu.Unlock()

	if b != nil {
		b.Close()
		Logger().Info("gralloc: backend closed", "backend", b.Name())
	}
}

// resolve maps a handle back to its native object. Foreign handles
// that were never registered locally, nil handles and handles whose
// object was detached all fail with ErrInvalidArgument.
func (m *Module) resolve(h *Handle) (Object, error) {
	if h == nil || h.obj == nil {
		return nil, fmt.Errorf("%w: handle does not resolve to a buffer object", ErrInvalidArgument)
	}
	return h.obj, nil
}

// createBuffer allocates a buffer and records it in the registry.
// It returns the new handle and the stride in pixels.
func (m *Module) createBuffer(width, height int, format Format, usage Usage) (*Handle, int, error) {
	if format == FormatImplementationDefined {
		Logger().Debug("gralloc: implementation-defined format rewritten to RGBA8888",
			"width", width, "height", height, "usage", usage)
		format = FormatRGBA8888
	}

	bpp := format.BytesPerPixel()
	if bpp == 0 {
		return nil, 0, fmt.Errorf("%w: no bytes-per-pixel mapping for format %v", ErrInvalidArgument, format)
	}

	if err := m.ensureBackend(); err != nil {
		return nil, 0, err
	}
	b := m.currentBackend()

	obj, err := b.CreateObject(width, height, format, usage)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrOutOfMemory, err)
	}

	h := &Handle{
		id:     obj.ID(),
		width:  width,
		height: height,
		format: format,
		usage:  usage,
		stride: obj.Stride(),
		obj:    obj,
	}
	m.records.insert(obj.ID(), h)

	Logger().Debug("gralloc: buffer created",
		"bo", obj.ID(), "width", width, "height", height, "format", format, "usage", usage)

	return h, obj.Stride() / bpp, nil
}

// destroyBuffer releases one reference on the buffer's native object
// and removes the registry entry. Destroying a handle that is not
// tracked (double destroy, foreign handle) fails with
// ErrInvalidArgument and leaves the registry unchanged.
func (m *Module) destroyBuffer(h *Handle) error {
	obj, err := m.resolve(h)
	if err != nil {
		return err
	}

	if !m.records.remove(obj.ID()) {
		return fmt.Errorf("%w: buffer %d is not tracked", ErrInvalidArgument, obj.ID())
	}
	obj.Release()
	h.obj = nil

	Logger().Debug("gralloc: buffer destroyed", "bo", obj.ID())
	return nil
}

// RegisterBuffer brings a handle created in another process into local
// validity. The backend is constructed first if needed. On success the
// handle resolves locally and holds one reference on the object.
func (m *Module) RegisterBuffer(h *Handle) error {
	if err := m.ensureBackend(); err != nil {
		return err
	}
	if h == nil {
		return fmt.Errorf("%w: nil handle", ErrInvalidArgument)
	}

	obj, err := m.currentBackend().ImportObject(h)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	h.obj = obj
	return nil
}

// UnregisterBuffer drops the local reference taken by RegisterBuffer.
// The handle no longer resolves locally afterwards.
func (m *Module) UnregisterBuffer(h *Handle) error {
	obj, err := m.resolve(h)
	if err != nil {
		return err
	}
	obj.Release()
	h.obj = nil
	return nil
}

// Lock requests a CPU-visible mapping of the buffer region. The region
// coordinates are forwarded to the backend unvalidated; this layer is
// deliberately format-agnostic. The returned slice is valid until the
// matching Unlock.
func (m *Module) Lock(h *Handle, usage Usage, x, y, w, hgt int) ([]byte, error) {
	obj, err := m.resolve(h)
	if err != nil {
		return nil, err
	}
	return obj.Lock(usage, x, y, w, hgt)
}

// Unlock releases the CPU mapping obtained by Lock.
func (m *Module) Unlock(h *Handle) error {
	obj, err := m.resolve(h)
	if err != nil {
		return err
	}
	obj.Unlock()
	return nil
}

// TrackedBuffers returns the number of buffers currently tracked by
// the registry.
func (m *Module) TrackedBuffers() int {
	return m.records.count()
}
