// Package gralloc provides graphics buffer allocation, lifecycle tracking
// and CPU-mapping (lock/unlock) for Go.
//
// # Overview
//
// gralloc tracks every allocated hardware buffer in a process, exposes a
// lock/unlock protocol for CPU access to buffer contents, resolves planar
// YCbCr formats into per-plane strides and offsets, and offers a typed
// command dispatch entry point (Perform) for capabilities outside the
// fixed interface, such as descriptor export and cross-process import.
//
// The actual memory comes from a pluggable allocation backend. Backends
// register themselves with a name and a priority; the highest-priority
// available backend is constructed lazily on first use:
//
//	import (
//	    "github.com/gogpu/gralloc"
//	    _ "github.com/gogpu/gralloc/backend/mem" // system-memory backend
//	)
//
//	m := gralloc.New()
//	dev, err := m.Open(gralloc.DeviceGPU0)
//	h, stride, err := dev.Alloc(640, 480, gralloc.FormatRGBA8888, gralloc.UsageSwWriteOften)
//	data, err := m.Lock(h, gralloc.UsageSwWriteOften, 0, 0, 640, 480)
//	// ... write pixels ...
//	err = m.Unlock(h)
//	err = dev.Free(h)
//
// # Architecture
//
// The library is organized into:
//   - Public API: Module, Device, Handle, Command
//   - Backend interface: Backend, Object, Importer
//   - Backends: backend/mem (system memory), backend/shm (memfd + mmap,
//     Linux), backend/gpu (GPU memory via gogpu/wgpu)
//
// All state is in-memory and process-scoped; nothing is persisted.
package gralloc

// Version information
const (
	// Version is the current version of the library
	Version = "0.1.0"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 1

	// VersionPatch is the patch version
	VersionPatch = 0
)
