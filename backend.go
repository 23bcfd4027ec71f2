// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gralloc

import (
	"fmt"
	"sort"
	"sync"
)

// Object is one native buffer object as seen by the core. Objects are
// owned by their backend and reference counted; Release drops one
// reference and the backend reclaims the memory when the count reaches
// zero.
type Object interface {
	// ID returns the object's stable identity.
	ID() BufferID

	// IncRef takes an additional reference on the object.
	IncRef()

	// Release drops one reference. Releasing the last reference
	// destroys the object; the identity is never reassigned.
	Release()

	// Stride returns the byte stride of the primary plane.
	Stride() int

	// Lock returns a CPU-addressable mapping of the object. The
	// region coordinates are advisory; backends map the whole
	// allocation and the returned slice starts at the base of the
	// mapping. The slice is valid until the matching Unlock.
	Lock(usage Usage, x, y, w, h int) ([]byte, error)

	// Unlock releases the CPU mapping obtained by Lock.
	Unlock()

	// PlaneLayout returns up to four (pitch, offset) pairs describing
	// the physical plane layout within the allocation. For packed
	// formats only index 0 is meaningful.
	PlaneLayout() (pitches, offsets [4]int)
}

// Backend is the narrow capability interface to an allocation backend.
// Implementations live under backend/ and register themselves with
// RegisterBackend from an init function.
type Backend interface {
	// Name returns the backend identifier (e.g. "mem", "shm", "wgpu").
	Name() string

	// CreateObject allocates a native buffer object. The format is
	// already normalized and has a known bytes-per-pixel mapping.
	CreateObject(width, height int, format Format, usage Usage) (Object, error)

	// ImportObject brings a handle created elsewhere into local
	// validity, returning the referenced object with one additional
	// reference taken.
	ImportObject(h *Handle) (Object, error)

	// Descriptor returns the backend's device descriptor (e.g. a DRM
	// or memfd file descriptor), or -1 if the backend has none.
	Descriptor() int

	// Close releases all backend resources. The backend should not be
	// used after Close is called.
	Close()
}

// ExternalBuffer describes a buffer resolved from a foreign file
// descriptor, ready for composition or GPU import.
type ExternalBuffer struct {
	// ID is the identity of the resolved object.
	ID BufferID

	// Width and Height are the buffer dimensions in pixels.
	Width, Height int

	// Format is the buffer's pixel format.
	Format Format

	// Pitch is the byte stride of the primary plane.
	Pitch int

	// Size is the total allocation size in bytes.
	Size int

	// Data is the local mapping of the buffer, if the backend
	// produced one.
	Data []byte
}

// Importer is an optional backend capability for resolving buffers
// exported by other processes. Backends without it cause ImportBuffer
// commands to fail with ErrInvalidArgument.
type Importer interface {
	ResolveExternal(fd int, h *Handle, out *ExternalBuffer) error
}

// BackendFactory constructs a backend instance.
type BackendFactory func() (Backend, error)

// backendEntry is one registered backend.
type backendEntry struct {
	name      string
	priority  int
	factory   BackendFactory
	available func() bool
}

var (
	backendMu      sync.RWMutex
	backendEntries = make(map[string]*backendEntry)
)

// RegisterBackend adds a backend factory to the global registry.
//
// Parameters:
//   - name: unique identifier (e.g. "mem", "shm", "wgpu")
//   - priority: selection priority (higher = preferred)
//   - factory: function constructing backend instances
//   - available: reports whether the backend can work on this system;
//     nil means always available
//
// Registering a name that already exists replaces the previous entry.
// This is typically called from init() functions in backend packages.
func RegisterBackend(name string, priority int, factory BackendFactory, available func() bool) {
	if available == nil {
		available = func() bool { return true }
	}
	backendMu.Lock()
	defer backendMu.Unlock()
	backendEntries[name] = &backendEntry{
		name:      name,
		priority:  priority,
		factory:   factory,
		available: available,
	}
}

// UnregisterBackend removes a backend from the registry.
// This is useful for testing.
func UnregisterBackend(name string) {
	backendMu.Lock()
	defer backendMu.Unlock()
	delete(backendEntries, name)
}

// Backends returns all registered backend names sorted by priority
// (highest first).
func Backends() []string {
	backendMu.RLock()
	defer backendMu.RUnlock()

	entries := make([]*backendEntry, 0, len(backendEntries))
	for _, e := range backendEntries {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].priority != entries[j].priority {
			return entries[i].priority > entries[j].priority
		}
		return entries[i].name < entries[j].name
	})

	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.name
	}
	return names
}

// newBackendByName constructs the backend registered under name.
func newBackendByName(name string) (Backend, error) {
	backendMu.RLock()
	e, ok := backendEntries[name]
	backendMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("backend %q is not registered", name)
	}
	if !e.available() {
		return nil, fmt.Errorf("backend %q is not available", name)
	}
	return e.factory()
}

// newDefaultBackend constructs the highest-priority available backend.
// Factories that fail are skipped in favor of the next candidate.
func newDefaultBackend() (Backend, error) {
	var firstErr error
	for _, name := range Backends() {
		backendMu.RLock()
		e, ok := backendEntries[name]
		backendMu.RUnlock()
		if !ok || !e.available() {
			continue
		}

		b, err := e.factory()
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("backend %q: %w", name, err)
			}
			Logger().Warn("gralloc: backend construction failed", "backend", name, "error", err)
			continue
		}
		return b, nil
	}

	if firstErr != nil {
		return nil, firstErr
	}
	return nil, fmt.Errorf("no backend registered")
}
