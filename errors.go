package gralloc

import "errors"

// Package errors. Every failure returned by gralloc wraps one of the
// three taxonomy sentinels below, so callers can classify errors with
// errors.Is regardless of the message detail.
var (
	// ErrInvalidArgument is returned for unknown handles, unresolved
	// buffers, unsupported formats and unrecognized commands, devices
	// or backends.
	ErrInvalidArgument = errors.New("gralloc: invalid argument")

	// ErrOutOfMemory is returned when the backend fails to allocate
	// a buffer object.
	ErrOutOfMemory = errors.New("gralloc: out of memory")

	// ErrBackendUnavailable is returned when lazy backend construction
	// fails, either because no backend is registered or because the
	// selected backend could not be constructed.
	ErrBackendUnavailable = errors.New("gralloc: backend unavailable")
)
