//go:build !linux

// Package shm provides a shared-memory allocation backend for Linux.
//
// On other platforms the package compiles but registers nothing;
// backend selection falls through to the next available backend.
package shm

// BackendName is the name of the shared-memory backend.
const BackendName = "shm"
