package gralloc

import (
	"errors"
	"testing"
)

// planarBackend returns a test backend whose objects report the given
// plane layout.
func planarBackend(pitches, offsets [4]int) *testBackend {
	b := newTestBackend()
	b.pitches = pitches
	b.offsets = offsets
	return b
}

// TestLockYCbCrPlaneArithmetic verifies the offset-difference formula
// against a fixed plane layout for both supported formats.
func TestLockYCbCrPlaneArithmetic(t *testing.T) {
	pitches := [4]int{640, 320, 320, 0}
	offsets := [4]int{0, 307200, 384000, 0}

	for _, format := range []Format{FormatYV12, FormatYCbCr420} {
		b := planarBackend(pitches, offsets)
		m := New(WithBackend(b))

		h, _, err := m.createBuffer(640, 480, format, 0)
		if err != nil {
			t.Fatalf("createBuffer(%v): %v", format, err)
		}

		planes, err := m.LockYCbCr(h, UsageSwReadOften, 0, 0, 640, 480)
		if err != nil {
			t.Fatalf("LockYCbCr(%v): %v", format, err)
		}

		if planes.Base == nil {
			t.Errorf("%v: Base is nil with non-zero usage", format)
		}
		if planes.YOffset != 0 {
			t.Errorf("%v: YOffset = %d, want 0", format, planes.YOffset)
		}
		if want := offsets[1] - offsets[2]; planes.CbOffset != want {
			t.Errorf("%v: CbOffset = %d, want %d", format, planes.CbOffset, want)
		}
		if want := offsets[2] - offsets[0]; planes.CrOffset != want {
			t.Errorf("%v: CrOffset = %d, want %d", format, planes.CrOffset, want)
		}
		if planes.YStride != pitches[0] {
			t.Errorf("%v: YStride = %d, want %d", format, planes.YStride, pitches[0])
		}
		if planes.CStride != pitches[1] {
			t.Errorf("%v: CStride = %d, want %d", format, planes.CStride, pitches[1])
		}
		if planes.ChromaStep != 1 {
			t.Errorf("%v: ChromaStep = %d, want 1", format, planes.ChromaStep)
		}
	}
}

// TestLockYCbCrUnsupportedFormat verifies that only the two planar
// formats resolve, and that the backend is not touched for others.
func TestLockYCbCrUnsupportedFormat(t *testing.T) {
	b := newTestBackend()
	m := New(WithBackend(b))

	h, _, err := m.createBuffer(640, 480, FormatRGBA8888, 0)
	if err != nil {
		t.Fatalf("createBuffer: %v", err)
	}
	obj := b.objects[h.ID()]

	_, err = m.LockYCbCr(h, UsageSwReadOften, 0, 0, 640, 480)
	if !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("LockYCbCr = %v, want ErrInvalidArgument", err)
	}
	if obj.locks != 0 {
		t.Errorf("backend lock calls = %d, want 0", obj.locks)
	}
}

// TestLockYCbCrZeroUsage verifies the degenerate zero-usage path: no
// CPU mapping is requested and the offsets are still computed.
func TestLockYCbCrZeroUsage(t *testing.T) {
	pitches := [4]int{640, 320, 320, 0}
	offsets := [4]int{0, 307200, 384000, 0}
	b := planarBackend(pitches, offsets)
	m := New(WithBackend(b))

	h, _, err := m.createBuffer(640, 480, FormatYV12, 0)
	if err != nil {
		t.Fatalf("createBuffer: %v", err)
	}
	obj := b.objects[h.ID()]

	planes, err := m.LockYCbCr(h, 0, 0, 0, 640, 480)
	if err != nil {
		t.Fatalf("LockYCbCr: %v", err)
	}
	if planes.Base != nil {
		t.Errorf("Base = %v, want nil with zero usage", planes.Base)
	}
	if obj.locks != 0 {
		t.Errorf("backend lock calls = %d, want 0", obj.locks)
	}
	if planes.CrOffset != offsets[2] {
		t.Errorf("CrOffset = %d, want %d", planes.CrOffset, offsets[2])
	}
}

// TestLockYCbCrUnresolvedHandle verifies the resolution failure path.
func TestLockYCbCrUnresolvedHandle(t *testing.T) {
	m := New(WithBackend(newTestBackend()))

	foreign := NewHandle(9, 640, 480, FormatYV12, 0, 640)
	if _, err := m.LockYCbCr(foreign, UsageSwReadOften, 0, 0, 640, 480); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("LockYCbCr = %v, want ErrInvalidArgument", err)
	}
}

// TestLockYCbCrLockFailure verifies that a backend lock failure is
// propagated.
func TestLockYCbCrLockFailure(t *testing.T) {
	b := planarBackend([4]int{640, 320, 320, 0}, [4]int{0, 307200, 384000, 0})
	m := New(WithBackend(b))

	h, _, err := m.createBuffer(640, 480, FormatYV12, 0)
	if err != nil {
		t.Fatalf("createBuffer: %v", err)
	}
	b.objects[h.ID()].lockErr = errors.New("test: mapping refused")

	if _, err := m.LockYCbCr(h, UsageSwReadOften, 0, 0, 640, 480); err == nil {
		t.Error("LockYCbCr succeeded, want backend lock error")
	}
}
