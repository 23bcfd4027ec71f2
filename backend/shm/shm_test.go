//go:build linux

package shm_test

import (
	"testing"

	"github.com/gogpu/gralloc"
	"github.com/gogpu/gralloc/backend/shm"
)

// TestCreateLockWrite allocates a shared-memory object and verifies the
// mapping survives a write/relock roundtrip.
func TestCreateLockWrite(t *testing.T) {
	b, err := shm.New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer b.Close()

	obj, err := b.CreateObject(32, 32, gralloc.FormatRGBA8888, gralloc.UsageSwWriteOften)
	if err != nil {
		t.Fatalf("CreateObject: %v", err)
	}
	defer obj.Release()

	if obj.Stride() != 32*4 {
		t.Errorf("Stride = %d, want %d", obj.Stride(), 32*4)
	}

	data, err := obj.Lock(gralloc.UsageSwWriteOften, 0, 0, 32, 32)
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if len(data) != 32*4*32 {
		t.Errorf("mapping length = %d, want %d", len(data), 32*4*32)
	}
	for i := range data {
		data[i] = byte(i % 251)
	}
	obj.Unlock()

	data, err = obj.Lock(gralloc.UsageSwReadOften, 0, 0, 32, 32)
	if err != nil {
		t.Fatalf("relock: %v", err)
	}
	for i, v := range data {
		if v != byte(i%251) {
			t.Fatalf("data[%d] = %d, want %d", i, v, byte(i%251))
		}
	}
	obj.Unlock()
}

// TestDescriptor verifies the backend hands out a real control
// descriptor.
func TestDescriptor(t *testing.T) {
	b, err := shm.New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer b.Close()

	if b.Descriptor() < 0 {
		t.Errorf("Descriptor = %d, want a valid fd", b.Descriptor())
	}
}

// TestResolveExternal exports an object through its file descriptor and
// resolves it back, checking that the two mappings share the bytes.
func TestResolveExternal(t *testing.T) {
	b, err := shm.New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer b.Close()

	obj, err := b.CreateObject(16, 16, gralloc.FormatRGBA8888, gralloc.UsageSwWriteOften)
	if err != nil {
		t.Fatalf("CreateObject: %v", err)
	}
	defer obj.Release()

	exp, ok := obj.(interface{ FD() int })
	if !ok {
		t.Fatal("shm object does not expose its descriptor")
	}

	data, err := obj.Lock(gralloc.UsageSwWriteOften, 0, 0, 16, 16)
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	data[0] = 0xaa
	data[len(data)-1] = 0x55

	h := gralloc.NewHandle(obj.ID(), 16, 16, gralloc.FormatRGBA8888, 0, obj.Stride())
	var out gralloc.ExternalBuffer
	if err := b.ResolveExternal(exp.FD(), h, &out); err != nil {
		t.Fatalf("ResolveExternal: %v", err)
	}

	if out.ID != obj.ID() || out.Width != 16 || out.Height != 16 {
		t.Errorf("resolved geometry = %+v, want id %d 16x16", out, obj.ID())
	}
	if out.Size != len(data) {
		t.Errorf("resolved size = %d, want %d", out.Size, len(data))
	}
	if out.Data[0] != 0xaa || out.Data[len(out.Data)-1] != 0x55 {
		t.Error("resolved mapping does not share the object's bytes")
	}

	// Shared mapping: a write on one side is visible on the other.
	out.Data[1] = 0x77
	if data[1] != 0x77 {
		t.Error("write through resolved mapping not visible in original")
	}

	obj.Unlock()
}

// TestModuleOverShm runs the lifecycle through the core with the
// shared-memory backend injected.
func TestModuleOverShm(t *testing.T) {
	b, err := shm.New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	m := gralloc.New(gralloc.WithBackend(b))
	d, err := m.Open(gralloc.DeviceGPU0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer d.Close()

	h, stride, err := d.Alloc(640, 480, gralloc.FormatRGBA8888, gralloc.UsageSwWriteOften)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if stride != 640 {
		t.Errorf("stride = %d px, want 640", stride)
	}
	if m.TrackedBuffers() != 1 {
		t.Errorf("TrackedBuffers = %d, want 1", m.TrackedBuffers())
	}
	if err := d.Free(h); err != nil {
		t.Fatalf("Free: %v", err)
	}
	if m.TrackedBuffers() != 0 {
		t.Errorf("TrackedBuffers = %d, want 0", m.TrackedBuffers())
	}
}
