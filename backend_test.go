package gralloc

import (
	"fmt"
	"testing"
)

// TestBackendsOrder verifies priority ordering of the registry listing.
func TestBackendsOrder(t *testing.T) {
	names := []string{"order-a", "order-b", "order-c"}
	RegisterBackend("order-b", 20, func() (Backend, error) { return newTestBackend(), nil }, nil)
	RegisterBackend("order-a", 5, func() (Backend, error) { return newTestBackend(), nil }, nil)
	RegisterBackend("order-c", 20, func() (Backend, error) { return newTestBackend(), nil }, nil)
	t.Cleanup(func() {
		for _, n := range names {
			UnregisterBackend(n)
		}
	})

	var got []string
	for _, n := range Backends() {
		switch n {
		case "order-a", "order-b", "order-c":
			got = append(got, n)
		}
	}
	want := []string{"order-b", "order-c", "order-a"}
	if len(got) != len(want) {
		t.Fatalf("Backends = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Backends = %v, want %v", got, want)
		}
	}
}

// TestNewBackendByName verifies named construction, including the
// unregistered and unavailable cases.
func TestNewBackendByName(t *testing.T) {
	RegisterBackend("byname-ok", 1, func() (Backend, error) { return newTestBackend(), nil }, nil)
	RegisterBackend("byname-off", 99, func() (Backend, error) { return newTestBackend(), nil },
		func() bool { return false })
	t.Cleanup(func() {
		UnregisterBackend("byname-ok")
		UnregisterBackend("byname-off")
	})

	b, err := newBackendByName("byname-ok")
	if err != nil {
		t.Fatalf("newBackendByName: %v", err)
	}
	if b.Name() != "test" {
		t.Errorf("Name = %q, want test", b.Name())
	}

	if _, err := newBackendByName("byname-missing"); err == nil {
		t.Error("construction of unregistered backend succeeded")
	}
	if _, err := newBackendByName("byname-off"); err == nil {
		t.Error("construction of unavailable backend succeeded")
	}
}

// TestNewDefaultBackendFallback verifies that default selection skips
// unavailable and failing backends in priority order.
func TestNewDefaultBackendFallback(t *testing.T) {
	// Shadow any real backends with very high priorities.
	RegisterBackend("fb-unavailable", 10000, func() (Backend, error) { return newTestBackend(), nil },
		func() bool { return false })
	RegisterBackend("fb-broken", 9000, func() (Backend, error) {
		return nil, fmt.Errorf("probe failed")
	}, nil)
	working := newTestBackend()
	working.name = "fb-working"
	RegisterBackend("fb-working", 8000, func() (Backend, error) { return working, nil }, nil)
	t.Cleanup(func() {
		UnregisterBackend("fb-unavailable")
		UnregisterBackend("fb-broken")
		UnregisterBackend("fb-working")
	})

	b, err := newDefaultBackend()
	if err != nil {
		t.Fatalf("newDefaultBackend: %v", err)
	}
	if b.Name() != "fb-working" {
		t.Errorf("selected backend %q, want fb-working", b.Name())
	}
}

// TestModuleWithBackendName verifies lazy construction through a named
// registry entry and teardown through closeBackend.
func TestModuleWithBackendName(t *testing.T) {
	b := newTestBackend()
	RegisterBackend("named-mod", 1, func() (Backend, error) { return b, nil }, nil)
	t.Cleanup(func() { UnregisterBackend("named-mod") })

	m := New(WithBackendName("named-mod"))
	h, _, err := m.createBuffer(8, 8, FormatRGBA8888, 0)
	if err != nil {
		t.Fatalf("createBuffer: %v", err)
	}
	if err := m.destroyBuffer(h); err != nil {
		t.Fatalf("destroyBuffer: %v", err)
	}

	m.closeBackend()
	if !b.closed {
		t.Error("backend not closed")
	}
}
