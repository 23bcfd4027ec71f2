package gralloc

import (
	"sort"
	"sync"
)

// records is the process-wide bookkeeping of tracked buffers: one entry
// per native object currently alive in this process, keyed by the
// object's identity. It owns its own mutex so that create, destroy and
// dump are safe against each other without caller discipline.
type records struct {
	mu      sync.Mutex
	entries map[BufferID]*Handle
}

func newRecords() *records {
	return &records{entries: make(map[BufferID]*Handle)}
}

// insert adds the (identity -> handle) entry. Called exactly once per
// successful create.
func (r *records) insert(id BufferID, h *Handle) {
	r.mu.Lock()
	r.entries[id] = h
	r.mu.Unlock()
}

// remove deletes the entry for id, reporting whether it existed.
func (r *records) remove(id BufferID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[id]; !ok {
		return false
	}
	delete(r.entries, id)
	return true
}

// count returns the number of tracked buffers.
func (r *records) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// snapshot returns the tracked handles ordered by identity, for stable
// diagnostic output.
func (r *records) snapshot() []*Handle {
	r.mu.Lock()
	handles := make([]*Handle, 0, len(r.entries))
	for _, h := range r.entries {
		handles = append(handles, h)
	}
	r.mu.Unlock()

	sort.Slice(handles, func(i, j int) bool { return handles[i].id < handles[j].id })
	return handles
}
