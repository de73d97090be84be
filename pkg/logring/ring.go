// Package logring keeps the most recent log entries in a fixed-size ring so a
// front end can show a rolling log without unbounded growth.
//
// Every entry gets a monotonically increasing sequence number. Readers store
// the last sequence they saw and ask for everything after it; if they fall
// behind the ring they get whatever is still retained.
package logring

import (
	"sync"
	"time"
)

// DefaultCapacity is the number of entries retained when none is configured.
const DefaultCapacity = 50

// Entry is one retained log line.
type Entry struct {
	Seq     uint64            `json:"seq"`
	Time    time.Time         `json:"time"`
	Level   string            `json:"level"`
	Message string            `json:"message"`
	Attrs   map[string]string `json:"attrs,omitempty"`
}

// Ring is a bounded, concurrency-safe buffer of entries.
type Ring struct {
	mu       sync.Mutex
	entries  []Entry
	capacity int
	// next is the slot the next entry is written to.
	next int
	// total is the number of entries ever appended, which is also the
	// sequence number of the newest entry.
	total uint64
}

// New returns a ring holding at most capacity entries. A non-positive
// capacity uses DefaultCapacity.
func New(capacity int) *Ring {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ring{
		entries:  make([]Entry, capacity),
		capacity: capacity,
	}
}

// Append stores e, overwriting the oldest entry when full, and returns the
// assigned sequence number.
func (r *Ring) Append(e Entry) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.total++
	e.Seq = r.total
	r.entries[r.next] = e
	r.next = (r.next + 1) % r.capacity
	return e.Seq
}

// Since returns retained entries with a sequence number greater than seq,
// oldest first. Since(0) returns everything retained.
func (r *Ring) Since(seq uint64) []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	if seq >= r.total {
		return nil
	}

	stored := min(r.total, uint64(r.capacity))
	oldest := r.total - stored + 1
	from := max(seq+1, oldest)

	out := make([]Entry, 0, r.total-from+1)
	for s := from; s <= r.total; s++ {
		// Entry with sequence s lives (total - s) slots behind next.
		back := int(r.total - s)
		idx := (r.next - 1 - back + r.capacity*2) % r.capacity
		out = append(out, r.entries[idx])
	}
	return out
}

// Snapshot returns everything retained, oldest first.
func (r *Ring) Snapshot() []Entry { return r.Since(0) }

// Offset is the sequence number of the newest entry.
func (r *Ring) Offset() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.total
}

// Len is the number of entries currently retained.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int(min(r.total, uint64(r.capacity)))
}

// Capacity is the maximum number of retained entries.
func (r *Ring) Capacity() int { return r.capacity }
