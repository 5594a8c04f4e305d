package gc

import (
	"sort"
	"sync"

	"github.com/mihalyid/art/heap"
)

// skippedBlock is one entry of the SkippedBlockMap (spec.md §3): a
// to-space allocation a copy raced and lost, kept around for reuse.
type skippedBlock struct {
	size uintptr
	addr heap.Ptr
}

// SkippedBlockMap is the ordered map<byte_size, uint8_t*> spec.md
// describes, implemented as a size-sorted slice with binary search since
// Go has no built-in ordered map. All access is through
// skipped_blocks_lock (here, mu), which spec.md §5 calls a leaf lock.
type SkippedBlockMap struct {
	mu      sync.Mutex
	entries []skippedBlock
}

func NewSkippedBlockMap() *SkippedBlockMap {
	return &SkippedBlockMap{}
}

// Insert records a losing copy's allocation. size must already be
// region-alignment-aligned and >= MinObjectSize, per Invariant 6.
func (m *SkippedBlockMap) Insert(size uintptr, addr heap.Ptr) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insertLocked(size, addr)
}

func (m *SkippedBlockMap) insertLocked(size uintptr, addr heap.Ptr) {
	i := sort.Search(len(m.entries), func(i int) bool { return m.entries[i].size >= size })
	m.entries = append(m.entries, skippedBlock{})
	copy(m.entries[i+1:], m.entries[i:])
	m.entries[i] = skippedBlock{size: size, addr: addr}
}

// AllocateFrom implements spec.md §4.3 step 3 / §8 S3: a lower_bound
// search for the smallest block big enough, preferring an exact match or
// one whose remainder is itself reusable (>= minObjectSize). If the
// lower_bound candidate's remainder is too small to reinsert, retry the
// search with alloc_size+minObjectSize, per S3.
func (m *SkippedBlockMap) AllocateFrom(allocSize uintptr, minObjectSize uintptr) (heap.Ptr, uintptr, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.lowerBound(allocSize)
	if i >= len(m.entries) {
		return 0, 0, false
	}
	remainder := m.entries[i].size - allocSize
	if remainder != 0 && remainder < minObjectSize {
		// Retry with alloc_size+min_object_size so the leftover, if any,
		// is itself a valid reusable block.
		j := m.lowerBound(allocSize + minObjectSize)
		if j >= len(m.entries) {
			return 0, 0, false
		}
		i = j
		remainder = m.entries[i].size - allocSize
	}

	e := m.entries[i]
	m.entries = append(m.entries[:i], m.entries[i+1:]...)

	if remainder >= minObjectSize {
		// Split and reinsert the tail (Invariant 6: "any remainder after
		// partial reuse is re-inserted").
		tailAddr := e.addr + heap.Ptr(allocSize)
		m.insertLocked(remainder, tailAddr)
	}
	return e.addr, e.size, true
}

func (m *SkippedBlockMap) lowerBound(size uintptr) int {
	return sort.Search(len(m.entries), func(i int) bool { return m.entries[i].size >= size })
}

func (m *SkippedBlockMap) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Clear empties the map, called from FinishPhase (spec.md §4.1.5).
func (m *SkippedBlockMap) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = nil
}
