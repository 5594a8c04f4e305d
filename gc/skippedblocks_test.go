package gc

import (
	"testing"

	"github.com/mihalyid/art/heap"
)

// TestSkippedBlockMapExactMatch covers the simple lower_bound hit: an
// entry exactly the requested size is returned whole, nothing reinserted.
func TestSkippedBlockMapExactMatch(t *testing.T) {
	m := NewSkippedBlockMap()
	m.Insert(32, heap.Ptr(0x1000))

	addr, size, ok := m.AllocateFrom(32, heap.MinObjectSize)
	if !ok || addr != 0x1000 || size != 32 {
		t.Fatalf("AllocateFrom(32, ...) = (%v, %v, %v), want (0x1000, 32, true)", addr, size, ok)
	}
	if m.Len() != 0 {
		t.Fatalf("map should be empty after consuming its only entry, Len() = %d", m.Len())
	}
}

// TestSkippedBlockMapSplitsReusableRemainder covers Invariant 6's "the
// remainder is reinserted if it's itself reusable" branch.
func TestSkippedBlockMapSplitsReusableRemainder(t *testing.T) {
	m := NewSkippedBlockMap()
	m.Insert(48, heap.Ptr(0x2000))

	addr, size, ok := m.AllocateFrom(32, heap.MinObjectSize)
	if !ok || addr != 0x2000 || size != 48 {
		t.Fatalf("AllocateFrom = (%v, %v, %v), want (0x2000, 48, true)", addr, size, ok)
	}
	if m.Len() != 1 {
		t.Fatalf("the 16-byte remainder should have been reinserted, Len() = %d", m.Len())
	}
	tailAddr, tailSize, ok := m.AllocateFrom(16, heap.MinObjectSize)
	if !ok || tailAddr != 0x2000+32 || tailSize != 16 {
		t.Fatalf("reinserted remainder = (%v, %v, %v), want (0x2020, 16, true)", tailAddr, tailSize, ok)
	}
}

// TestSkippedBlockMapRetriesWhenRemainderTooSmall implements the S3
// scenario named in spec.md §8: a lower_bound candidate whose remainder
// would fall below MinObjectSize is skipped in favor of the next
// candidate found by retrying the search at allocSize+MinObjectSize.
func TestSkippedBlockMapRetriesWhenRemainderTooSmall(t *testing.T) {
	m := NewSkippedBlockMap()
	m.Insert(40, heap.Ptr(0x3000)) // remainder for a 32-byte alloc would be 8, below MinObjectSize (16)
	m.Insert(48, heap.Ptr(0x4000)) // remainder for a 32-byte alloc is 16, exactly MinObjectSize

	addr, size, ok := m.AllocateFrom(32, heap.MinObjectSize)
	if !ok || addr != 0x4000 || size != 48 {
		t.Fatalf("AllocateFrom = (%v, %v, %v), want the 48-byte block (0x4000, 48, true)", addr, size, ok)
	}
	if m.Len() != 2 {
		t.Fatalf("the untouched 40-byte block plus the reinserted 16-byte remainder should leave Len() == 2, got %d", m.Len())
	}
	// The 40-byte block must still be there, untouched.
	stillThereAddr, stillThereSize, ok := m.AllocateFrom(40, heap.MinObjectSize)
	if !ok || stillThereAddr != 0x3000 || stillThereSize != 40 {
		t.Fatalf("original 40-byte block missing or wrong: (%v, %v, %v)", stillThereAddr, stillThereSize, ok)
	}
}

func TestSkippedBlockMapNoFit(t *testing.T) {
	m := NewSkippedBlockMap()
	m.Insert(16, heap.Ptr(0x5000))
	if _, _, ok := m.AllocateFrom(64, heap.MinObjectSize); ok {
		t.Fatal("AllocateFrom must fail when no block is large enough")
	}
}
