package heap

import "sync"

// MarkBitmap is a set of marked pointers with an atomic test-and-set,
// standing in for ART's bitmap-per-word-range implementation. Continuous
// spaces and the large-object space each own one.
type MarkBitmap struct {
	mu     sync.Mutex
	marked map[Ptr]bool
}

func NewMarkBitmap() *MarkBitmap {
	return &MarkBitmap{marked: make(map[Ptr]bool)}
}

// Test reports whether p is already marked.
func (b *MarkBitmap) Test(p Ptr) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.marked[p]
}

// AtomicTestAndSet sets p's bit and reports whether it was already set,
// matching spec.md §4.5's "another thread won" race: the caller that
// gets wasAlreadySet==false is the one that gets to push the object onto
// the mark stack.
func (b *MarkBitmap) AtomicTestAndSet(p Ptr) (wasAlreadySet bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	wasAlreadySet = b.marked[p]
	b.marked[p] = true
	return wasAlreadySet
}

func (b *MarkBitmap) Clear(p Ptr) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.marked, p)
}

// Swap exchanges the bitmap's contents with a fresh, empty one and
// returns what it held — used by ReclaimPhase's mark/live bitmap swap.
func (b *MarkBitmap) Swap() *MarkBitmap {
	b.mu.Lock()
	defer b.mu.Unlock()
	old := &MarkBitmap{marked: b.marked}
	b.marked = make(map[Ptr]bool)
	return old
}

// MarkBitmapKind is the "polymorphic bitmap dispatch" sum type from
// spec.md §9: every non-region object belongs to exactly one of a
// continuous space's bitmap or the large-object space's bitmap.
type MarkBitmapKind struct {
	Continuous  *MarkBitmap
	LargeObject *MarkBitmap
}

// For picks the bitmap appropriate to p given whether it's a large
// object, mirroring HeapBitmap::GetContinuousSpaceBitmap /
// GetLargeObjectBitmap (spec.md §6).
func (k MarkBitmapKind) For(isLarge bool) *MarkBitmap {
	if isLarge {
		return k.LargeObject
	}
	return k.Continuous
}
