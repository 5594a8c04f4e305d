package gc

import (
	"github.com/mihalyid/art/heap"
)

// Dummy filler classes for lost copy races (spec.md §4.3 "Dummy object
// filling"). intArrayHeaderSize/intArrayElemSize model a primitive
// int[]'s header-plus-elements layout; objectHeaderSize is the minimal
// root-Object layout. When the block is too small for even one element,
// dummyFiller uses a root-Object class whose Size is the block's size.
const (
	intArrayHeaderSize = 16
	intArrayElemSize   = 4
	objectHeaderSize   = 8
)

var (
	dummyIntArrayClass = &heap.ClassInfo{Name: "[I", IsPrimArray: true, HeaderSize: intArrayHeaderSize, ElemSize: intArrayElemSize}
	dummyObjectClass   = &heap.ClassInfo{Name: "java.lang.Object", IsObjectHeader: true, Size: objectHeaderSize}
)

// dummyFiller picks a class/length pair whose total byte size is exactly
// size, per spec.md §4.3: prefer an int[] when there's room for a header
// plus at least one element, else fall back to the bare Object header.
func dummyFiller(size uintptr) (*heap.ClassInfo, int) {
	if size >= intArrayHeaderSize+intArrayElemSize {
		length := int((size - intArrayHeaderSize) / intArrayElemSize)
		class := &heap.ClassInfo{
			Name: "[I", IsPrimArray: true,
			HeaderSize: intArrayHeaderSize, ElemSize: intArrayElemSize,
			Size: intArrayHeaderSize + uintptr(length)*intArrayElemSize,
		}
		return class, length
	}
	class := &heap.ClassInfo{Name: "java.lang.Object", IsObjectHeader: true, Size: size}
	return class, 0
}

// Copier is the size-class-aware allocator described in spec.md §4.3: it
// tries region space, then a skipped block, then non-moving space, and
// installs the forwarding word with a CAS retry loop that resolves copy
// races by dummy-filling the loser.
type Copier struct {
	alloc      Allocator
	classifier Classifier
	skipped    *SkippedBlockMap
	markStack  *MarkStack
	nonMovingBitmap *heap.MarkBitmap
	stats      *Stats
	largeObjectThreshold uintptr
}

func NewCopier(alloc Allocator, classifier Classifier, skipped *SkippedBlockMap, markStack *MarkStack, nonMovingBitmap *heap.MarkBitmap, stats *Stats, largeObjectThreshold uintptr) *Copier {
	return &Copier{
		alloc: alloc, classifier: classifier, skipped: skipped, markStack: markStack,
		nonMovingBitmap: nonMovingBitmap, stats: stats, largeObjectThreshold: largeObjectThreshold,
	}
}

// Copy implements spec.md §4.3. thread/isGCThread are threaded through to
// MarkStack.Push, which needs to know whether this is the GC thread's
// own copy (ThreadLocal-mode fast path) or a mutator's (via its TL
// stack).
func (c *Copier) Copy(thread *heap.Thread, isGCThread bool, from heap.Ptr) heap.Ptr {
	fromObj := c.classifier.Object(from)
	if fromObj == nil {
		fatalf("copy-missing-object", "", "no object at from-space ref %v", from)
	}
	size := alignUp(fromObj.Class.Size)

	for {
		to, allocatedFresh, fromSkipped, fromNonMoving := c.allocateToSlot(fromObj, size)

		if fromObj.Lock.TryForward(to) {
			toObj := c.classifier.Object(to)
			toObj.RB.Set(heap.Gray)
			c.stats.recordMoved(size)
			c.markStack.Push(thread, isGCThread, to)
			return to
		}

		// Lost the race: someone else already forwarded `from`. Fill the
		// slot we just allocated with a dummy object so the heap stays
		// parseable, then reclaim it and return the winner's address.
		winner, ok := fromObj.Lock.Forwarded()
		if !ok {
			// The only other lock-word writer in this model is another
			// TryForward; if Forwarded() says false immediately after a
			// failed TryForward, another CAS raced in between. Retry.
			continue
		}
		class, length := dummyFiller(size)
		c.alloc.InstallAt(to, class, nil, length)
		switch {
		case size >= c.largeObjectThreshold:
			c.alloc.FreeLarge(to, size)
		case fromSkipped:
			c.skipped.Insert(size, to)
		case fromNonMoving:
			c.alloc.FreeNonMoving(to)
		default:
			c.skipped.Insert(size, to)
		}
		c.stats.recordSkipped(size)
		_ = allocatedFresh
		return winner
	}
}

// allocateToSlot is spec.md §4.3 steps 2-3: region space, then a skipped
// block, then non-moving space.
func (c *Copier) allocateToSlot(fromObj *heap.Object, size uintptr) (to heap.Ptr, freshRegion, fromSkipped, fromNonMoving bool) {
	if to, ok := c.alloc.TryAllocRegion(fromObj.Class, fromObj.Fields, fromObj.Length); ok {
		return to, true, false, false
	}
	if addr, blockSize, ok := c.skipped.AllocateFrom(size, heap.MinObjectSize); ok {
		c.alloc.InstallAt(addr, fromObj.Class, fromObj.Fields, fromObj.Length)
		_ = blockSize
		return addr, false, true, false
	}
	to = c.alloc.AllocNonMoving(fromObj.Class, fromObj.Fields, fromObj.Length)
	c.nonMovingBitmap.AtomicTestAndSet(to)
	return to, false, false, true
}

func alignUp(size uintptr) uintptr {
	return (size + heap.ObjectAlignment - 1) &^ (heap.ObjectAlignment - 1)
}
