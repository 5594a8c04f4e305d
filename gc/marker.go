package gc

import (
	"sync/atomic"

	"github.com/mihalyid/art/heap"
)

// Marker implements spec.md §4.2's Mark dispatch and §4.5's
// MarkNonMoving. It's the read barrier entry point every other
// component (Scanner, checkpoints, the reference processor callbacks)
// calls through.
type Marker struct {
	classifier Classifier
	copier     *Copier
	markStack  *MarkStack
	unevacBitmap *heap.MarkBitmap

	cfg Config

	grayImmuneObjects atomic.Bool // gc_grays_immune_objects
}

func NewMarker(classifier Classifier, copier *Copier, markStack *MarkStack, unevacBitmap *heap.MarkBitmap, cfg Config) *Marker {
	return &Marker{classifier: classifier, copier: copier, markStack: markStack, unevacBitmap: unevacBitmap, cfg: cfg}
}

func (m *Marker) SetGrayImmuneObjects(v bool) { m.grayImmuneObjects.Store(v) }

// Mark is the core's one required read-barrier entry point (spec.md §6:
// `Mark(Object*) -> Object*`). It returns the canonical to-space (or
// stable) pointer for from_ref.
func (m *Marker) Mark(thread *heap.Thread, isGCThread bool, fromRef heap.Ptr) heap.Ptr {
	if fromRef.IsNull() {
		return fromRef
	}
	switch m.classifier.GetRegionType(fromRef) {
	case heap.RegionToSpace, heap.RegionUnevacFromSpace:
		return m.markUnevacOrToSpace(thread, isGCThread, fromRef)
	case heap.RegionFromSpace:
		return m.markFromSpace(thread, isGCThread, fromRef)
	case heap.RegionImmune:
		return m.markImmune(fromRef)
	default: // NonMoving, LargeObject, or anything not region-tracked
		return m.MarkNonMoving(thread, isGCThread, fromRef)
	}
}

func (m *Marker) markUnevacOrToSpace(thread *heap.Thread, isGCThread bool, ref heap.Ptr) heap.Ptr {
	if m.classifier.GetRegionType(ref) == heap.RegionToSpace {
		return ref
	}
	// UnevacFromSpace: bitmap test-and-set; on first mark, push onto the
	// mark stack (gray it for Baker); return unchanged (spec.md §4.2 step 4).
	obj := m.classifier.Object(ref)
	if wasSet := m.unevacBitmap.AtomicTestAndSet(ref); !wasSet {
		m.classifier.AddLiveBytes(ref, obj.Class.Size)
		if m.cfg.UseBakerReadBarrier {
			obj.RB.CAS(heap.White, heap.Gray)
		}
		m.markStack.Push(thread, isGCThread, ref)
	}
	return ref
}

func (m *Marker) markFromSpace(thread *heap.Thread, isGCThread bool, ref heap.Ptr) heap.Ptr {
	obj := m.classifier.Object(ref)
	if to, ok := obj.Lock.Forwarded(); ok {
		return to
	}
	return m.copier.Copy(thread, isGCThread, ref)
}

func (m *Marker) markImmune(ref heap.Ptr) heap.Ptr {
	if m.grayImmuneObjects.Load() && m.cfg.UseBakerReadBarrier {
		obj := m.classifier.Object(ref)
		if obj.RB.CAS(heap.White, heap.Gray) {
			m.markStack.PushImmuneGray(ref)
		}
	}
	return ref
}

// MarkNonMoving implements spec.md §4.5. The ordering — CAS gray, then
// AtomicTestAndSet the bitmap, only then push to the false-gray stack on
// a lost race — is preserved exactly as the spec's Open Question calls
// out, because the two operations are not atomic together.
func (m *Marker) MarkNonMoving(thread *heap.Thread, isGCThread bool, ref heap.Ptr) heap.Ptr {
	bm := m.classifier.BitmapFor(ref)
	if bm.Test(ref) {
		return ref
	}
	// Allocation-stack membership counts as marked without touching the
	// rb-word (spec.md §4.5): an object a mutator allocated between the
	// live-stack swap and now is already going to be swept in as live by
	// SwapAllocAndLiveStacks, so there's nothing left for Mark to do.
	if m.classifier.IsOnAllocationStack(ref) {
		return ref
	}
	obj := m.classifier.Object(ref)

	grayedHere := false
	if m.cfg.UseBakerReadBarrier {
		grayedHere = obj.RB.CAS(heap.White, heap.Gray)
	}
	wasAlreadySet := bm.AtomicTestAndSet(ref)
	if wasAlreadySet {
		if grayedHere {
			// We grayed it, but another thread's bitmap set already marked
			// it; whoever drains the mark stack won't visit this object, so
			// the gray we installed would never return to white on its own.
			// Queue it for ProcessFalseGrayStack instead (spec.md §4.5, §4.1.3 step 10).
			m.markStack.PushFalseGray(ref)
		}
		return ref
	}
	m.markStack.Push(thread, isGCThread, ref)
	return ref
}

