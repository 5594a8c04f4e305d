package gc

import "github.com/mihalyid/art/heap"

// RunCheckpoint runs fn on every mutator via the thread list and returns
// the count that ran, matching ThreadList::RunCheckpoint's semantics
// (spec.md §4.7): "the GC thread initializes a counter-barrier to zero,
// the thread-list runs the closure N times ... the GC thread then waits
// until N passes are recorded." heap.ThreadList.RunCheckpoint already
// runs synchronously, so the "wait" is free; this wrapper exists so the
// closures below read the same way spec.md names them.
func RunCheckpoint(threads *heap.ThreadList, fn func(*heap.Thread)) int {
	return threads.RunCheckpoint(fn)
}

// EmptyCheckpoint forces a happens-before point with no per-thread work
// beyond passing the barrier (spec.md §4.7).
func EmptyCheckpoint(threads *heap.ThreadList) int {
	return RunCheckpoint(threads, func(*heap.Thread) {})
}

// RevokeThreadLocalMarkStackCheckpoint captures every thread's TL mark
// stack into revokedMarkStacks and, if disableWeakRefAccess is set,
// clears weak_ref_access_enabled in the same pass — the "single atomic
// step" spec.md §4.7 calls out to avoid a mutator publishing a push via
// a weak-ref read after the mode switch.
func RevokeThreadLocalMarkStackCheckpoint(threads *heap.ThreadList, ms *MarkStack, disableWeakRefAccess bool) int {
	return RunCheckpoint(threads, func(t *heap.Thread) {
		ms.RevokeThreadLocal(t)
		if disableWeakRefAccess {
			t.SetWeakRefAccessEnabled(false)
		}
	})
}

// DisableMarkingCheckpoint clears is_gc_marking on every thread.
func DisableMarkingCheckpoint(threads *heap.ThreadList) int {
	return RunCheckpoint(threads, func(t *heap.Thread) {
		t.SetGCMarking(false)
	})
}

// EnableWeakRefAccessCheckpoint re-enables weak-ref access on every
// thread (spec.md §4.1.3 step 7, before BroadcastForSlowPath).
func EnableWeakRefAccessCheckpoint(threads *heap.ThreadList) int {
	return RunCheckpoint(threads, func(t *heap.Thread) {
		t.SetWeakRefAccessEnabled(true)
	})
}

// ThreadFlipVisitor is the per-thread half of FlipThreadRoots (spec.md
// §4.1.2): sets is_gc_marking, revokes the TLAB and thread-local
// allocation stack, and visits thread-local roots through mark,
// rewriting each root slot that mark moved.
func ThreadFlipVisitor(t *heap.Thread, mark func(*heap.Thread, heap.Ptr) heap.Ptr) {
	t.SetGCMarking(true)
	t.RevokeTLAB()
	t.RevokeAllocStack()
	t.VisitRoots(func(p heap.Ptr) heap.Ptr {
		return mark(t, p)
	})
}
