package heap

import (
	"sync"
	"sync/atomic"
)

// RootVisitor is a mutator's thread-local root set. The collector calls
// VisitRoots with a Mark-like function during FlipThreadRoots and whenever a
// checkpoint asks a thread to rescan.
type RootVisitor interface {
	VisitRoots(mark func(Ptr) Ptr)
}

// TLAB is a thread-local allocation buffer. Revoking it (spec.md
// §4.1.2) detaches it from the thread and hands it back to the caller;
// nothing is returned to the region.
type TLAB struct {
	Region    int
	ObjectsIn []Ptr
}

// Thread is a mutator thread's GC-visible control block: the two
// per-thread flags spec.md §1 calls out, its TLAB, its thread-local mark
// stack (opaque to this package; gc.MarkStack owns the type), and its
// root visitor.
type Thread struct {
	ID int

	isGCMarking         atomic.Bool
	weakRefAccessEnabled atomic.Bool

	mu        sync.Mutex
	tlab      *TLAB
	visitor   RootVisitor
	allocStack []Ptr

	// TLMarkStack is an opaque slot the gc package stashes its
	// thread-local mark stack pointer into. heap.Thread doesn't know
	// the type; it just gives gc a place to hang per-thread state off
	// of the same control block ART uses.
	TLMarkStack interface{}
}

func NewThread(id int, v RootVisitor) *Thread {
	t := &Thread{ID: id, visitor: v}
	t.weakRefAccessEnabled.Store(true)
	return t
}

func (t *Thread) IsGCMarking() bool                { return t.isGCMarking.Load() }
func (t *Thread) SetGCMarking(v bool)              { t.isGCMarking.Store(v) }
func (t *Thread) WeakRefAccessEnabled() bool       { return t.weakRefAccessEnabled.Load() }
func (t *Thread) SetWeakRefAccessEnabled(v bool)   { t.weakRefAccessEnabled.Store(v) }

func (t *Thread) SetTLAB(tl *TLAB) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tlab = tl
}

// RevokeTLAB clears the thread's TLAB and returns whatever it held, per
// spec.md §4.1.2 ("revoke it ... optionally accounting its objects").
func (t *Thread) RevokeTLAB() *TLAB {
	t.mu.Lock()
	defer t.mu.Unlock()
	tl := t.tlab
	t.tlab = nil
	return tl
}

// RevokeAllocStack hands back and clears the thread-local allocation
// stack (objects allocated since the last flip that haven't yet been
// published to the shared allocation stack).
func (t *Thread) RevokeAllocStack() []Ptr {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.allocStack
	t.allocStack = nil
	return s
}

func (t *Thread) PushAlloc(p Ptr) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.allocStack = append(t.allocStack, p)
}

func (t *Thread) VisitRoots(mark func(Ptr) Ptr) {
	if t.visitor != nil {
		t.visitor.VisitRoots(mark)
	}
}

// ThreadList is ART's ThreadList, reduced to what the collector needs:
// running a closure on every mutator at its next safepoint and counting
// how many ran. There's no real scheduler here; RunCheckpoint just calls
// the closure on each thread synchronously and returns the count, which
// is sufficient to drive gc.RunCheckpoint's counted-barrier wait.
type ThreadList struct {
	mu      sync.RWMutex
	threads []*Thread
}

func NewThreadList() *ThreadList { return &ThreadList{} }

func (tl *ThreadList) Add(t *Thread) {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	tl.threads = append(tl.threads, t)
}

func (tl *ThreadList) Threads() []*Thread {
	tl.mu.RLock()
	defer tl.mu.RUnlock()
	out := make([]*Thread, len(tl.threads))
	copy(out, tl.threads)
	return out
}

// RunCheckpoint runs fn on every current mutator and returns how many
// ran, matching ThreadList::RunCheckpoint's return value in spec.md §6.
func (tl *ThreadList) RunCheckpoint(fn func(*Thread)) int {
	threads := tl.Threads()
	for _, t := range threads {
		fn(t)
	}
	return len(threads)
}

// FlipThreadRoots runs the global FlipCallback first, under the
// simulated exclusive pause, then the per-thread flip closure on every
// mutator. Real ART runs flip_callback while holding the mutator lock
// exclusively — so the region-space flip is already visible — and only
// afterward runs thread_flip_visitor as an ordinary checkpoint; getting
// this order backwards would have every thread's root visit dispatch
// against the pre-flip region classification and never push a live root
// onto the mark stack. RunCheckpoint's synchronous call already
// serializes against concurrent Go routines that would otherwise run
// the visitor, so the caller (gc.PhaseMachine) only needs to hold its
// own pause mutex around this call.
func (tl *ThreadList) FlipThreadRoots(perThread func(*Thread), global func()) {
	global()
	tl.RunCheckpoint(perThread)
}
