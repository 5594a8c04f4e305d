package heap

import "sync"

// RefKind distinguishes the four java.lang.ref flavors the reference
// processor treats differently.
type RefKind uint8

const (
	SoftReference RefKind = iota
	WeakReference
	PhantomReference
	FinalizerReference
)

// Reference is a reference-type object's registration with the
// processor: its kind, current referent, and whether it was queued.
type Reference struct {
	Kind     RefKind
	Referent Ptr
	Queued   bool
}

// ReferenceProcessor is the external collaborator named in spec.md §6:
// ProcessReferences, DelayReferenceReferent, BroadcastForSlowPath. It
// owns the soft/weak/phantom/finalizer queues; the collector only calls
// these methods.
type ReferenceProcessor struct {
	mu         sync.Mutex
	refs       []*Reference
	cond       *sync.Cond
	slowPathWaiters int
}

func NewReferenceProcessor() *ReferenceProcessor {
	rp := &ReferenceProcessor{}
	rp.cond = sync.NewCond(&rp.mu)
	return rp
}

func (rp *ReferenceProcessor) Register(r *Reference) {
	rp.mu.Lock()
	defer rp.mu.Unlock()
	rp.refs = append(rp.refs, r)
}

// ProcessReferences walks every registered reference, using isMarked to
// decide whether the referent survived. Soft references are cleared
// outright when clearSoft is set (the collector sets it only for the
// clear-soft-references cause). Any referent isMarked does not report
// live is passed through mark and the reference is queued, matching the
// real processor's behavior of pushing newly-discovered live referents
// back onto the mark stack.
func (rp *ReferenceProcessor) ProcessReferences(clearSoft bool, isMarked func(Ptr) (Ptr, bool), mark func(Ptr) Ptr) {
	rp.mu.Lock()
	refs := append([]*Reference(nil), rp.refs...)
	rp.mu.Unlock()

	for _, r := range refs {
		if r.Referent.IsNull() {
			continue
		}
		if r.Kind == SoftReference && clearSoft {
			r.Referent = 0
			r.Queued = true
			continue
		}
		if to, ok := isMarked(r.Referent); ok {
			r.Referent = to
			continue
		}
		// Referent not yet known-live: mark re-marks it and the reference
		// is queued.
		r.Referent = mark(r.Referent)
		r.Queued = true
	}
}

// DelayReferenceReferent re-marks one reference's referent the way
// ProcessReferences's own mark step does; gc.Scanner calls it when it
// encounters a reference object while draining the mark stack.
func (rp *ReferenceProcessor) DelayReferenceReferent(r *Reference, mark func(Ptr) Ptr) {
	if r.Referent.IsNull() {
		return
	}
	r.Referent = mark(r.Referent)
}

// WaitForSlowPath / BroadcastForSlowPath model the per-cycle window in which a
// mutator calling GetReferent() must block rather than race the
// collector (spec.md §4.1.3 step 7, §9 "BroadcastForSlowPath").
func (rp *ReferenceProcessor) WaitForSlowPath() {
	rp.mu.Lock()
	defer rp.mu.Unlock()
	rp.slowPathWaiters++
	rp.cond.Wait()
	rp.slowPathWaiters--
}

func (rp *ReferenceProcessor) BroadcastForSlowPath() {
	rp.mu.Lock()
	defer rp.mu.Unlock()
	rp.cond.Broadcast()
}
