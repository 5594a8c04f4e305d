package gc

import (
	"sync"

	"github.com/mihalyid/art/heap"
)

// Scanner is the field/root visitor from spec.md §4.6: for every
// reference field on an object, it calls Marker.Mark and CAS-updates the
// slot to the returned to-space pointer, leaving a concurrent mutator
// write alone if the CAS loses (spec.md §8 S5).
type Scanner struct {
	classifier Classifier
	marker     *Marker
	refProc    *heap.ReferenceProcessor
	cfg        Config

	scanMu   sync.Mutex
	scanning map[heap.Ptr]bool
}

func NewScanner(classifier Classifier, marker *Marker, refProc *heap.ReferenceProcessor, cfg Config) *Scanner {
	return &Scanner{
		classifier: classifier, marker: marker, refProc: refProc, cfg: cfg,
		scanning: make(map[heap.Ptr]bool),
	}
}

// ScanObject visits every reference field of obj (per its class layout)
// and, for java.lang.ref holders, delegates the referent field to
// ScanReference instead of scanning it like an ordinary field. Once
// every field is visited the object completes the color law (spec.md §8
// property 8, invariant 3): a GRAY object that reaches the end of its
// own scan CASes back to WHITE. Objects that were never grayed (the
// unconditional immune-space walk in MarkingPhase step 1) simply fail
// that CAS and stay WHITE.
//
// When Config.DisallowReadBarrierDuringScan is set, entering a scan for
// ref that's already mid-scan aborts instead of silently double-visiting
// its fields, the equivalent of ART bracketing Scan with
// ModifyDebugDisallowReadBarrier to catch an accidental barriered read
// sneaking into the unbarriered field walk.
func (s *Scanner) ScanObject(thread *heap.Thread, isGCThread bool, ref heap.Ptr) {
	obj := s.classifier.Object(ref)
	if obj == nil {
		return
	}
	if s.cfg.DisallowReadBarrierDuringScan {
		s.enterScan(ref)
		defer s.exitScan(ref)
	}
	if obj.Class.IsReferenceHolder {
		s.ScanReference(thread, isGCThread, obj)
	}
	for _, off := range obj.Class.RefOffsets {
		if obj.Class.IsReferenceHolder && off == obj.Class.ReferentOffset {
			continue
		}
		s.scanField(thread, isGCThread, obj, off)
	}
	obj.RB.CAS(heap.Gray, heap.White)
}

func (s *Scanner) enterScan(ref heap.Ptr) {
	s.scanMu.Lock()
	defer s.scanMu.Unlock()
	if s.scanning[ref] {
		fatalf("read-barrier-during-scan", "", "object %v scanned while already mid-scan", ref)
	}
	s.scanning[ref] = true
}

func (s *Scanner) exitScan(ref heap.Ptr) {
	s.scanMu.Lock()
	defer s.scanMu.Unlock()
	delete(s.scanning, ref)
}

// scanField implements spec.md §4.6 steps 1-3 on a single slot: read
// without a barrier, mark, then CAS the slot. A failed CAS means a
// mutator wrote a new value in between; that write is left intact and
// is not retried (spec.md §8 S5).
func (s *Scanner) scanField(thread *heap.Thread, isGCThread bool, obj *heap.Object, offset uintptr) {
	current := obj.ReadField(offset)
	toRef := s.marker.Mark(thread, isGCThread, current)
	if toRef == current {
		return
	}
	obj.CASFieldPtr(offset, current, toRef)
}

// ScanReference walks a java.lang.ref holder: the referent is left for
// DelayReferenceReferent rather than marked as an ordinary field,
// matching spec.md §4.6's "delegated to the external reference
// processor". The holder itself is not kept gray: ScanObject whitens it
// like any other object once its scan ends. ScanObject
// calls this in place of an ordinary field scan for the referent slot;
// obj.Ref is nil for a reference holder that was never registered with
// the processor, in which case there is nothing to delay.
func (s *Scanner) ScanReference(thread *heap.Thread, isGCThread bool, obj *heap.Object) {
	r := obj.Ref
	if r == nil {
		return
	}
	s.refProc.DelayReferenceReferent(r, func(p heap.Ptr) heap.Ptr {
		return s.marker.Mark(thread, isGCThread, p)
	})
	obj.WriteField(obj.Class.ReferentOffset, r.Referent)
}
