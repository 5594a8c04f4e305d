package gc

import (
	"fmt"

	"github.com/mihalyid/art/heap"
)

// Verifier implements spec.md §4.1 "optional from-space-ref
// verification pause" and the debug checks named throughout §7/§8: the
// to-space invariant and the no-from-space-ref sweep. It is never run on
// the hot path; PhaseMachine only calls it when
// EnableNoFromSpaceRefsVerification is set.
type Verifier struct {
	s          *heap.Space
	classifier Classifier
}

func NewVerifier(s *heap.Space, classifier Classifier) *Verifier {
	return &Verifier{s: s, classifier: classifier}
}

// VerifyNoFromSpaceRefs implements spec.md §8 property 1: after
// MarkingPhase, no reachable object field may still point into
// from-space. roots supplies every root pointer (thread roots plus any
// other GC-root source); the verifier walks outward from there so it
// doesn't depend on the collector's own bookkeeping being correct.
func (v *Verifier) VerifyNoFromSpaceRefs(roots []heap.Ptr) {
	seen := make(map[heap.Ptr]bool)
	var stack []heap.Ptr
	stack = append(stack, roots...)

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if p.IsNull() || seen[p] {
			continue
		}
		seen[p] = true

		if v.classifier.GetRegionType(p) == heap.RegionFromSpace {
			fatalf("from-space-reference-survived", v.dump(p), "reachable object %v still in from-space", p)
		}

		obj := v.classifier.Object(p)
		if obj == nil {
			continue
		}
		for _, off := range obj.Class.RefOffsets {
			if child := obj.ReadField(off); !child.IsNull() {
				stack = append(stack, child)
			}
		}
	}
}

// VerifyColorLaw implements spec.md §8 property 8: no object may remain
// GRAY once MarkingPhase has returned.
func (v *Verifier) VerifyColorLaw(all []heap.Ptr) {
	for _, p := range all {
		obj := v.classifier.Object(p)
		if obj != nil && obj.RB.Color() == heap.Gray {
			fatalf("color-law", v.dump(p), "object %v still GRAY after MarkingPhase", p)
		}
	}
}

// dump renders the diagnostic payload spec.md §7 requires: the
// offending reference's region classification, rb-word, and the
// non-free region map.
func (v *Verifier) dump(p heap.Ptr) string {
	obj := v.classifier.Object(p)
	region := v.classifier.GetRegionType(p)
	var class string
	if obj != nil {
		class = obj.Class.Name
		return fmt.Sprintf("ref=%v class=%q region=%s rb=%v\n%s", p, class, region, obj.RB.Color(), v.s.DumpMaps())
	}
	return fmt.Sprintf("ref=%v region=%s (no object record)\n%s", p, region, v.s.DumpMaps())
}
