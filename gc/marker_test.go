package gc

import (
	"testing"

	"github.com/mihalyid/art/heap"
)

// TestMarkImmuneGraysWhenEnabled is scenario S4: an immune object is
// only grayed (and queued for whitening) while gc_grays_immune_objects_
// is set; its address never changes either way.
func TestMarkImmuneGraysWhenEnabled(t *testing.T) {
	c, s := newTestCollector(t)
	immuneIdx := s.AddRegion(heap.RegionImmune)
	class := &heap.ClassInfo{Name: "Leaf", Size: 16}
	p := s.Alloc(immuneIdx, &heap.Object{Class: class, Fields: map[uintptr]heap.Ptr{}})

	c.marker.SetGrayImmuneObjects(true)
	got := c.marker.Mark(nil, true, p)
	if got != p {
		t.Fatalf("immune objects never move: Mark returned %v, want %v", got, p)
	}
	if s.Object(p).RB.Color() != heap.Gray {
		t.Fatal("immune object should be Gray once grayed")
	}
	if c.markStack.ImmuneGrayEmpty() {
		t.Fatal("graying an immune object must push it onto the immune-gray stack")
	}
}

func TestMarkImmuneStaysWhiteWhenGrayingDisabled(t *testing.T) {
	c, s := newTestCollector(t)
	immuneIdx := s.AddRegion(heap.RegionImmune)
	class := &heap.ClassInfo{Name: "Leaf", Size: 16}
	p := s.Alloc(immuneIdx, &heap.Object{Class: class, Fields: map[uintptr]heap.Ptr{}})

	c.marker.SetGrayImmuneObjects(false)
	c.marker.Mark(nil, true, p)
	if s.Object(p).RB.Color() != heap.White {
		t.Fatal("immune graying disabled: object must stay White")
	}
}

// TestMarkNonMovingFalseGrayOrdering exercises the exact sequencing
// spec.md calls out: CAS white->gray happens before the bitmap
// AtomicTestAndSet, so a thread that grays the object but loses the
// bitmap race must push it onto the false-gray stack instead of the
// mark stack.
func TestMarkNonMovingFalseGrayOrdering(t *testing.T) {
	c, s := newTestCollector(t)
	class := &heap.ClassInfo{Name: "Leaf", Size: 16}
	obj := &heap.Object{Class: class, Fields: map[uintptr]heap.Ptr{}}
	p := s.AllocNonMoving(obj)

	// Simulate another thread winning the bitmap race after this caller's
	// initial bitmap Test but before its CAS/AtomicTestAndSet sequence.
	c.marker.classifier = &bitmapRaceClassifier{
		Classifier: c.marker.classifier,
		race:       func(p heap.Ptr) { s.Bitmaps.Continuous.AtomicTestAndSet(p) },
	}

	c.marker.MarkNonMoving(nil, true, p)

	if obj.RB.Color() != heap.Gray {
		t.Fatal("this caller still wins the CAS race and grays the object before checking the bitmap")
	}
	falseGray := c.markStack.DrainFalseGray()
	if len(falseGray) != 1 || falseGray[0] != p {
		t.Fatalf("false-gray stack = %v, want [%v]", falseGray, p)
	}
	if !c.markStack.Empty() {
		t.Fatal("a false-gray object must not also land on the ordinary mark stack")
	}
}

// bitmapRaceClassifier runs race once, from IsOnAllocationStack, which
// MarkNonMoving consults after its bitmap Test and before its CAS.
type bitmapRaceClassifier struct {
	Classifier
	race func(heap.Ptr)
}

func (r *bitmapRaceClassifier) IsOnAllocationStack(p heap.Ptr) bool {
	if r.race != nil {
		r.race(p)
		r.race = nil
	}
	return r.Classifier.IsOnAllocationStack(p)
}

func TestMarkNonMovingFirstMarkPushesStack(t *testing.T) {
	c, s := newTestCollector(t)
	class := &heap.ClassInfo{Name: "Leaf", Size: 16}
	p := s.AllocNonMoving(&heap.Object{Class: class, Fields: map[uintptr]heap.Ptr{}})

	c.markStack.SetMode(StackGcExclusive)
	c.marker.MarkNonMoving(nil, true, p)

	if !s.Bitmaps.Continuous.Test(p) {
		t.Fatal("MarkNonMoving must set the continuous bitmap on first mark")
	}
	if len(c.markStack.DrainGC()) != 1 {
		t.Fatal("a fresh mark must be pushed onto the mark stack")
	}
}
