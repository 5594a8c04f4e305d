package gc

import (
	"testing"

	"github.com/mihalyid/art/heap"
)

func TestVerifyNoFromSpaceRefsPassesOnCleanGraph(t *testing.T) {
	c, s := newTestCollector(t)
	workIdx := s.AddRegion(heap.RegionToSpace)
	leaf := &heap.ClassInfo{Name: "Leaf", Size: 16}
	root := s.Alloc(workIdx, &heap.Object{Class: leaf, Fields: map[uintptr]heap.Ptr{}})

	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("verification of an all-to-space graph must not panic, got %v", r)
		}
	}()
	c.verifier.VerifyNoFromSpaceRefs([]heap.Ptr{root})
}

func TestVerifyNoFromSpaceRefsCatchesSurvivor(t *testing.T) {
	c, s := newTestCollector(t)
	workIdx := s.AddRegion(heap.RegionToSpace)
	leaf := &heap.ClassInfo{Name: "Leaf", Size: 16}
	root := s.Alloc(workIdx, &heap.Object{Class: leaf, Fields: map[uintptr]heap.Ptr{}})
	flipToFromSpace(c, s, workIdx) // root is now a from-space survivor, never copied

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected a panic for a reachable from-space reference")
		}
		if _, ok := r.(*FatalError); !ok {
			t.Fatalf("expected *FatalError, got %T", r)
		}
	}()
	c.verifier.VerifyNoFromSpaceRefs([]heap.Ptr{root})
}

func TestVerifyColorLawCatchesStuckGray(t *testing.T) {
	c, s := newTestCollector(t)
	workIdx := s.AddRegion(heap.RegionToSpace)
	leaf := &heap.ClassInfo{Name: "Leaf", Size: 16}
	obj := &heap.Object{Class: leaf, Fields: map[uintptr]heap.Ptr{}}
	p := s.Alloc(workIdx, obj)
	obj.RB.Set(heap.Gray)

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected a panic for an object still GRAY after MarkingPhase")
		}
	}()
	c.verifier.VerifyColorLaw([]heap.Ptr{p})
}
