package gc

import (
	"testing"

	"github.com/mihalyid/art/heap"
)

func TestImmuneSpacesAddResetRegions(t *testing.T) {
	i := NewImmuneSpaces()
	i.Add(3)
	i.Add(7)
	if got := i.Regions(); len(got) != 2 || got[0] != 3 || got[1] != 7 {
		t.Fatalf("Regions() = %v, want [3 7]", got)
	}
	i.Reset()
	if len(i.Regions()) != 0 {
		t.Fatal("Reset must clear the region list")
	}
}

func TestImmuneSpacesVisitObjectsWalksRegisteredRegionsOnly(t *testing.T) {
	s := heap.NewSpace()
	immuneIdx := s.AddRegion(heap.RegionImmune)
	workIdx := s.AddRegion(heap.RegionToSpace)
	leaf := &heap.ClassInfo{Name: "Leaf", Size: 16}
	immuneObj := s.Alloc(immuneIdx, &heap.Object{Class: leaf, Fields: map[uintptr]heap.Ptr{}})
	s.Alloc(workIdx, &heap.Object{Class: leaf, Fields: map[uintptr]heap.Ptr{}})

	i := NewImmuneSpaces()
	i.Add(immuneIdx)

	var visited []heap.Ptr
	i.VisitObjects(s, func(p heap.Ptr) { visited = append(visited, p) })

	if len(visited) != 1 || visited[0] != immuneObj {
		t.Fatalf("VisitObjects = %v, want only the immune object %v", visited, immuneObj)
	}
}
