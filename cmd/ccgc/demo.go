package main

import (
	"github.com/mihalyid/art/heap"
)

// demoRoots is the toy root set the CLI drives through the collector:
// one slot per root reference, rewritten in place whenever the
// collector's mark function moves what it points at.
type demoRoots struct {
	roots []heap.Ptr
}

func (d *demoRoots) VisitRoots(mark func(heap.Ptr) heap.Ptr) {
	for i, p := range d.roots {
		d.roots[i] = mark(p)
	}
}

// buildDemoHeap lays out a small object graph exercising every region
// kind spec.md's data model names: an immune object that never moves, a
// small object graph in the working region that becomes from-space at
// the next flip, a non-moving allocation, and one large object.
func buildDemoHeap(s *heap.Space) (roots []heap.Ptr, workRegion int) {
	immuneIdx := s.AddRegion(heap.RegionImmune)
	workIdx := s.AddRegion(heap.RegionToSpace)

	leafClass := &heap.ClassInfo{Name: "Leaf", Size: 16}
	nodeClass := &heap.ClassInfo{Name: "Node", Size: 24, RefOffsets: []uintptr{8}}
	byteArrayClass := &heap.ClassInfo{Name: "byte[]", Size: 64 * 1024}

	leaf := &heap.Object{Class: leafClass, Fields: map[uintptr]heap.Ptr{}}
	leafPtr := s.Alloc(workIdx, leaf)

	node := &heap.Object{Class: nodeClass, Fields: map[uintptr]heap.Ptr{8: leafPtr}}
	nodePtr := s.Alloc(workIdx, node)

	immuneObj := &heap.Object{Class: leafClass, Fields: map[uintptr]heap.Ptr{}}
	immunePtr := s.Alloc(immuneIdx, immuneObj)

	nonMovingObj := &heap.Object{Class: leafClass, Fields: map[uintptr]heap.Ptr{}}
	nonMovingPtr := s.AllocNonMoving(nonMovingObj)

	largeObj := &heap.Object{Class: byteArrayClass, Fields: map[uintptr]heap.Ptr{}}
	largePtr := s.AllocLarge(largeObj)

	return []heap.Ptr{nodePtr, immunePtr, nonMovingPtr, largePtr}, workIdx
}
