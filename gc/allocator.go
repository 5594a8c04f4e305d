package gc

import "github.com/mihalyid/art/heap"

// Allocator is the narrow seam the Copier allocates through (spec.md §9
// "Allocator abstraction"). Region-space classification is a read-only
// trait and lives on Classifier instead, so Copier never needs to know
// about anything but these allocation primitives.
//
// Alloc* take the class and field snapshot to install directly, standing
// in for "memcpy the object bytes into the new slot": this simulation
// has no raw byte buffer to copy, so copying the field map *is* the
// memcpy.
type Allocator interface {
	TryAllocRegion(class *heap.ClassInfo, fields map[uintptr]heap.Ptr, length int) (heap.Ptr, bool)
	AllocNonMoving(class *heap.ClassInfo, fields map[uintptr]heap.Ptr, length int) heap.Ptr
	FreeLarge(p heap.Ptr, bytes uintptr)
	FreeNonMoving(p heap.Ptr)
	// InstallAt overwrites an already-allocated to-space slot — used both
	// to reuse a SkippedBlockMap entry and to fill a lost copy race with
	// a dummy object in place.
	InstallAt(p heap.Ptr, class *heap.ClassInfo, fields map[uintptr]heap.Ptr, length int)
}

// Classifier answers the region-type question Mark dispatches on, plus
// the bookkeeping questions Copy and MarkNonMoving need.
type Classifier interface {
	GetRegionType(p heap.Ptr) heap.RegionType
	IsImmune(p heap.Ptr) bool
	IsLarge(p heap.Ptr) bool
	AddLiveBytes(p heap.Ptr, size uintptr)
	Object(p heap.Ptr) *heap.Object
	BitmapFor(p heap.Ptr) *heap.MarkBitmap
	IsOnAllocationStack(p heap.Ptr) bool
}

// spaceAllocator adapts *heap.Space to Allocator. toRegion picks which
// to-space region a fresh copy lands in; the simulation always has room
// (AddRegion never fails), so TryAllocRegion only reports false if
// toRegion itself reports no region is available.
type spaceAllocator struct {
	s        *heap.Space
	toRegion func() int
}

func newObject(class *heap.ClassInfo, fields map[uintptr]heap.Ptr, length int) *heap.Object {
	f := make(map[uintptr]heap.Ptr, len(fields))
	for k, v := range fields {
		f[k] = v
	}
	return &heap.Object{Class: class, Fields: f, Length: length}
}

func (a *spaceAllocator) TryAllocRegion(class *heap.ClassInfo, fields map[uintptr]heap.Ptr, length int) (heap.Ptr, bool) {
	idx := a.toRegion()
	if idx < 0 {
		return 0, false
	}
	return a.s.Alloc(idx, newObject(class, fields, length)), true
}

func (a *spaceAllocator) AllocNonMoving(class *heap.ClassInfo, fields map[uintptr]heap.Ptr, length int) heap.Ptr {
	return a.s.AllocNonMoving(newObject(class, fields, length))
}

func (a *spaceAllocator) FreeLarge(p heap.Ptr, bytes uintptr) { a.s.FreeLarge(p, bytes) }
func (a *spaceAllocator) FreeNonMoving(p heap.Ptr)            { a.s.FreeNonMoving(p) }

func (a *spaceAllocator) InstallAt(p heap.Ptr, class *heap.ClassInfo, fields map[uintptr]heap.Ptr, length int) {
	a.s.Overwrite(p, class, fields, length)
}
