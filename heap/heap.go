// Package heap simulates the region-based heap and the other external
// collaborators that the concurrent copying collector in package gc is
// written against: region space, immune spaces, the thread list, card
// and mod-union tables, and a reference processor stub. None of this is
// part of the collector core; it exists so the core has something real
// to drive.
package heap

import (
	"fmt"
	"sort"
	"sync"
)

// Ptr is a simulated object address. The zero value is the null pointer.
type Ptr uint64

func (p Ptr) IsNull() bool { return p == 0 }

// RegionType classifies a region (or, transitively, any pointer that
// falls inside one) at a given instant.
type RegionType uint8

const (
	RegionFree RegionType = iota
	RegionToSpace
	RegionFromSpace
	RegionUnevacFromSpace
	RegionImmune
	RegionNonMoving
	RegionLargeObject
)

func (t RegionType) String() string {
	switch t {
	case RegionFree:
		return "free"
	case RegionToSpace:
		return "to-space"
	case RegionFromSpace:
		return "from-space"
	case RegionUnevacFromSpace:
		return "unevac-from-space"
	case RegionImmune:
		return "immune"
	case RegionNonMoving:
		return "non-moving"
	case RegionLargeObject:
		return "large-object"
	default:
		return "unknown"
	}
}

// ClassInfo describes enough about an object's class for the collector
// to copy and scan it without a real VM: its size and the byte offsets
// of its reference-typed fields. Every object handed to Space needs a
// non-nil Class: allocation, copying and scanning read it unchecked.
type ClassInfo struct {
	Name           string
	Size           uintptr
	RefOffsets     []uintptr // offsets of object-typed fields, in bytes
	IsPrimArray    bool      // true for the dummy int[] filler class
	ElemSize       uintptr   // element size, for array classes
	HeaderSize     uintptr   // array header size, for array classes
	IsObjectHeader bool      // true for the root java.lang.Object-equivalent class

	// IsReferenceHolder marks a java.lang.ref.{Soft,Weak,Phantom}Reference
	// or FinalizerReference class. ReferentOffset names which entry of
	// RefOffsets is the referent slot; the scanner delegates that slot to
	// the reference processor instead of scanning it like an ordinary field.
	IsReferenceHolder bool
	ReferentOffset    uintptr
}

// Object is a heap cell. LockWord and RBWord carry the forwarding state
// and Baker color respectively; see heap/lockword.go for their semantics.
// Fields mirror the class layout named by Class.RefOffsets. Ref is set
// for instances of an IsReferenceHolder class and links the cell to the
// registered *Reference the reference processor tracks separately from
// the object graph.
type Object struct {
	mu     sync.Mutex
	Class  *ClassInfo
	Fields map[uintptr]Ptr // offset -> reference value
	Length int             // for array fillers

	Lock LockWord
	RB   RBWord
	Ref  *Reference
}

// Region is a fixed-size slice of the address space.
type Region struct {
	Index int
	Type  RegionType
	Live  uintptr // AddLiveBytes accounting, unevac regions only
	mem   *regionMemory
}

const (
	RegionAlignment = 1 << 16 // 64 KiB, the region (slab) size
	ObjectAlignment = 8       // per-object rounding within a region ("region_alignment" in spec.md Invariant 6)
	MinObjectSize   = 16
)

// Space is the heap: a table of simulated objects plus region metadata.
// It implements the interfaces package gc consumes (see gc/allocator.go).
type Space struct {
	mu      sync.Mutex
	objects map[Ptr]*Object
	next    Ptr
	regions []*Region
	ptrRegion map[Ptr]int // ptr -> region index, for O(1) GetRegionType

	immune map[Ptr]bool // objects living in an immune space

	fromSpaceSet bool

	nonMoving map[Ptr]bool // objects allocated in non-moving space
	largeObjs map[Ptr]bool

	Bitmaps       MarkBitmapKind
	UnevacBitmap  *MarkBitmap

	allocStack []Ptr
	liveStack  []Ptr
}

func NewSpace() *Space {
	return &Space{
		objects:   make(map[Ptr]*Object),
		ptrRegion: make(map[Ptr]int),
		immune:    make(map[Ptr]bool),
		nonMoving: make(map[Ptr]bool),
		largeObjs: make(map[Ptr]bool),
		Bitmaps: MarkBitmapKind{
			Continuous:  NewMarkBitmap(),
			LargeObject: NewMarkBitmap(),
		},
		UnevacBitmap: NewMarkBitmap(),
		next:         0x1000,
	}
}

// AllocNonMoving places obj outside any region, in the non-moving
// space. Objects here are never evacuated; MarkNonMoving (gc package)
// marks them, and the gc Copier sets the bit of a copy it places here
// as its last-resort fallback.
func (s *Space) AllocNonMoving(obj *Object) Ptr {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.next
	s.next += Ptr(alignUp(obj.Class.Size, 8))
	s.objects[p] = obj
	s.nonMoving[p] = true
	return p
}

func (s *Space) FreeNonMoving(p Ptr) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, p)
	delete(s.nonMoving, p)
	s.Bitmaps.Continuous.Clear(p)
}

// AllocLarge places obj in the large-object space, tracked separately
// from region-space bump allocation per spec.md's RegionType taxonomy.
func (s *Space) AllocLarge(obj *Object) Ptr {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.next
	s.next += Ptr(alignUp(obj.Class.Size, 8))
	s.objects[p] = obj
	s.largeObjs[p] = true
	return p
}

// FreeLarge implements RegionSpace::FreeLarge (spec.md §6): used by the
// Copier when a copy that raced and lost was allocated in a
// large-enough-to-be-LOS-classified to-space block. In this simulation
// large-object frees just drop the bookkeeping entry.
func (s *Space) FreeLarge(p Ptr, bytes uintptr) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, p)
	delete(s.largeObjs, p)
	s.Bitmaps.LargeObject.Clear(p)
}

func (s *Space) IsLarge(p Ptr) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.largeObjs[p]
}

func (s *Space) IsNonMoving(p Ptr) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nonMoving[p]
}

// PushAllocationStack records a freshly allocated object on the shared
// allocation stack (mirrors Heap::allocation_stack_, written to by
// mutators between flips).
func (s *Space) PushAllocationStack(p Ptr) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.allocStack = append(s.allocStack, p)
}

func (s *Space) IsOnAllocationStack(p Ptr) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, q := range s.allocStack {
		if q == p {
			return true
		}
	}
	return false
}

// SwapAllocAndLiveStacks implements the FlipCallback step "swaps the
// allocation/live stacks" (spec.md §4.1.2) and returns the size of the
// stack that becomes the live stack, for from_space_num_objects_at_first_pause-style bookkeeping.
func (s *Space) SwapAllocAndLiveStacks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.allocStack, s.liveStack = s.liveStack, s.allocStack
	s.allocStack = s.allocStack[:0]
	return len(s.liveStack)
}

// AddRegion appends a region of the given initial type and returns its index.
// The region is backed by a real anonymous mapping (see regionmem.go) so
// ClearFromSpace has OS memory to actually give back.
func (s *Space) AddRegion(t RegionType) int {
	mem, err := mapRegion()
	if err != nil {
		// Region allocation failures are handled the way non-moving-space
		// OOM is (spec.md §7): fatal, not a recoverable error.
		panic(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r := &Region{Index: len(s.regions), Type: t, mem: mem}
	s.regions = append(s.regions, r)
	return r.Index
}

// Alloc places obj in the given region and returns its address. It is the
// simulation's stand-in for bump-pointer allocation: real ART regions bump
// a pointer inside a contiguous mmap; here every object gets a fresh Ptr
// and is tagged with the region it "lives in" for classification.
func (s *Space) Alloc(regionIdx int, obj *Object) Ptr {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.next
	s.next += Ptr(alignUp(obj.Class.Size, 8))
	s.objects[p] = obj
	s.ptrRegion[p] = regionIdx
	if s.regions[regionIdx].Type == RegionImmune {
		s.immune[p] = true
	}
	return p
}

func alignUp(v uintptr, a uintptr) uintptr {
	return (v + a - 1) &^ (a - 1)
}

// ReadField reads a field without a read barrier (spec.md §4.6 step 1).
func (o *Object) ReadField(offset uintptr) Ptr {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.Fields[offset]
}

// CASFieldPtr implements the slot update in spec.md §4.6 step 3: it only
// writes newVal if the field still holds old, exactly like a real
// compare-and-swap on the slot. Returning false means a concurrent
// mutator write raced ahead of the Scanner; the caller must leave it be.
func (o *Object) CASFieldPtr(offset uintptr, old, newVal Ptr) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.Fields[offset] != old {
		return false
	}
	o.Fields[offset] = newVal
	return true
}

// WriteField is an ordinary mutator write, used by tests to simulate a
// racing write between a Scanner's Read and its CAS (spec.md §8 S5).
func (o *Object) WriteField(offset uintptr, v Ptr) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Fields[offset] = v
}

func (s *Space) Object(p Ptr) *Object {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.objects[p]
}

// Overwrite replaces the content of an existing to-space slot with a
// fresh class/fields/length triple, without changing its address. This
// is how a reused SkippedBlockMap entry (or a dummy-object fill over a
// lost copy race) gets its bytes installed: the slot already exists,
// only its contents change, the way a real memcpy into an
// already-mapped address would.
func (s *Space) Overwrite(p Ptr, class *ClassInfo, fields map[uintptr]Ptr, length int) {
	f := make(map[uintptr]Ptr, len(fields))
	for k, v := range fields {
		f[k] = v
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	obj := s.objects[p]
	if obj == nil {
		obj = &Object{}
		s.objects[p] = obj
	}
	obj.Class = class
	obj.Fields = f
	obj.Length = length
	obj.Lock = LockWord{}
	obj.RB = RBWord{}
}

// GetRegionType is the O(1) classification spec.md §4.2 step 1 calls for.
func (s *Space) GetRegionType(p Ptr) RegionType {
	if p.IsNull() {
		return RegionFree
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.ptrRegion[p]
	if !ok {
		return RegionNonMoving
	}
	return s.regions[idx].Type
}

func (s *Space) RegionOf(p Ptr) *Region {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.ptrRegion[p]
	if !ok {
		return nil
	}
	return s.regions[idx]
}

// SetFromSpace flips the from/to designation: every ToSpace region,
// empty or not, becomes FromSpace, except that when forceEvacuateAll is
// false the regions listed in unevac become UnevacFromSpace instead.
// Regions of any other type are left as they are.
func (s *Space) SetFromSpace(forceEvacuateAll bool, unevac map[int]bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.regions {
		if r.Type != RegionToSpace {
			continue
		}
		if unevac[r.Index] && !forceEvacuateAll {
			r.Type = RegionUnevacFromSpace
		} else {
			r.Type = RegionFromSpace
		}
	}
	s.fromSpaceSet = true
}

// ClearFromSpace releases every from-space region back to Free, per
// spec.md §4.1.4. Objects that still live there become unreachable; the
// simulation just drops them from the table.
func (s *Space) ClearFromSpace() (freedObjects int, freedBytes uintptr) {
	s.mu.Lock()
	defer s.mu.Unlock()
	freeRegions := make(map[int]bool)
	for _, r := range s.regions {
		if r.Type == RegionFromSpace {
			r.Type = RegionFree
			r.Live = 0
			freeRegions[r.Index] = true
			if err := r.mem.release(); err != nil {
				panic(err)
			}
			if mem, err := mapRegion(); err == nil {
				r.mem = mem
			}
		}
	}
	for p, idx := range s.ptrRegion {
		if freeRegions[idx] {
			obj := s.objects[p]
			if obj != nil {
				freedObjects++
				freedBytes += obj.Class.Size
			}
			delete(s.objects, p)
			delete(s.ptrRegion, p)
		}
	}
	s.fromSpaceSet = false
	return freedObjects, freedBytes
}

// AddLiveBytes implements the unevac live-bytes invariant (spec.md
// Invariant 5): scanned unevac objects contribute their allocation size
// toward the region's live total.
func (s *Space) AddLiveBytes(p Ptr, size uintptr) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.ptrRegion[p]
	if !ok {
		return
	}
	s.regions[idx].Live += size
}

// ReplaceRef rewrites every field across the whole object table pointing
// at "from" to point at "to" instead. Real ART rewrites via the Scanner
// CAS-ing individual slots as it walks reachable objects; neither the
// collector nor FreeLarge/ClearFromSpace calls this helper.
func (s *Space) ReplaceRef(from, to Ptr) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, obj := range s.objects {
		obj.mu.Lock()
		for off, v := range obj.Fields {
			if v == from {
				obj.Fields[off] = to
			}
		}
		obj.mu.Unlock()
	}
}

// ObjectsInRegions returns every live object address currently tagged
// with one of the given region indices, for immune-space walks and
// region-space sweeps.
func (s *Space) ObjectsInRegions(indices []int) []Ptr {
	want := make(map[int]bool, len(indices))
	for _, idx := range indices {
		want[idx] = true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Ptr
	for p, idx := range s.ptrRegion {
		if want[idx] {
			out = append(out, p)
		}
	}
	return out
}

// ObjectsInRegion is ObjectsInRegions for a single region.
func (s *Space) ObjectsInRegion(idx int) []Ptr {
	return s.ObjectsInRegions([]int{idx})
}

// AllRegions returns a snapshot of region state for diagnostics/tests.
func (s *Space) AllRegions() []Region {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Region, len(s.regions))
	for i, r := range s.regions {
		out[i] = *r
	}
	return out
}

// NonMovingPtrs returns every address currently allocated in the
// non-moving space, for ReclaimPhase's sweep of unmarked non-moving
// objects (spec.md §4.1.4).
func (s *Space) NonMovingPtrs() []Ptr {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Ptr, 0, len(s.nonMoving))
	for p := range s.nonMoving {
		out = append(out, p)
	}
	return out
}

// LargePtrs returns every address currently allocated in the
// large-object space, for ReclaimPhase's sweep of unmarked large
// objects (spec.md §4.1.4).
func (s *Space) LargePtrs() []Ptr {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Ptr, 0, len(s.largeObjs))
	for p := range s.largeObjs {
		out = append(out, p)
	}
	return out
}

func (s *Space) IsImmune(p Ptr) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.immune[p]
}

// DumpMaps renders a /proc/self/maps-style listing of non-free regions,
// used by invariant-violation diagnostics (spec.md §7).
func (s *Space) DumpMaps() string {
	regions := s.AllRegions()
	sort.Slice(regions, func(i, j int) bool { return regions[i].Index < regions[j].Index })
	var out string
	for _, r := range regions {
		if r.Type == RegionFree {
			continue
		}
		out += fmt.Sprintf("region[%04d] %-18s live=%d\n", r.Index, r.Type, r.Live)
	}
	return out
}
