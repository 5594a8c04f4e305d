package gc

import "github.com/mihalyid/art/heap"

// ImmuneSpaces is the registry named in spec.md §3: the set of spaces
// that are never evacuated (at minimum, boot image and zygote). The
// core only ever needs to know which region indices are immune and walk
// their objects; heap.Space already tags individual objects as immune
// at allocation time, so this type is a thin, named handle around the
// region indices for BindBitmaps/diagnostics to report against.
type ImmuneSpaces struct {
	regions []int
}

func NewImmuneSpaces() *ImmuneSpaces { return &ImmuneSpaces{} }

func (i *ImmuneSpaces) Reset() { i.regions = i.regions[:0] }

func (i *ImmuneSpaces) Add(regionIdx int) { i.regions = append(i.regions, regionIdx) }

func (i *ImmuneSpaces) Regions() []int { return i.regions }

// VisitObjects walks every object tagged immune in s that lives in one
// of this registry's regions, for the unconditional immune-space scan
// in MarkingPhase step 1.
func (i *ImmuneSpaces) VisitObjects(s *heap.Space, visit func(heap.Ptr)) {
	for _, p := range s.ObjectsInRegions(i.regions) {
		visit(p)
	}
}
