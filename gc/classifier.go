package gc

import "github.com/mihalyid/art/heap"

// spaceClassifier adapts *heap.Space to Classifier.
type spaceClassifier struct {
	s *heap.Space
}

func (c *spaceClassifier) GetRegionType(p heap.Ptr) heap.RegionType { return c.s.GetRegionType(p) }
func (c *spaceClassifier) IsImmune(p heap.Ptr) bool                 { return c.s.IsImmune(p) }
func (c *spaceClassifier) IsLarge(p heap.Ptr) bool                  { return c.s.IsLarge(p) }
func (c *spaceClassifier) AddLiveBytes(p heap.Ptr, size uintptr)    { c.s.AddLiveBytes(p, size) }
func (c *spaceClassifier) Object(p heap.Ptr) *heap.Object           { return c.s.Object(p) }
func (c *spaceClassifier) IsOnAllocationStack(p heap.Ptr) bool      { return c.s.IsOnAllocationStack(p) }

// BitmapFor returns the continuous-space or large-object bitmap per
// spec.md §9's "polymorphic bitmap dispatch" sum type.
func (c *spaceClassifier) BitmapFor(p heap.Ptr) *heap.MarkBitmap {
	return c.s.Bitmaps.For(c.s.IsLarge(p))
}
