package gc

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/mihalyid/art/heap"
)

// RootSource lets a caller register GC roots the collector doesn't
// already know about through heap.Thread's per-thread visitor:
// concurrent roots (JNI globals, interned strings) and transaction roots
// (spec.md §4.1.2 "visits transaction roots if an AOT transaction is
// active"). Both are optional; a Collector with none registered simply
// visits thread roots.
type RootSource interface {
	VisitRoots(mark func(heap.Ptr) heap.Ptr)
}

// Collector is the PhaseMachine from spec.md §4.1: a single GC thread
// driving Initialize -> Flip -> Marking -> (optional verify) -> Reclaim
// -> Finish for each collection, coordinating with mutators only through
// checkpoints and the two stop-the-world pauses.
type Collector struct {
	cfg    Config
	log    Logger
	heap   *heap.Space
	threads *heap.ThreadList
	cardTable *heap.CardTable
	modUnion  *heap.ModUnionTable
	refProc   *heap.ReferenceProcessor
	immune    *ImmuneSpaces

	classifier *spaceClassifier
	allocator  *spaceAllocator
	markStack  *MarkStack
	skipped    *SkippedBlockMap
	copier     *Copier
	marker     *Marker
	scanner    *Scanner
	verifier   *Verifier
	stats      *Stats

	pauseMu sync.Mutex // held exclusively during the two STW pauses

	isMarking               atomic.Bool
	updatedAllImmuneObjects atomic.Bool
	toSpaceInvariantEnabled atomic.Bool

	toSpaceRegion int
	unevacRegions map[int]bool

	fromSpaceObjectsAtFirstPause int
	fromSpaceBytesAtFirstPause   uintptr

	concurrentRoots []RootSource

	clearSoftReferences bool
	cycles              uint64
}

// NewCollector wires every component above onto a shared heap.Space. Use
// AddMutator to register mutator threads before the first Collect call.
func NewCollector(cfg Config, s *heap.Space, log Logger) *Collector {
	if log == nil {
		log = nopLogger{}
	}
	c := &Collector{
		cfg: cfg, log: log, heap: s,
		threads:   heap.NewThreadList(),
		cardTable: heap.NewCardTable(),
		modUnion:  heap.NewModUnionTable(),
		refProc:   heap.NewReferenceProcessor(),
		immune:    NewImmuneSpaces(),
		skipped:   NewSkippedBlockMap(),
		stats:     NewStats(),
		toSpaceRegion: -1,
		unevacRegions: make(map[int]bool),
	}
	c.markStack = NewMarkStack(cfg)
	c.classifier = &spaceClassifier{s: s}
	c.allocator = &spaceAllocator{s: s, toRegion: func() int { return c.toSpaceRegion }}
	const largeObjectThreshold = 32 * 1024
	c.copier = NewCopier(c.allocator, c.classifier, c.skipped, c.markStack, s.Bitmaps.Continuous, c.stats, largeObjectThreshold)
	c.marker = NewMarker(c.classifier, c.copier, c.markStack, s.UnevacBitmap, cfg)
	c.scanner = NewScanner(c.classifier, c.marker, c.refProc, cfg)
	c.verifier = NewVerifier(s, c.classifier)
	return c
}

func (c *Collector) AddMutator(t *heap.Thread) { c.threads.Add(t) }
func (c *Collector) AddRootSource(r RootSource) { c.concurrentRoots = append(c.concurrentRoots, r) }
func (c *Collector) CardTable() *heap.CardTable { return c.cardTable }
func (c *Collector) ModUnionTable() *heap.ModUnionTable { return c.modUnion }
func (c *Collector) ReferenceProcessor() *heap.ReferenceProcessor { return c.refProc }
func (c *Collector) Heap() *heap.Space { return c.heap }
func (c *Collector) Stats() *Stats { return c.stats }
func (c *Collector) MarkObject(ref heap.Ptr) heap.Ptr { return c.marker.Mark(nil, true, ref) }
func (c *Collector) IsMarked(ref heap.Ptr) (heap.Ptr, bool) { return c.isMarked(ref) }

// MarkUnevacRegion designates a region as unevac-from-space rather than
// from-space when force_evacuate_all is false (spec.md §4.1.2's "every
// non-empty region or only the chosen set").
func (c *Collector) MarkUnevacRegion(idx int) { c.unevacRegions[idx] = true }

// Collect runs one full GC cycle end to end.
func (c *Collector) Collect(cause Cause) CycleSummary {
	durations := make(map[string]time.Duration)
	c.log.Phasef("collection #%d starting, cause=%s", c.cycles+1, cause)
	c.clearSoftReferences = cause.ClearsSoftReferences()

	forceEvacuateAll := c.initializePhase(cause, durations)
	c.flipThreadRoots(forceEvacuateAll, durations)
	c.markingPhase(durations)

	if c.cfg.EnableNoFromSpaceRefsVerification {
		c.verificationPause(durations)
	}

	freedObjects, freedBytes := c.reclaimPhase(durations)
	summary := c.finishPhase(cause, freedObjects, freedBytes, durations)

	c.cycles++
	c.log.Phasef("collection #%d done: %s", c.cycles, c.stats.DumpPerformanceInfo())
	return summary
}

// --- 4.1.1 InitializePhase ---

func (c *Collector) initializePhase(cause Cause, durations map[string]time.Duration) bool {
	defer NewScopedTimer(durations, "Initialize").Stop()

	c.stats.resetCycleCounters()
	c.immune.Reset()
	c.bindBitmaps()

	forceEvacuateAll := cause.ForcesEvacuateAll()

	if c.cfg.UseBakerReadBarrier {
		c.updatedAllImmuneObjects.Store(false)
		c.marker.SetGrayImmuneObjects(true)
		if !c.markStack.ImmuneGrayEmpty() {
			fatalf("immune-gray-stack-not-empty", "", "immune_gray_stack non-empty at Initialize")
		}
	}
	return forceEvacuateAll
}

// bindBitmaps classifies each continuous space, per spec.md: regions
// already carry their RegionType (set at AddRegion time by the test
// harness / CLI demo standing in for the heap's space partitioning), so
// BindBitmaps here just (re)builds the ImmuneSpaces registry. It does not
// touch the mark bitmaps; the previous cycle's ReclaimPhase/FinishPhase
// Swap calls already left them empty.
func (c *Collector) bindBitmaps() {
	for _, r := range c.heap.AllRegions() {
		if r.Type == heap.RegionImmune {
			c.immune.Add(r.Index)
		}
	}
}

// --- 4.1.2 FlipThreadRoots ---

func (c *Collector) flipThreadRoots(forceEvacuateAll bool, durations map[string]time.Duration) {
	defer NewScopedTimer(durations, "Flip").Stop()

	c.pauseMu.Lock()
	defer c.pauseMu.Unlock()

	c.threads.FlipThreadRoots(
		func(t *heap.Thread) {
			ThreadFlipVisitor(t, func(th *heap.Thread, p heap.Ptr) heap.Ptr {
				return c.marker.Mark(th, false, p)
			})
		},
		func() { c.flipCallback(forceEvacuateAll) },
	)

	c.toSpaceInvariantEnabled.Store(true)
}

func (c *Collector) flipCallback(forceEvacuateAll bool) {
	c.heap.SetFromSpace(forceEvacuateAll, c.unevacRegions)
	c.toSpaceRegion = c.heap.AddRegion(heap.RegionToSpace)

	c.heap.SwapAllocAndLiveStacks()

	c.isMarking.Store(true)
	c.markStack.SetMode(StackThreadLocal)
	c.markStack.SetPushDisallowed(false)

	for _, rs := range c.concurrentRoots {
		rs.VisitRoots(func(p heap.Ptr) heap.Ptr { return c.marker.Mark(nil, true, p) })
	}

	if c.cfg.UseBakerReadBarrier && c.cfg.GrayDirtyImmuneObjects {
		c.grayDirtyImmuneObjects()
	}
	c.updatedAllImmuneObjects.Store(true)

	if c.cfg.EnableFromSpaceAccountingCheck {
		c.fromSpaceObjectsAtFirstPause, c.fromSpaceBytesAtFirstPause = c.fromSpaceAccounting()
	}
}

// fromSpaceAccounting counts objects and total bytes still resident in
// from-space and unevac-from-space regions, for
// EnableFromSpaceAccountingCheck's flip-vs-reclaim consistency check
// (spec.md §6; mirrors kEnableFromSpaceAccountingCheck's
// GetObjectsAllocatedInFromSpace/GetBytesAllocatedInFromSpace pair).
func (c *Collector) fromSpaceAccounting() (objects int, bytes uintptr) {
	var idxs []int
	for _, r := range c.heap.AllRegions() {
		if r.Type == heap.RegionFromSpace || r.Type == heap.RegionUnevacFromSpace {
			idxs = append(idxs, r.Index)
		}
	}
	for _, p := range c.heap.ObjectsInRegions(idxs) {
		objects++
		if obj := c.classifier.Object(p); obj != nil {
			bytes += obj.Class.Size
		}
	}
	return objects, bytes
}

func (c *Collector) grayDirtyImmuneObjects() {
	immuneSet := make(map[heap.Ptr]bool)
	for _, p := range c.immune.regionsObjects(c.heap) {
		immuneSet[p] = true
	}
	visit := func(p heap.Ptr) {
		obj := c.classifier.Object(p)
		if obj != nil && obj.RB.CAS(heap.White, heap.Gray) {
			c.markStack.PushImmuneGray(p)
		}
	}
	c.modUnion.ClearCards(c.cardTable, immuneSet)
	c.modUnion.VisitObjects(visit)
	c.cardTable.Scan(immuneSet, visit)
}

// --- 4.1.3 MarkingPhase ---

func (c *Collector) markingPhase(durations map[string]time.Duration) {
	defer NewScopedTimer(durations, "Marking").Stop()

	// Step 1: scan immune spaces without graying.
	for _, p := range c.immune.regionsObjects(c.heap) {
		c.scanner.ScanObject(nil, true, p)
	}

	// Step 2: whiten mutator-grayed immune objects.
	EmptyCheckpoint(c.threads)
	for _, p := range c.markStack.DrainImmuneGray() {
		obj := c.classifier.Object(p)
		if obj != nil {
			obj.RB.CAS(heap.Gray, heap.White)
		}
	}

	// Step 3: visit concurrent and non-thread roots again (new ones may
	// have appeared since the flip, e.g. newly-interned strings).
	for _, rs := range c.concurrentRoots {
		rs.VisitRoots(func(p heap.Ptr) heap.Ptr { return c.marker.Mark(nil, true, p) })
	}

	// Step 4: drain the mark stack through all three modes.
	c.drainThreadLocal()
	c.drainShared()
	c.drainGcExclusive()

	// Step 5: reference processing.
	c.refProc.ProcessReferences(
		c.clearSoftReferences,
		c.isMarked,
		func(p heap.Ptr) heap.Ptr { return c.marker.Mark(nil, true, p) },
	)
	c.drainGcExclusive()

	// Step 6: sweep system weaks (external ClassLinker hook not modeled
	// beyond the no-op below) then drain once more.
	c.cleanupClassLoaders()
	c.drainGcExclusive()

	// Step 7: re-enable weak-ref access, wake slow-path waiters.
	EnableWeakRefAccessCheckpoint(c.threads)
	c.refProc.BroadcastForSlowPath()

	// Step 8 done above (cleanupClassLoaders).

	// Step 9: disable marking.
	c.isMarking.Store(false)
	DisableMarkingCheckpoint(c.threads)
	c.markStack.SetPushDisallowed(true)
	c.markStack.SetMode(StackOff)

	// Step 10: whiten any still-gray false-gray objects (Baker only).
	if c.cfg.UseBakerReadBarrier {
		for _, p := range c.markStack.DrainFalseGray() {
			obj := c.classifier.Object(p)
			if obj != nil {
				obj.RB.CAS(heap.Gray, heap.White)
			}
		}
	}
}

func (c *Collector) drainThreadLocal() {
	emptyStreak := 0
	for emptyStreak < 2 {
		n := RevokeThreadLocalMarkStackCheckpoint(c.threads, c.markStack, false)
		_ = n
		refs := c.markStack.DrainRevoked()
		refs = append(refs, c.markStack.DrainGC()...)
		if len(refs) == 0 {
			emptyStreak++
			continue
		}
		emptyStreak = 0
		for _, p := range refs {
			c.scanner.ScanObject(nil, true, p)
		}
	}
}

func (c *Collector) drainShared() {
	RevokeThreadLocalMarkStackCheckpoint(c.threads, c.markStack, true)
	c.markStack.SetMode(StackShared)
	c.drainGcExclusive()
}

func (c *Collector) drainGcExclusive() {
	if c.markStack.Mode() != StackGcExclusive {
		c.markStack.SetMode(StackGcExclusive)
	}
	for {
		refs := c.markStack.DrainGC()
		refs = append(refs, c.markStack.DrainRevoked()...)
		if len(refs) == 0 {
			return
		}
		for _, p := range refs {
			c.scanner.ScanObject(nil, true, p)
		}
	}
}

func (c *Collector) cleanupClassLoaders() {}

func (c *Collector) isMarked(p heap.Ptr) (heap.Ptr, bool) {
	switch c.classifier.GetRegionType(p) {
	case heap.RegionToSpace:
		return p, true
	case heap.RegionFromSpace:
		obj := c.classifier.Object(p)
		if to, ok := obj.Lock.Forwarded(); ok {
			return to, true
		}
		return 0, false
	case heap.RegionUnevacFromSpace:
		return p, c.heap.UnevacBitmap.Test(p)
	case heap.RegionImmune:
		return p, true
	default:
		return p, c.classifier.BitmapFor(p).Test(p)
	}
}

// --- optional verification pause ---

func (c *Collector) verificationPause(durations map[string]time.Duration) {
	defer NewScopedTimer(durations, "Verify").Stop()
	c.pauseMu.Lock()
	defer c.pauseMu.Unlock()

	var roots []heap.Ptr
	for _, t := range c.threads.Threads() {
		t.VisitRoots(func(p heap.Ptr) heap.Ptr {
			roots = append(roots, p)
			return p
		})
	}
	c.verifier.VerifyNoFromSpaceRefs(roots)
}

// --- 4.1.4 ReclaimPhase ---

func (c *Collector) reclaimPhase(durations map[string]time.Duration) (freedObjects int, freedBytes uintptr) {
	defer NewScopedTimer(durations, "Reclaim").Stop()

	EmptyCheckpoint(c.threads)

	if c.cfg.EnableFromSpaceAccountingCheck {
		objects, bytes := c.fromSpaceAccounting()
		if objects != c.fromSpaceObjectsAtFirstPause || bytes != c.fromSpaceBytesAtFirstPause {
			fatalf("from-space-accounting", "", "from-space objects/bytes changed between flip and reclaim: objects %d->%d bytes %d->%d",
				c.fromSpaceObjectsAtFirstPause, objects, c.fromSpaceBytesAtFirstPause, bytes)
		}
	}

	freedObjects, freedBytes = c.heap.ClearFromSpace()
	c.sweepNonRegionSpaces()
	return freedObjects, freedBytes
}

func (c *Collector) sweepNonRegionSpaces() {
	for _, p := range c.heap.NonMovingPtrs() {
		if !c.heap.Bitmaps.Continuous.Test(p) {
			c.heap.FreeNonMoving(p)
		}
	}
	for _, p := range c.heap.LargePtrs() {
		if !c.heap.Bitmaps.LargeObject.Test(p) {
			obj := c.classifier.Object(p)
			if obj != nil {
				c.heap.FreeLarge(p, obj.Class.Size)
			}
		}
	}
	c.heap.Bitmaps.Continuous.Swap()
	c.heap.Bitmaps.LargeObject.Swap()
}

// --- 4.1.5 FinishPhase ---

func (c *Collector) finishPhase(cause Cause, freedObjects int, freedBytes uintptr, durations map[string]time.Duration) CycleSummary {
	defer NewScopedTimer(durations, "Finish").Stop()

	if got := c.markStack.PoolSize(); got != c.cfg.MarkStackPoolSize {
		fatalf("mark-stack-pool", "", "pool size %d, want %d", got, c.cfg.MarkStackPoolSize)
	}
	c.toSpaceRegion = -1
	c.skipped.Clear()
	c.heap.UnevacBitmap.Swap()

	if c.cfg.UseBakerReadBarrier && c.cfg.FilterModUnionCards {
		c.modUnion.FilterCards(func(p heap.Ptr) bool {
			_, live := c.isMarked(p)
			return live
		})
	}

	summary := CycleSummary{
		Cause:          cause,
		ObjectsMoved:   c.stats.ObjectsMoved(),
		BytesMoved:     c.stats.BytesMoved(),
		ObjectsSkipped: c.stats.ObjectsSkipped(),
		BytesSkipped:   c.stats.BytesSkipped(),
		ObjectsFreed:   freedObjects,
		BytesFreed:     freedBytes,
		PhaseDurations: durations,
	}
	c.stats.pushHistory(summary)
	return summary
}

// regionsObjects is a convenience used by both the flip callback and
// MarkingPhase step 1.
func (i *ImmuneSpaces) regionsObjects(s *heap.Space) []heap.Ptr {
	return s.ObjectsInRegions(i.regions)
}
