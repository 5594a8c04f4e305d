package gc

import (
	"sync"
	"sync/atomic"

	"github.com/mihalyid/art/heap"
)

// MarkStackMode is the state machine from spec.md §9: "Off → ThreadLocal
// → Shared → GcExclusive → Off", read with an atomic load on the hot
// read-barrier path and written only by the PhaseMachine under the
// relevant checkpoint.
type MarkStackMode int32

const (
	StackOff MarkStackMode = iota
	StackThreadLocal
	StackShared
	StackGcExclusive
)

// MarkStack is the three-mode worklist described in spec.md §3/§4.4.
// gcMarkStack backs both the GC-thread-only ThreadLocal pushes and the
// locked Shared/GcExclusive pushes; per-mutator thread-local stacks live
// on heap.Thread.TLMarkStack, type-asserted to *[]heap.Ptr by this
// package, since heap intentionally doesn't know the element type.
type MarkStack struct {
	mode atomic.Int32

	mu                sync.Mutex // mark_stack_lock
	gcMarkStack       []heap.Ptr
	pooledMarkStacks  [][]heap.Ptr
	revokedMarkStacks [][]heap.Ptr
	falseGrayStack    []heap.Ptr
	immuneGrayStack   []heap.Ptr

	pushDisallowed atomic.Bool

	poolSize      int
	tlStackCap    int
	gcStackCap    int // kDefaultGcMarkStackSize, doubles on full (spec.md §6)
}

// NewMarkStack builds an empty stack with the pool pre-filled to
// poolSize, matching ART's pool being warm before the first GC.
func NewMarkStack(cfg Config) *MarkStack {
	ms := &MarkStack{
		poolSize:   cfg.MarkStackPoolSize,
		tlStackCap: int(cfg.ReadBarrierMarkStackSize / 8),
		gcStackCap: int(cfg.DefaultGCMarkStackSize / 8),
	}
	for i := 0; i < ms.poolSize; i++ {
		ms.pooledMarkStacks = append(ms.pooledMarkStacks, make([]heap.Ptr, 0, ms.tlStackCap))
	}
	return ms
}

// growGCStackCapLocked doubles gcStackCap once gcMarkStack's length has
// reached it, matching kDefaultGcMarkStackSize's "initial/max capacity, doubles
// on full" (spec.md §6). Callers hold ms.mu.
func (ms *MarkStack) growGCStackCapLocked() {
	if len(ms.gcMarkStack) < ms.gcStackCap {
		return
	}
	ms.gcStackCap *= 2
}

func (ms *MarkStack) Mode() MarkStackMode { return MarkStackMode(ms.mode.Load()) }
func (ms *MarkStack) SetMode(m MarkStackMode) { ms.mode.Store(int32(m)) }

func (ms *MarkStack) SetPushDisallowed(v bool) { ms.pushDisallowed.Store(v) }

// Push implements spec.md §4.4's dispatch. isGCThread distinguishes the
// GC thread's own pushes (into gcMarkStack) from a mutator's (go through
// its thread-local stack in ThreadLocal mode, or into gcMarkStack in
// Shared mode). Every push onto gcMarkStack, in any mode, takes ms.mu.
// GcExclusive mode only the GC thread may call this at all.
func (ms *MarkStack) Push(thread *heap.Thread, isGCThread bool, ref heap.Ptr) {
	if ms.pushDisallowed.Load() {
		fatalf("mark-stack-push-disallowed", "", "push after mark_stack_push_disallowed set: %v", ref)
	}
	switch ms.Mode() {
	case StackThreadLocal:
		if isGCThread {
			ms.mu.Lock()
			ms.gcMarkStack = append(ms.gcMarkStack, ref)
			ms.growGCStackCapLocked()
			ms.mu.Unlock()
			return
		}
		ms.pushThreadLocal(thread, ref)
	case StackShared:
		ms.mu.Lock()
		ms.gcMarkStack = append(ms.gcMarkStack, ref)
		ms.growGCStackCapLocked()
		ms.mu.Unlock()
	case StackGcExclusive:
		if !isGCThread {
			fatalf("mark-stack-mode", "", "mutator push while GcExclusive")
		}
		ms.mu.Lock()
		ms.gcMarkStack = append(ms.gcMarkStack, ref)
		ms.growGCStackCapLocked()
		ms.mu.Unlock()
	default:
		fatalf("mark-stack-mode", "", "push while mode Off")
	}
}

func (ms *MarkStack) pushThreadLocal(thread *heap.Thread, ref heap.Ptr) {
	stack, _ := thread.TLMarkStack.(*[]heap.Ptr)
	if stack == nil {
		fresh := ms.acquirePooled()
		thread.TLMarkStack = &fresh
		stack = thread.TLMarkStack.(*[]heap.Ptr)
	}
	*stack = append(*stack, ref)
	if len(*stack) >= ms.tlStackCap {
		full := *stack
		ms.mu.Lock()
		ms.revokedMarkStacks = append(ms.revokedMarkStacks, full)
		ms.mu.Unlock()
		fresh := ms.acquirePooled()
		thread.TLMarkStack = &fresh
	}
}

func (ms *MarkStack) acquirePooled() []heap.Ptr {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if n := len(ms.pooledMarkStacks); n > 0 {
		s := ms.pooledMarkStacks[n-1]
		ms.pooledMarkStacks = ms.pooledMarkStacks[:n-1]
		return s
	}
	return make([]heap.Ptr, 0, ms.tlStackCap)
}

func (ms *MarkStack) releaseToPool(s []heap.Ptr) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if len(ms.pooledMarkStacks) < ms.poolSize {
		ms.pooledMarkStacks = append(ms.pooledMarkStacks, s[:0])
	}
	// else: released (dropped), per §4.4 pool discipline (b).
}

// RevokeThreadLocal moves thread's TL mark stack, if non-empty, into
// revokedMarkStacks and gives the thread a fresh stack slot, mirroring
// RevokeThreadLocalMarkStackCheckpoint's per-thread action.
func (ms *MarkStack) RevokeThreadLocal(thread *heap.Thread) {
	stack, _ := thread.TLMarkStack.(*[]heap.Ptr)
	if stack == nil || len(*stack) == 0 {
		return
	}
	full := *stack
	ms.mu.Lock()
	ms.revokedMarkStacks = append(ms.revokedMarkStacks, full)
	ms.mu.Unlock()
	thread.TLMarkStack = nil
}

// DrainRevoked pops everything out of revokedMarkStacks, returning the
// refs to scan and releasing each backing slice to the pool.
func (ms *MarkStack) DrainRevoked() []heap.Ptr {
	ms.mu.Lock()
	stacks := ms.revokedMarkStacks
	ms.revokedMarkStacks = nil
	ms.mu.Unlock()

	var out []heap.Ptr
	for _, s := range stacks {
		out = append(out, s...)
		ms.releaseToPool(s)
	}
	return out
}

// DrainGC pops everything currently on gcMarkStack.
func (ms *MarkStack) DrainGC() []heap.Ptr {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	out := ms.gcMarkStack
	ms.gcMarkStack = nil
	return out
}

// Empty reports whether gcMarkStack and the revoked stacks are both
// empty; per-thread stacks not yet revoked are not inspected. Used at
// CheckEmptyMarkStack points (spec.md §8 property 7).
func (ms *MarkStack) Empty() bool {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if len(ms.gcMarkStack) != 0 || len(ms.revokedMarkStacks) != 0 {
		return false
	}
	return true
}

// GCStackCap reports the current capacity gcMarkStack has grown to,
// starting from Config.DefaultGCMarkStackSize and doubling on full.
func (ms *MarkStack) GCStackCap() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.gcStackCap
}

func (ms *MarkStack) PoolSize() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return len(ms.pooledMarkStacks)
}

func (ms *MarkStack) PushFalseGray(ref heap.Ptr) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.falseGrayStack = append(ms.falseGrayStack, ref)
}

func (ms *MarkStack) DrainFalseGray() []heap.Ptr {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	out := ms.falseGrayStack
	ms.falseGrayStack = nil
	return out
}

func (ms *MarkStack) PushImmuneGray(ref heap.Ptr) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.immuneGrayStack = append(ms.immuneGrayStack, ref)
}

func (ms *MarkStack) DrainImmuneGray() []heap.Ptr {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	out := ms.immuneGrayStack
	ms.immuneGrayStack = nil
	return out
}

func (ms *MarkStack) ImmuneGrayEmpty() bool {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return len(ms.immuneGrayStack) == 0
}
