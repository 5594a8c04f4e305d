package heap

import "sync/atomic"

// LockWord models the tagged sum design note from spec.md §9:
//   Unlocked(hash) | Thin(tid,count) | Fat(monitor_id) | Forwarded(to_ptr)
// packed into a single machine word so it can be updated with one CAS.
// The top two bits hold the tag; the remaining 62 bits hold the payload.
type lockState uint64

const (
	lockUnlocked lockState = 0
	lockThin     lockState = 1
	lockFat      lockState = 2
	lockForwarded lockState = 3

	lockTagShift = 62
	lockTagMask  = uint64(3) << lockTagShift
	lockPayloadMask = ^lockTagMask
)

func packLock(tag lockState, payload uint64) uint64 {
	return (uint64(tag) << lockTagShift) | (payload & lockPayloadMask)
}

func unpackLock(v uint64) (lockState, uint64) {
	return lockState(v >> lockTagShift), v & lockPayloadMask
}

// LockWord is the atomic header word. Zero value is "unlocked, hash 0".
type LockWord struct {
	word atomic.Uint64
}

// Forwarded reports whether the lock word is in the kForwardingAddress
// state and, if so, returns the to-space pointer it carries. This is
// spec.md Invariant 2 made concrete: once true, the returned pointer
// never changes because nothing ever stores into the word again except
// the single winning CAS in TryForward.
func (l *LockWord) Forwarded() (Ptr, bool) {
	tag, payload := unpackLock(l.word.Load())
	if tag != lockForwarded {
		return 0, false
	}
	return Ptr(payload), true
}

// TryForward attempts to install the forwarding address. It fails (and
// returns false) if another thread already forwarded the object, which
// is the expected "copy race" outcome documented in spec.md §4.3 step
// 4b — the caller is expected to read Forwarded() again to find the
// winner's address.
func (l *LockWord) TryForward(to Ptr) bool {
	for {
		old := l.word.Load()
		tag, _ := unpackLock(old)
		if tag == lockForwarded {
			return false
		}
		new := packLock(lockForwarded, uint64(to))
		if l.word.CompareAndSwap(old, new) {
			return true
		}
		// Lost a race to a non-forwarding lock-word mutation (hash-code
		// write, thin-lock inflation): retry from the top per §4.3 step 4d.
	}
}

// Color is the Baker read-barrier rb_ptr state (spec.md §3, GLOSSARY).
// WHITE and GRAY are the only two states CC ever produces and the only
// two this package defines; no table-lookup-barrier values exist.
type Color uint32

const (
	White Color = iota
	Gray
)

// RBWord is the atomic per-object Baker color.
type RBWord struct {
	c atomic.Uint32
}

func (r *RBWord) Color() Color { return Color(r.c.Load()) }

func (r *RBWord) Set(c Color) { r.c.Store(uint32(c)) }

// CAS attempts the color transition from->to, returning whether it won.
// Every gray/white transition in the collector goes through this so the
// color law (spec.md Invariant 3) holds even under concurrent mutator
// and GC-thread attempts (MarkNonMoving's false-gray race, S4's immune
// graying, ProcessFalseGrayStack's cleanup CAS).
func (r *RBWord) CAS(from, to Color) bool {
	return r.c.CompareAndSwap(uint32(from), uint32(to))
}
