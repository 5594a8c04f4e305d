package gc

import "github.com/mihalyid/art/heap"

// wordSize is the unit object layouts are described in, matching the
// teacher's gc_precise.go object scanner, which describes layouts in
// pointer-sized words rather than raw bytes.
const wordSize = 8

// ObjectLayout is a compact word-bitmap description of which fields of a
// class are references, adapted from the teacher's gcObjectScanner
// (src/runtime/gc_precise.go): there, the scanner walks an object's
// bytes word-by-word consulting a packed bitmap to decide whether each
// word might hold a pointer. This module has no raw object bytes to
// walk — class field offsets are tracked directly in heap.ClassInfo —
// so ObjectLayout instead becomes the thing that *builds* a
// heap.ClassInfo.RefOffsets list from the same kind of packed
// size+bitmap encoding, for callers (the CLI demo, tests) that want to
// describe a class as "N words, pointer bitmap 0b1010" instead of
// writing out byte offsets by hand.
type ObjectLayout struct {
	words  uintptr // total size in words
	bitmap uintptr // bit i set means word i is a reference
}

// NewObjectLayout mirrors newGCObjectScanner's non-separate-bitmap case:
// the layout is carried directly in one machine word, one bit per field,
// plus a small size field. Width mirrors the teacher's switch on
// unsafe.Sizeof(uintptr(0))*8, simplified to the 64-bit case since this
// module targets no smaller pointer width.
func NewObjectLayout(words uintptr, bitmap uintptr) ObjectLayout {
	return ObjectLayout{words: words, bitmap: bitmap}
}

// PointerFree mirrors gcObjectScanner.pointerFree: true only when every
// word in the layout is definitely not a reference.
func (l ObjectLayout) PointerFree() bool { return l.bitmap == 0 }

// RefOffsets expands the bitmap into the byte offsets heap.ClassInfo
// wants, one per set bit, matching gcObjectScanner.nextIsPointer's
// per-word bit test but producing the whole list up front since this
// module scans fields by offset list rather than by incremental cursor.
func (l ObjectLayout) RefOffsets() []uintptr {
	var offs []uintptr
	for i := uintptr(0); i < l.words; i++ {
		if (l.bitmap>>i)&1 != 0 {
			offs = append(offs, i*wordSize)
		}
	}
	return offs
}

// ClassInfo builds a heap.ClassInfo from this layout plus a name and a
// header size (the non-reference prefix: lock word, rb word, class
// pointer — none of which this module's ClassInfo tracks explicitly, so
// headerSize just pads Size for realism).
func (l ObjectLayout) ClassInfo(name string, headerSize uintptr) *heap.ClassInfo {
	return &heap.ClassInfo{
		Name:       name,
		Size:       headerSize + l.words*wordSize,
		RefOffsets: l.RefOffsets(),
	}
}
