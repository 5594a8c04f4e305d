package gc

import "testing"

func TestObjectLayoutPointerFree(t *testing.T) {
	l := NewObjectLayout(2, 0)
	if !l.PointerFree() {
		t.Fatal("a zero bitmap must report pointer-free")
	}
	if len(l.RefOffsets()) != 0 {
		t.Fatalf("RefOffsets = %v, want none", l.RefOffsets())
	}
}

func TestObjectLayoutRefOffsets(t *testing.T) {
	// words 0 and 2 are references, word 1 is not: bitmap 0b101.
	l := NewObjectLayout(3, 0b101)
	if l.PointerFree() {
		t.Fatal("a non-zero bitmap must not report pointer-free")
	}
	got := l.RefOffsets()
	want := []uintptr{0, 2 * wordSize}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("RefOffsets = %v, want %v", got, want)
	}
}

func TestObjectLayoutClassInfo(t *testing.T) {
	l := NewObjectLayout(1, 1)
	ci := l.ClassInfo("Node", 16)
	if ci.Name != "Node" {
		t.Fatalf("Name = %q, want Node", ci.Name)
	}
	if ci.Size != 16+wordSize {
		t.Fatalf("Size = %d, want %d", ci.Size, 16+wordSize)
	}
	if len(ci.RefOffsets) != 1 || ci.RefOffsets[0] != 0 {
		t.Fatalf("RefOffsets = %v, want [0]", ci.RefOffsets)
	}
}
