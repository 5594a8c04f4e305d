package heap

import "testing"

// TestObjectCASFieldRaceLeavesMutatorWriteIntact models the S5 scenario:
// a Scanner reads a slot, decides on a new value, but a mutator writes a
// different value to that same slot before the Scanner's compare-and-swap
// lands. The CAS must fail and the mutator's write must survive
// untouched.
func TestObjectCASFieldRaceLeavesMutatorWriteIntact(t *testing.T) {
	obj := &Object{Fields: map[uintptr]Ptr{0: 100}}

	current := obj.ReadField(0)
	obj.WriteField(0, 200) // a mutator races ahead of the scanner here

	if obj.CASFieldPtr(0, current, 300) {
		t.Fatal("CAS must fail once the field no longer holds the value the scanner read")
	}
	if got := obj.ReadField(0); got != 200 {
		t.Fatalf("field = %v, want the mutator's write (200) to survive", got)
	}
}

func TestObjectCASFieldSucceedsWithoutRace(t *testing.T) {
	obj := &Object{Fields: map[uintptr]Ptr{0: 100}}
	current := obj.ReadField(0)
	if !obj.CASFieldPtr(0, current, 300) {
		t.Fatal("CAS should succeed when nothing raced in between")
	}
	if got := obj.ReadField(0); got != 300 {
		t.Fatalf("field = %v, want 300", got)
	}
}
