package heap

import "testing"

// TestReferenceProcessorDelaysUnmarkedReferent models S6: a reference
// whose referent isn't known-live yet gets re-marked and queued rather
// than dropped, so it stays reachable.
func TestReferenceProcessorDelaysUnmarkedReferent(t *testing.T) {
	rp := NewReferenceProcessor()
	r := &Reference{Kind: WeakReference, Referent: Ptr(10)}
	rp.Register(r)

	movedTo := Ptr(20)
	rp.ProcessReferences(false,
		func(Ptr) (Ptr, bool) { return 0, false }, // referent not yet known-live
		func(Ptr) Ptr { return movedTo },
	)

	if !r.Queued {
		t.Fatal("an undetermined referent must be queued for later reprocessing")
	}
	if r.Referent != movedTo {
		t.Fatalf("Referent = %v, want %v (the mark function's result)", r.Referent, movedTo)
	}
}

func TestReferenceProcessorClearsSoftWhenRequested(t *testing.T) {
	rp := NewReferenceProcessor()
	r := &Reference{Kind: SoftReference, Referent: Ptr(10)}
	rp.Register(r)

	rp.ProcessReferences(true,
		func(Ptr) (Ptr, bool) { return 0, true },
		func(Ptr) Ptr { t.Fatal("mark must not be called for a cleared soft reference"); return 0 },
	)

	if !r.Referent.IsNull() {
		t.Fatalf("Referent = %v, want null after clearSoft", r.Referent)
	}
	if !r.Queued {
		t.Fatal("a cleared soft reference must be queued")
	}
}

func TestReferenceProcessorKeepsLiveReferent(t *testing.T) {
	rp := NewReferenceProcessor()
	r := &Reference{Kind: WeakReference, Referent: Ptr(10)}
	rp.Register(r)

	rp.ProcessReferences(false,
		func(Ptr) (Ptr, bool) { return 30, true },
		func(Ptr) Ptr { t.Fatal("mark must not be called for an already-live referent"); return 0 },
	)

	if r.Referent != 30 {
		t.Fatalf("Referent = %v, want 30", r.Referent)
	}
}
