package heap

import "testing"

// TestFlipThreadRootsRunsGlobalCallbackBeforePerThreadVisit locks in the
// ordering spec.md's FlipThreadRoots depends on: the global flip runs
// while mutators are still paused, so by the time a thread's root visit
// executes, the flip is already visible.
func TestFlipThreadRootsRunsGlobalCallbackBeforePerThreadVisit(t *testing.T) {
	tl := NewThreadList()
	var order []string

	th := NewThread(1, nil)
	tl.Add(th)

	tl.FlipThreadRoots(
		func(*Thread) { order = append(order, "perThread") },
		func() { order = append(order, "global") },
	)

	if len(order) != 2 || order[0] != "global" || order[1] != "perThread" {
		t.Fatalf("order = %v, want [global perThread]", order)
	}
}
