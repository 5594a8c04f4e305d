package gc

import (
	"testing"

	"github.com/mihalyid/art/heap"
)

// TestMarkStackGCCapDoublesOnFull covers spec.md §6's
// "DefaultGCMarkStackSize ... doubles on full".
func TestMarkStackGCCapDoublesOnFull(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DefaultGCMarkStackSize = 8 * 8 // room for 8 heap.Ptr entries
	ms := NewMarkStack(cfg)
	ms.SetMode(StackGcExclusive)

	if got := ms.GCStackCap(); got != 8 {
		t.Fatalf("initial GCStackCap = %d, want 8", got)
	}

	for i := 0; i < 8; i++ {
		ms.Push(nil, true, heap.Ptr(i+1))
	}

	if got := ms.GCStackCap(); got != 16 {
		t.Fatalf("GCStackCap after filling the initial capacity = %d, want 16 (doubled)", got)
	}
}
