package heap

import "testing"

func TestCardTableScanClearsAsItGoes(t *testing.T) {
	ct := NewCardTable()
	ct.MarkDirty(Ptr(1))
	ct.MarkDirty(Ptr(2))

	var visited []Ptr
	ct.Scan(map[Ptr]bool{Ptr(1): true}, func(p Ptr) { visited = append(visited, p) })

	if len(visited) != 1 || visited[0] != Ptr(1) {
		t.Fatalf("Scan visited %v, want [1]", visited)
	}
	if ct.dirty[Ptr(1)] {
		t.Fatal("Scan must clear the card it visited")
	}
	if !ct.dirty[Ptr(2)] {
		t.Fatal("Scan must not touch cards outside the requested set")
	}
}

func TestModUnionTableClearVisitFilter(t *testing.T) {
	ct := NewCardTable()
	ct.MarkDirty(Ptr(1))
	ct.MarkDirty(Ptr(2))

	mut := NewModUnionTable()
	mut.ClearCards(ct, map[Ptr]bool{Ptr(1): true, Ptr(2): true})

	if len(ct.dirty) != 0 {
		t.Fatal("ClearCards must drain matching entries out of the card table")
	}

	var seen []Ptr
	mut.VisitObjects(func(p Ptr) { seen = append(seen, p) })
	if len(seen) != 2 {
		t.Fatalf("VisitObjects saw %v, want 2 entries", seen)
	}

	mut.FilterCards(func(p Ptr) bool { return p == Ptr(1) })
	if len(mut.cards) != 1 || !mut.cards[Ptr(1)] {
		t.Fatalf("FilterCards should have kept only the live entry, got %v", mut.cards)
	}
}
