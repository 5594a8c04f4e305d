package heap

import "sync"

// CardTable tracks dirty bytes at card granularity for immune spaces so
// GrayDirtyImmuneObjects (spec.md §4.1.2) can find only the image/zygote
// objects a mutator actually wrote to, instead of rescanning everything.
type CardTable struct {
	mu    sync.Mutex
	dirty map[Ptr]bool // object-granular stand-in for card-granular dirtiness
}

func NewCardTable() *CardTable {
	return &CardTable{dirty: make(map[Ptr]bool)}
}

// MarkDirty records that a mutator wrote through ptr's card. Called by a
// write barrier the core doesn't implement (out of scope per spec.md
// §1); tests call it directly to simulate a dirtied immune object.
func (c *CardTable) MarkDirty(p Ptr) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dirty[p] = true
}

// Scan visits every dirty pointer within the given set and clears its
// card, mirroring CardTable::Scan's clear-as-you-go semantics.
func (c *CardTable) Scan(in map[Ptr]bool, visit func(Ptr)) {
	c.mu.Lock()
	var hit []Ptr
	for p := range c.dirty {
		if in[p] {
			hit = append(hit, p)
			delete(c.dirty, p)
		}
	}
	c.mu.Unlock()
	for _, p := range hit {
		visit(p)
	}
}

// ModUnionTable is the optional, coarser-grained alternative CardTable
// client: it accumulates dirty object sets across possibly more than one
// card-table generation and exposes ClearCards/VisitObjects/FilterCards
// the way spec.md §6 lists them.
type ModUnionTable struct {
	mu    sync.Mutex
	cards map[Ptr]bool
}

func NewModUnionTable() *ModUnionTable {
	return &ModUnionTable{cards: make(map[Ptr]bool)}
}

func (m *ModUnionTable) ClearCards(ct *CardTable, in map[Ptr]bool) {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	m.mu.Lock()
	defer m.mu.Unlock()
	for p := range ct.dirty {
		if in[p] {
			m.cards[p] = true
			delete(ct.dirty, p)
		}
	}
}

func (m *ModUnionTable) VisitObjects(visit func(Ptr)) {
	m.mu.Lock()
	snapshot := make([]Ptr, 0, len(m.cards))
	for p := range m.cards {
		snapshot = append(snapshot, p)
	}
	m.mu.Unlock()
	for _, p := range snapshot {
		visit(p)
	}
}

// FilterCards drops entries no longer referencing live (non-freed)
// objects, called from FinishPhase when kFilterModUnionCards is set.
func (m *ModUnionTable) FilterCards(isLive func(Ptr) bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for p := range m.cards {
		if !isLive(p) {
			delete(m.cards, p)
		}
	}
}
