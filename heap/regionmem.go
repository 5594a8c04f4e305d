//go:build unix

package heap

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// regionMemory backs a single region with a real anonymous mmap of
// RegionAlignment bytes. The collector core never dereferences this
// slice directly — objects live in Space's Go-level table — but owning
// the address range the way ART's RegionSpace mmaps a contiguous
// region makes ClearFromSpace a real release of OS memory rather than
// bookkeeping only, and lets diagnostics report real RSS.
type regionMemory struct {
	addr []byte
}

func mapRegion() (*regionMemory, error) {
	b, err := unix.Mmap(-1, 0, RegionAlignment, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("heap: mmap region: %w", err)
	}
	return &regionMemory{addr: b}, nil
}

// release returns the region's pages to the OS and poisons the mapping
// (PROT_NONE) so any lingering Go-level pointer into it would fault in
// a real deployment, matching ART releasing from-space regions in
// ClearFromSpace.
func (r *regionMemory) release() error {
	if r == nil || r.addr == nil {
		return nil
	}
	if err := unix.Mprotect(r.addr, unix.PROT_NONE); err != nil {
		return fmt.Errorf("heap: mprotect region: %w", err)
	}
	if err := unix.Munmap(r.addr); err != nil {
		return fmt.Errorf("heap: munmap region: %w", err)
	}
	r.addr = nil
	return nil
}
