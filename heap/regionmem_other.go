//go:build !unix

package heap

// regionMemory is a plain-slice stand-in on platforms without mmap/mprotect.
type regionMemory struct {
	addr []byte
}

func mapRegion() (*regionMemory, error) {
	return &regionMemory{addr: make([]byte, RegionAlignment)}, nil
}

func (r *regionMemory) release() error {
	if r != nil {
		r.addr = nil
	}
	return nil
}
