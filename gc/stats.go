package gc

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/inhies/go-bytesize"
)

// histogramBuckets/histogramWidth match spec.md §6's slow-path histogram
// shape exactly: 32 buckets, 500ns each.
const (
	histogramBuckets = 32
	histogramWidth   = 500 * time.Nanosecond
)

// SlowPathHistogram buckets mutator-vs-GC slow-path latencies, per
// spec.md §6 Observability.
type SlowPathHistogram struct {
	buckets [histogramBuckets]atomic.Uint64
	count   atomic.Uint64
	nanos   atomic.Uint64
}

func (h *SlowPathHistogram) Record(d time.Duration) {
	h.count.Add(1)
	h.nanos.Add(uint64(d))
	b := int(d / histogramWidth)
	if b >= histogramBuckets {
		b = histogramBuckets - 1
	}
	h.buckets[b].Add(1)
}

// CycleSummary is one collection's worth of diagnostics, kept in a
// bounded ring by Stats and returned by History, the way the original
// runtime's dumpgc-style reporting keeps recent cycles (SPEC_FULL.md §4
// "Per-cycle GcCount"). DumpPerformanceInfo does not read this history.
type CycleSummary struct {
	Cause          Cause
	ObjectsMoved   uint64
	BytesMoved     uint64
	ObjectsSkipped uint64
	BytesSkipped   uint64
	ObjectsFreed   int
	BytesFreed     uintptr
	PhaseDurations map[string]time.Duration
}

// Stats aggregates the counters spec.md §6 lists: bytes/objects moved,
// bytes/objects skipped, plus the mutator and GC-thread slow-path
// histograms.
type Stats struct {
	objectsMoved   atomic.Uint64
	bytesMoved     atomic.Uint64
	objectsSkipped atomic.Uint64
	bytesSkipped   atomic.Uint64

	MutatorSlowPath SlowPathHistogram
	GCSlowPath      SlowPathHistogram

	mu      sync.Mutex
	history []CycleSummary
	maxHistory int
}

func NewStats() *Stats {
	return &Stats{maxHistory: 16}
}

func (s *Stats) recordMoved(size uintptr) {
	s.objectsMoved.Add(1)
	s.bytesMoved.Add(uint64(size))
}

func (s *Stats) recordSkipped(size uintptr) {
	s.objectsSkipped.Add(1)
	s.bytesSkipped.Add(uint64(size))
}

func (s *Stats) ObjectsMoved() uint64   { return s.objectsMoved.Load() }
func (s *Stats) BytesMoved() uint64     { return s.bytesMoved.Load() }
func (s *Stats) ObjectsSkipped() uint64 { return s.objectsSkipped.Load() }
func (s *Stats) BytesSkipped() uint64   { return s.bytesSkipped.Load() }

func (s *Stats) resetCycleCounters() {
	s.objectsMoved.Store(0)
	s.bytesMoved.Store(0)
	s.objectsSkipped.Store(0)
	s.bytesSkipped.Store(0)
}

func (s *Stats) pushHistory(c CycleSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, c)
	if len(s.history) > s.maxHistory {
		s.history = s.history[len(s.history)-s.maxHistory:]
	}
}

func (s *Stats) History() []CycleSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]CycleSummary, len(s.history))
	copy(out, s.history)
	return out
}

// DumpPerformanceInfo renders the counters in human-readable byte sizes
// (spec.md §6's "DumpPerformanceInfo(stream)"), formatted with
// go-bytesize.
func (s *Stats) DumpPerformanceInfo() string {
	return formatPerf(s)
}

func formatPerf(s *Stats) string {
	moved := bytesize.New(float64(s.BytesMoved()))
	skipped := bytesize.New(float64(s.BytesSkipped()))
	return "objects_moved=" + itoa64(s.ObjectsMoved()) +
		" bytes_moved=" + moved.String() +
		" objects_skipped=" + itoa64(s.ObjectsSkipped()) +
		" bytes_skipped=" + skipped.String()
}

func itoa64(v uint64) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}
