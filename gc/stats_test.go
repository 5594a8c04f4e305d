package gc

import (
	"strings"
	"testing"
	"time"
)

func TestStatsRecordAndReset(t *testing.T) {
	s := NewStats()
	s.recordMoved(100)
	s.recordMoved(50)
	s.recordSkipped(20)

	if s.ObjectsMoved() != 2 || s.BytesMoved() != 150 {
		t.Fatalf("moved = (%d, %d), want (2, 150)", s.ObjectsMoved(), s.BytesMoved())
	}
	if s.ObjectsSkipped() != 1 || s.BytesSkipped() != 20 {
		t.Fatalf("skipped = (%d, %d), want (1, 20)", s.ObjectsSkipped(), s.BytesSkipped())
	}

	s.resetCycleCounters()
	if s.ObjectsMoved() != 0 || s.BytesMoved() != 0 {
		t.Fatal("resetCycleCounters must zero every counter")
	}
}

func TestStatsHistoryIsBoundedAndCopied(t *testing.T) {
	s := NewStats()
	s.maxHistory = 2
	s.pushHistory(CycleSummary{Cause: CauseExplicit})
	s.pushHistory(CycleSummary{Cause: CauseForAlloc})
	s.pushHistory(CycleSummary{Cause: CauseBackground})

	hist := s.History()
	if len(hist) != 2 {
		t.Fatalf("History() len = %d, want 2 (bounded by maxHistory)", len(hist))
	}
	if hist[0].Cause != CauseForAlloc || hist[1].Cause != CauseBackground {
		t.Fatalf("History() = %v, want the two most recent entries", hist)
	}

	hist[0].Cause = CauseExplicit
	if s.History()[0].Cause != CauseForAlloc {
		t.Fatal("History() must return a copy, not the internal slice")
	}
}

func TestSlowPathHistogramBucketsClampAtMax(t *testing.T) {
	var h SlowPathHistogram
	h.Record(1 * time.Nanosecond)
	h.Record(1 * time.Hour) // far past the last bucket's width

	if h.count.Load() != 2 {
		t.Fatalf("count = %d, want 2", h.count.Load())
	}
	if h.buckets[histogramBuckets-1].Load() != 1 {
		t.Fatal("an over-range duration must clamp into the last bucket")
	}
}

func TestDumpPerformanceInfoFormatsByteSizes(t *testing.T) {
	s := NewStats()
	s.recordMoved(2048)
	out := s.DumpPerformanceInfo()
	if !strings.Contains(out, "objects_moved=1") {
		t.Fatalf("DumpPerformanceInfo = %q, missing objects_moved", out)
	}
	if !strings.Contains(out, "bytes_moved=") {
		t.Fatalf("DumpPerformanceInfo = %q, missing a formatted byte size", out)
	}
}
