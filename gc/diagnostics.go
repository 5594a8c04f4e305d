package gc

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gofrs/flock"
)

// PerformanceLog appends DumpPerformanceInfo lines to a shared file,
// guarded by an flock so two ccgc invocations against the same log
// don't interleave writes mid-line. Nothing in the collector's hot path
// touches this; it exists for the CLI harness and any batch job that
// wants a durable history across process restarts, which Stats.History
// alone can't give since it only lives in memory.
type PerformanceLog struct {
	path string
	lock *flock.Flock
}

func NewPerformanceLog(path string) *PerformanceLog {
	return &PerformanceLog{path: path, lock: flock.New(path + ".lock")}
}

// Append writes one line summarizing a completed cycle, taking the file
// lock for the duration of the write so a concurrent writer's line
// can't land in the middle of this one.
func (p *PerformanceLog) Append(cycle uint64, cause Cause, s *Stats) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	locked, err := p.lock.TryLockContext(ctx, 20*time.Millisecond)
	if err != nil {
		return fmt.Errorf("gc: performance log lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("gc: performance log %s busy", p.path)
	}
	defer p.lock.Unlock()

	f, err := os.OpenFile(p.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("gc: open performance log: %w", err)
	}
	defer f.Close()

	line := fmt.Sprintf("cycle=%d cause=%s %s\n", cycle, cause, s.DumpPerformanceInfo())
	_, err = f.WriteString(line)
	return err
}
