package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"github.com/mihalyid/art/gc"
)

// reporter prints cycle summaries in color on a real terminal and
// falls back to plain text when stdout is piped or redirected, the way
// the teacher's own build output only colorizes when attached to a
// tty.
type reporter struct {
	out   io.Writer
	color bool
}

func newReporter() *reporter {
	fd := os.Stdout.Fd()
	return &reporter{
		out:   colorable.NewColorableStdout(),
		color: isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd),
	}
}

const (
	ansiReset  = "\033[0m"
	ansiBold   = "\033[1m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiCyan   = "\033[36m"
)

func (r *reporter) paint(code, s string) string {
	if !r.color {
		return s
	}
	return code + s + ansiReset
}

func (r *reporter) cycle(s gc.CycleSummary) {
	fmt.Fprintf(r.out, "%s cause=%s\n", r.paint(ansiBold+ansiCyan, "collection"), s.Cause)
	fmt.Fprintf(r.out, "  %s objects_moved=%d bytes_moved=%d objects_skipped=%d bytes_skipped=%d\n",
		r.paint(ansiGreen, "moved/skipped"), s.ObjectsMoved, s.BytesMoved, s.ObjectsSkipped, s.BytesSkipped)
	fmt.Fprintf(r.out, "  %s objects_freed=%d bytes_freed=%d\n",
		r.paint(ansiYellow, "reclaimed"), s.ObjectsFreed, s.BytesFreed)
	for _, phase := range []string{"Initialize", "Flip", "Marking", "Verify", "Reclaim", "Finish"} {
		if d, ok := s.PhaseDurations[phase]; ok {
			fmt.Fprintf(r.out, "  %-12s %s\n", phase, d)
		}
	}
}

func (r *reporter) line(format string, args ...any) {
	fmt.Fprintf(r.out, format+"\n", args...)
}
