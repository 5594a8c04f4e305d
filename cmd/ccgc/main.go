// Command ccgc drives a synthetic heap through the concurrent copying
// collector in package gc: a one-shot mode prints a single cycle's
// summary, and an interactive mode lets you step cycles by hand.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/mihalyid/art/gc"
	"github.com/mihalyid/art/heap"
)

func main() {
	var (
		configPath  = flag.String("config", "", "path to a YAML config overriding the defaults")
		verbose     = flag.Bool("v", false, "verbose phase logging")
		interactive = flag.Bool("i", false, "step through collection cycles interactively")
		cycles      = flag.Int("cycles", 1, "number of collection cycles to run in non-interactive mode")
		perfLog     = flag.String("perf-log", "", "append DumpPerformanceInfo lines to this file across runs")
	)
	flag.Parse()

	cfg := gc.DefaultConfig()
	if *configPath != "" {
		loaded, err := gc.LoadConfig(*configPath)
		if err != nil {
			log.Fatalf("ccgc: load config: %v", err)
		}
		cfg = loaded
	}

	s := heap.NewSpace()
	rootPtrs, _ := buildDemoHeap(s)
	roots := &demoRoots{roots: rootPtrs}
	thread := heap.NewThread(1, roots)

	collector := gc.NewCollector(cfg, s, gc.NewStdLogger(*verbose))
	collector.AddMutator(thread)

	rep := newReporter()

	if *interactive {
		if err := runREPL(collector, roots, rep); err != nil {
			fmt.Fprintln(os.Stderr, "ccgc:", err)
			os.Exit(1)
		}
		return
	}

	var perf *gc.PerformanceLog
	if *perfLog != "" {
		perf = gc.NewPerformanceLog(*perfLog)
	}

	for i := 0; i < *cycles; i++ {
		summary := collector.Collect(gc.CauseExplicit)
		rep.cycle(summary)
		if perf != nil {
			if err := perf.Append(uint64(i+1), gc.CauseExplicit, collector.Stats()); err != nil {
				fmt.Fprintln(os.Stderr, "ccgc: performance log:", err)
			}
		}
	}
}
