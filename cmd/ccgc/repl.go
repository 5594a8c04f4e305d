package main

import (
	"bufio"
	"fmt"

	"github.com/google/shlex"
	"github.com/mattn/go-tty"

	"github.com/mihalyid/art/gc"
)

// runREPL is the interactive step-through debug mode: 'r' runs the next
// collection cycle, 'd' dumps stats, ':' drops into a typed command line
// (tokenized with shlex so quoted arguments survive), and 'q' exits.
// Raw keystrokes are read through go-tty so a bare 'r' or 'q' doesn't
// need an Enter, matching the single-key REPLs the teacher's own
// interactive flashing tools use.
func runREPL(c *gc.Collector, roots *demoRoots, rep *reporter) error {
	t, err := tty.Open()
	if err != nil {
		return fmt.Errorf("ccgc: open tty: %w", err)
	}
	defer t.Close()

	rep.line("interactive mode: [r]un cycle, [d]ump stats, [:] command, [q]uit")
	cycle := uint64(0)
	for {
		r, err := t.ReadRune()
		if err != nil {
			return err
		}
		switch r {
		case 'r':
			cycle++
			summary := c.Collect(gc.CauseExplicit)
			rep.cycle(summary)
		case 'd':
			rep.line("%s", c.Stats().DumpPerformanceInfo())
		case ':':
			line, err := readCommandLine(t)
			if err != nil {
				return err
			}
			if err := runCommand(line, c, rep); err != nil {
				rep.line("error: %v", err)
			}
		case 'q':
			return nil
		}
	}
}

// readCommandLine falls back to the tty's underlying input stream for a
// full line once the user has opened command mode with ':'.
func readCommandLine(t *tty.TTY) (string, error) {
	scanner := bufio.NewScanner(t.Input())
	if !scanner.Scan() {
		return "", scanner.Err()
	}
	return scanner.Text(), nil
}

func runCommand(line string, c *gc.Collector, rep *reporter) error {
	tokens, err := shlex.Split(line)
	if err != nil {
		return fmt.Errorf("parse command: %w", err)
	}
	if len(tokens) == 0 {
		return nil
	}
	switch tokens[0] {
	case "run":
		rep.cycle(c.Collect(gc.CauseExplicit))
	case "dump":
		rep.line("%s", c.Stats().DumpPerformanceInfo())
	case "history":
		for _, s := range c.Stats().History() {
			rep.cycle(s)
		}
	default:
		return fmt.Errorf("unknown command %q", tokens[0])
	}
	return nil
}
