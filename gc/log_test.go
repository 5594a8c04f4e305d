package gc

import (
	"bytes"
	"log"
	"strings"
	"testing"
)

func TestStdLoggerDebugfRespectsVerboseFlag(t *testing.T) {
	var buf bytes.Buffer
	orig := log.Writer()
	log.SetOutput(&buf)
	defer log.SetOutput(orig)

	quiet := NewStdLogger(false)
	quiet.Debugf("should not appear")
	if buf.Len() != 0 {
		t.Fatalf("Debugf on a non-verbose logger wrote %q, want nothing", buf.String())
	}

	loud := NewStdLogger(true)
	loud.Debugf("hello %d", 7)
	if !strings.Contains(buf.String(), "hello 7") {
		t.Fatalf("Debugf on a verbose logger = %q, want it to contain the formatted message", buf.String())
	}
}

func TestStdLoggerPhasefAlwaysLogs(t *testing.T) {
	var buf bytes.Buffer
	orig := log.Writer()
	log.SetOutput(&buf)
	defer log.SetOutput(orig)

	NewStdLogger(false).Phasef("Marking")
	if !strings.Contains(buf.String(), "Marking") {
		t.Fatalf("Phasef = %q, want it to contain the phase name regardless of verbosity", buf.String())
	}
}

func TestNopLoggerDiscardsEverything(t *testing.T) {
	var l nopLogger
	l.Phasef("x")
	l.Debugf("y")
}
