package gc

import "fmt"

// FatalError is a broken-invariant diagnosis (spec.md §7, "Assertion").
// It is never returned as an error value from the collector's own
// phases — spec.md is explicit that invariant breaks abort the process
// — so the collector panics with one instead of threading an error
// return through every phase function. Callers that want to turn a
// panic back into a normal control-flow error (the CLI harness, tests
// asserting on a deliberately corrupted heap) can recover and type-assert.
type FatalError struct {
	Kind    string // e.g. "from-space-reference-survived", "color-law"
	Detail  string
	Dump    string // diagnostic dump: holder/ref types, regions, rb-words, maps
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("gc: fatal: %s: %s\n%s", e.Kind, e.Detail, e.Dump)
}

func fatalf(kind, dump, format string, args ...any) {
	panic(&FatalError{Kind: kind, Detail: fmt.Sprintf(format, args...), Dump: dump})
}
