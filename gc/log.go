package gc

import "log"

// Logger is the narrow interface every phase transition and slow-path
// event is reported through, rather than calling fmt.Println directly
// from deep inside the collector. cmd/ccgc uses NewStdLogger; tests pass
// a nil Logger, which NewCollector replaces with the silent nopLogger.
type Logger interface {
	Phasef(format string, args ...any)
	Debugf(format string, args ...any)
}

// stdLogger routes through the standard log package, matching how the
// teacher's own build diagnostics go through log.Printf rather than a
// bespoke structured logger.
type stdLogger struct {
	verbose bool
}

func NewStdLogger(verbose bool) Logger { return &stdLogger{verbose: verbose} }

func (l *stdLogger) Phasef(format string, args ...any) {
	log.Printf("[gc] "+format, args...)
}

func (l *stdLogger) Debugf(format string, args ...any) {
	if l.verbose {
		log.Printf("[gc debug] "+format, args...)
	}
}

// nopLogger discards everything; used as the Collector default so tests
// don't need to wire a logger to exercise phase transitions.
type nopLogger struct{}

func (nopLogger) Phasef(string, ...any) {}
func (nopLogger) Debugf(string, ...any) {}
