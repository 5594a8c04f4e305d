package gc

// Cause records why a collection ran, supplementing spec.md per
// SPEC_FULL.md §4 ("GC-cause tracking"). It drives force_evacuate_all
// and clear-soft-refs exactly as spec.md §4.1.1 specifies.
type Cause uint8

const (
	CauseExplicit Cause = iota
	CauseForNativeAlloc
	CauseForAlloc
	CauseBackground
	CauseClearSoftReferences
)

func (c Cause) String() string {
	switch c {
	case CauseExplicit:
		return "explicit"
	case CauseForNativeAlloc:
		return "native-alloc-pressure"
	case CauseForAlloc:
		return "alloc"
	case CauseBackground:
		return "background"
	case CauseClearSoftReferences:
		return "clear-soft-references"
	default:
		return "unknown"
	}
}

// ForcesEvacuateAll implements spec.md §4.1.1: "Set force_evacuate_all =
// true if the cause is explicit, native-alloc pressure, or
// clear-soft-refs; else false."
func (c Cause) ForcesEvacuateAll() bool {
	switch c {
	case CauseExplicit, CauseForNativeAlloc, CauseClearSoftReferences:
		return true
	default:
		return false
	}
}

// ClearsSoftReferences reports whether this cause should clear soft
// references outright during reference processing.
func (c Cause) ClearsSoftReferences() bool {
	return c == CauseClearSoftReferences
}
