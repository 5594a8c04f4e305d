package gc

import (
	"os"

	"gopkg.in/yaml.v2"
)

// Config holds the tunables and compile-time flags spec.md §6 lists.
// Real ART bakes most of these in at compile time; this module follows
// the teacher's habit of keeping target-shaped knobs in a YAML document
// instead (tinygo's own build descriptors are YAML), loaded once at
// collector construction.
type Config struct {
	// Tunables.
	// DefaultGCMarkStackSize is gcMarkStack's initial capacity in bytes;
	// MarkStack converts it to a heap.Ptr count and doubles it every time
	// a GC-thread/Shared/GcExclusive push fills the current cap, per
	// spec.md §6.
	DefaultGCMarkStackSize uint64 `yaml:"default_gc_mark_stack_size"`
	ReadBarrierMarkStackSize uint64 `yaml:"read_barrier_mark_stack_size"`
	MarkStackPoolSize      int    `yaml:"mark_stack_pool_size"`

	// Compile-time flags (spec.md §6 "Tunables").
	UseBakerReadBarrier             bool `yaml:"use_baker_read_barrier"`
	// UseTableLookupReadBarrier is recorded but never branched on: this
	// module only implements the Baker barrier (SPEC_FULL.md Open
	// Question 1). It exists so the choice is visible in a loaded config
	// rather than silently absent.
	UseTableLookupReadBarrier       bool `yaml:"use_table_lookup_read_barrier"`
	GrayDirtyImmuneObjects          bool `yaml:"gray_dirty_immune_objects"`
	// EnableFromSpaceAccountingCheck makes flipCallback snapshot the
	// from-space/unevac-from-space object and byte counts and reclaimPhase
	// assert they haven't moved before ClearFromSpace runs (gc/phase.go).
	EnableFromSpaceAccountingCheck  bool `yaml:"enable_from_space_accounting_check"`
	EnableNoFromSpaceRefsVerification bool `yaml:"enable_no_from_space_refs_verification"`
	// DisallowReadBarrierDuringScan makes Scanner.ScanObject assert that
	// the object it is about to scan isn't already mid-scan, catching a
	// reentrant Scan the way ART's ModifyDebugDisallowReadBarier bracket
	// catches an accidental barriered read during the unbarriered field walk.
	DisallowReadBarrierDuringScan   bool `yaml:"disallow_read_barrier_during_scan"`
	FilterModUnionCards             bool `yaml:"filter_mod_union_cards"`
}

// DefaultConfig matches the defaults named in spec.md §6: a 2 MiB shared
// mark stack, 512 KiB thread-local pooled stacks, Baker barriers on,
// table-lookup barriers off (Open Question 1 in SPEC_FULL.md), and
// dirty-card graying of immune objects at the flip turned on.
func DefaultConfig() Config {
	return Config{
		DefaultGCMarkStackSize:   2 << 20,
		ReadBarrierMarkStackSize: 512 << 10,
		MarkStackPoolSize:        8,

		UseBakerReadBarrier:               true,
		UseTableLookupReadBarrier:         false,
		GrayDirtyImmuneObjects:            true,
		EnableFromSpaceAccountingCheck:    false,
		EnableNoFromSpaceRefsVerification: false,
		DisallowReadBarrierDuringScan:     false,
		FilterModUnionCards:               true,
	}
}

// LoadConfig reads a YAML config file on top of DefaultConfig, so a file
// that only sets e.g. gray_dirty_immune_objects leaves every other
// tunable at its default.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
