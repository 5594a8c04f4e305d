package gc

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigOverridesOnlyGivenFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cc.yaml")
	if err := os.WriteFile(path, []byte("gray_dirty_immune_objects: false\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.GrayDirtyImmuneObjects {
		t.Fatal("gray_dirty_immune_objects should have been overridden to false")
	}
	def := DefaultConfig()
	if cfg.UseBakerReadBarrier != def.UseBakerReadBarrier {
		t.Fatal("fields absent from the YAML document must keep their default value")
	}
	if cfg.MarkStackPoolSize != def.MarkStackPoolSize {
		t.Fatal("mark_stack_pool_size should still be the default")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected an error reading a missing config file")
	}
}
