package layout

import (
	"math"
	"testing"
)

func float64Ptr(v float64) *float64 {
	return &v
}

func TestConfigApply(t *testing.T) {
	cfg := DefaultConfig()

	changed, err := cfg.Apply(ConfigPatch{
		Repulsion: float64Ptr(120),
		Spread:    float64Ptr(500),
	})
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	if cfg.Repulsion != 120 {
		t.Errorf("Repulsion = %v, want 120", cfg.Repulsion)
	}
	if cfg.Spread != 500 {
		t.Errorf("Spread = %v, want 500", cfg.Spread)
	}
	if cfg.LinkDistance != DefaultConfig().LinkDistance {
		t.Errorf("LinkDistance changed by unrelated patch: %v", cfg.LinkDistance)
	}
	if len(changed) != 2 {
		t.Errorf("changed = %v, want 2 entries", changed)
	}
}

func TestConfigApplyRejectsNaN(t *testing.T) {
	cfg := DefaultConfig()
	before := cfg

	_, err := cfg.Apply(ConfigPatch{Repulsion: float64Ptr(math.NaN())})
	if err == nil {
		t.Fatal("Apply accepted NaN")
	}
	if cfg.Repulsion != before.Repulsion {
		t.Errorf("Repulsion mutated on failed apply: %v", cfg.Repulsion)
	}
}

func TestConfigApplyRejectsInf(t *testing.T) {
	cfg := DefaultConfig()
	if _, err := cfg.Apply(ConfigPatch{Spread: float64Ptr(math.Inf(1))}); err == nil {
		t.Fatal("Apply accepted +Inf")
	}
}

func TestConfigApplyRejectsBelowMinimum(t *testing.T) {
	cfg := DefaultConfig()
	if _, err := cfg.Apply(ConfigPatch{Spread: float64Ptr(0)}); err == nil {
		t.Fatal("Apply accepted spread below 1")
	}
	if _, err := cfg.Apply(ConfigPatch{Repulsion: float64Ptr(-1)}); err == nil {
		t.Fatal("Apply accepted negative repulsion")
	}
}

func TestConfigPatchIsEmpty(t *testing.T) {
	if !(ConfigPatch{}).IsEmpty() {
		t.Error("zero patch should be empty")
	}
	if (ConfigPatch{Spread: float64Ptr(100)}).IsEmpty() {
		t.Error("patch with a field should not be empty")
	}
}
