package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/brownwork/internal/dynamo"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Steps != 100 || cfg.Dt != 0.1 || cfg.Displacement != 5 {
		t.Errorf("unexpected protocol defaults: %+v", cfg)
	}
	if cfg.Samples != 100000 {
		t.Errorf("expected 100000 samples, got %d", cfg.Samples)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestProtocol(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Seed = 9
	cfg.BatchSize = 0

	p := cfg.Protocol()
	if p.Seed != 9 || p.K != 1 || p.Beta != 1 || p.Gamma != 1 {
		t.Errorf("unexpected protocol %+v", p)
	}
	if p.BatchSize != dynamo.DefaultBatchSize {
		t.Errorf("expected default batch size, got %d", p.BatchSize)
	}
}

func TestValidateRejectsDegenerateProtocol(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Dt = 0
	if err := cfg.Validate(); !errors.Is(err, dynamo.ErrInvalidParameter) {
		t.Errorf("expected ErrInvalidParameter, got %v", err)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	data := []byte("physics:\n  beta: 2\nsteps: 50\nseed: 7\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Physics.Beta != 2 || cfg.Steps != 50 || cfg.Seed != 7 {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.Physics.K != DefaultK || cfg.Dt != 0.1 {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("steps: [1, 2"), 0644)
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed yaml")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	cfg := DefaultConfig()
	cfg.Samples = 123
	cfg.Physics.Gamma = 0.5
	cfg.Output = "out.csv"

	if err := Save(path, cfg); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if *got != *cfg {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, cfg)
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("reference")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if cfg.Protocol().Velocity() != 0.5 {
		t.Errorf("reference velocity %v, want 0.5", cfg.Protocol().Velocity())
	}

	cfg.Samples = 1
	if Presets["reference"].Samples == 1 {
		t.Error("GetPreset must return a copy")
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if GetPreset("nonexistent") != nil {
		t.Error("expected nil for nonexistent preset")
	}
}

func TestPresetsValidate(t *testing.T) {
	names := ListPresets()
	if len(names) != len(Presets) {
		t.Fatalf("ListPresets returned %d names for %d presets", len(names), len(Presets))
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Errorf("presets not sorted: %v", names)
		}
	}
	for _, name := range names {
		if err := GetPreset(name).Validate(); err != nil {
			t.Errorf("preset %s invalid: %v", name, err)
		}
	}
}

func TestLoadFromPreset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	if err := os.WriteFile(path, []byte("samples: 7\n"), 0644); err != nil {
		t.Fatal(err)
	}

	base := GetPreset("stiff")
	cfg, err := LoadFrom(path, base)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Samples != 7 || cfg.Physics.K != 4 || cfg.Steps != 200 {
		t.Errorf("expected preset with overridden samples, got %+v", cfg)
	}
	if base.Samples == 7 {
		t.Error("LoadFrom must not modify base")
	}
}

func TestOutputPath(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "table.csv")

	tests := []struct {
		name   string
		output string
		want   string
	}{
		{"unset", "", ""},
		{"file", file, file},
		{"existing directory", dir, filepath.Join(dir, DefaultOut)},
		{"trailing separator", filepath.Join(dir, "new") + string(filepath.Separator), filepath.Join(dir, "new", DefaultOut)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Output = tt.output
			if got := cfg.OutputPath(); got != tt.want {
				t.Errorf("OutputPath() = %q, want %q", got, tt.want)
			}
		})
	}
}
