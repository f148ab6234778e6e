package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Width != 640 || cfg.Height != 480 {
		t.Fatalf("default size = %dx%d, want 640x480", cfg.Width, cfg.Height)
	}
	if cfg.ScaleDown != 1 || cfg.MoveStep != 16 {
		t.Fatalf("default scaling = (%d, %d), want (1, 16)", cfg.ScaleDown, cfg.MoveStep)
	}
	if cfg.PerspectiveAngle != 0 {
		t.Fatalf("default perspective angle = %v, want 0", cfg.PerspectiveAngle)
	}
}

func TestValidateClampsValues(t *testing.T) {
	cfg := &Config{Width: -5, Height: 0, ScaleDown: 0, MoveStep: -1, PerspectiveAngle: -2, Distance: -1}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Width != 640 || cfg.Height != 480 || cfg.ScaleDown != 1 || cfg.MoveStep != 16 {
		t.Fatalf("clamped config = %+v", cfg)
	}
	if cfg.PerspectiveAngle != 0 || cfg.Distance != 0 {
		t.Fatalf("optics not clamped: %+v", cfg)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MoveStep != 16 {
		t.Fatalf("missing file should yield defaults, got %+v", cfg)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flow.json")
	cfg := DefaultConfig()
	cfg.ScaleDown = 4
	cfg.MoveStep = 8
	cfg.PerspectiveAngle = 0.8
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.ScaleDown != 4 || got.MoveStep != 8 || got.PerspectiveAngle != 0.8 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file missing: %v", err)
	}
}
