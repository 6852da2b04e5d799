package config

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadOverridesOnlyPresentFields(t *testing.T) {
	cfg, err := Load(map[string]any{
		"state_format": "json",
		"ideamarks":    true,
	})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.StateFormat != "json" || !cfg.IdeaMarks {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.JumpCapacity != 100 || cfg.SavedFileCount != 20 {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestLoadNil(t *testing.T) {
	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg != Default() {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestLoadFromJSON(t *testing.T) {
	cfg, err := LoadFromJSON(strings.NewReader(`{"jump_capacity": 5, "state_path": "/tmp/m.db", "state_format": "sqlite"}`))
	if err != nil {
		t.Fatalf("LoadFromJSON failed: %v", err)
	}
	if cfg.JumpCapacity != 5 || cfg.StateFormat != "sqlite" {
		t.Errorf("unexpected config: %+v", cfg)
	}
	path, err := cfg.ResolveStatePath()
	if err != nil || path != "/tmp/m.db" {
		t.Errorf("ResolveStatePath = %q, %v", path, err)
	}

	if _, err := LoadFromJSON(strings.NewReader(`{"jump_capacity": "x"}`)); err == nil {
		t.Error("expected error for malformed config")
	}
}

func TestResolveStatePathDefault(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_STATE_HOME", dir)

	cfg := Default()
	cfg.StateFormat = "sqlite"
	path, err := cfg.ResolveStatePath()
	if err != nil {
		t.Fatalf("ResolveStatePath failed: %v", err)
	}
	if want := filepath.Join(dir, "waymark", "marks.db"); path != want {
		t.Errorf("path = %q, want %q", path, want)
	}
}

func TestMerge(t *testing.T) {
	base := Default()
	base.StatePath = "/var/lib/marks.xml"

	cfg, err := base.Merge(map[string]any{"jump_capacity": 7})
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if cfg.StatePath != "/var/lib/marks.xml" || cfg.JumpCapacity != 7 {
		t.Errorf("unexpected merge result: %+v", cfg)
	}
}
