package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	if cfg.Control.PositionThreshold != 0.05 {
		t.Errorf("PositionThreshold = %v, want 0.05", cfg.Control.PositionThreshold)
	}
	if cfg.Control.ThetaThreshold != 0.05 {
		t.Errorf("ThetaThreshold = %v, want 0.05", cfg.Control.ThetaThreshold)
	}
	if cfg.Control.Kp != 1.0 || cfg.Control.Ki != 0.2 || cfg.Control.Kd != 0.2 {
		t.Errorf("gains = %v/%v/%v, want 1.0/0.2/0.2", cfg.Control.Kp, cfg.Control.Ki, cfg.Control.Kd)
	}
	if cfg.Control.CruiseVelocity != 0.2 {
		t.Errorf("CruiseVelocity = %v, want 0.2", cfg.Control.CruiseVelocity)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sigma.yaml")
	data := []byte("planner_url: ws://planner:9091/ws/planner\ncontrol:\n  kp: 2.5\n  cruise_velocity: 0.35\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.PlannerURL != "ws://planner:9091/ws/planner" {
		t.Errorf("PlannerURL = %q", cfg.PlannerURL)
	}
	if cfg.Control.Kp != 2.5 {
		t.Errorf("Kp = %v, want 2.5", cfg.Control.Kp)
	}
	if cfg.Control.CruiseVelocity != 0.35 {
		t.Errorf("CruiseVelocity = %v, want 0.35", cfg.Control.CruiseVelocity)
	}
	// Untouched fields keep their defaults
	if cfg.Control.Ki != 0.2 {
		t.Errorf("Ki = %v, want default 0.2", cfg.Control.Ki)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SIGMA_CONFIG", "")
	t.Setenv("SIGMA_ROSBRIDGE_URL", "ws://base:9090")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RosbridgeURL != "ws://base:9090" {
		t.Errorf("RosbridgeURL = %q, want env override", cfg.RosbridgeURL)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}
