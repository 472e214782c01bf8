// Package config provides configuration loading for the sigma-nav controller.
//
// Defaults match the parameters the planner was tuned against. A YAML file can
// override any of them, and endpoint settings additionally come from the
// environment so deployments can relocate services without editing files.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Default endpoints.
const (
	DefaultPlannerURL    = "ws://127.0.0.1:9091/ws/planner"
	DefaultRosbridgeURL  = "ws://127.0.0.1:9090"
	DefaultDashboardAddr = ":8080"
)

// Control holds the goal-tracking and heading-control parameters.
type Control struct {
	// Goal tolerances
	PositionThreshold float64 `yaml:"position_threshold"` // meters
	ThetaThreshold    float64 `yaml:"theta_threshold"`    // radians

	// PID gains for the heading loop
	Kp float64 `yaml:"kp"`
	Ki float64 `yaml:"ki"`
	Kd float64 `yaml:"kd"`

	// Anti-windup clamp on the integrator accumulator
	IntegratorBound float64 `yaml:"integrator_bound"`

	// Linear velocity set-point while driving toward a goal (m/s)
	CruiseVelocity float64 `yaml:"cruise_velocity"`
}

// Config is the full sigma-nav configuration.
type Config struct {
	PlannerURL    string `yaml:"planner_url"`
	RosbridgeURL  string `yaml:"rosbridge_url"`
	DashboardAddr string `yaml:"dashboard_addr"`
	LogLevel      string `yaml:"log_level"`

	Control Control `yaml:"control"`
}

// Default returns the configuration the controller ships with.
func Default() Config {
	return Config{
		PlannerURL:    DefaultPlannerURL,
		RosbridgeURL:  DefaultRosbridgeURL,
		DashboardAddr: DefaultDashboardAddr,
		LogLevel:      "info",
		Control: Control{
			PositionThreshold: 0.05,
			ThetaThreshold:    0.05,
			Kp:                1.0,
			Ki:                0.2,
			Kd:                0.2,
			IntegratorBound:   0.05,
			CruiseVelocity:    0.2,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file, and
// environment overrides, in that order of precedence.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("SIGMA_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv overlays endpoint settings from the environment.
func (c *Config) applyEnv() {
	if v := os.Getenv("SIGMA_PLANNER_URL"); v != "" {
		c.PlannerURL = v
	}
	if v := os.Getenv("SIGMA_ROSBRIDGE_URL"); v != "" {
		c.RosbridgeURL = v
	}
	if v := os.Getenv("SIGMA_DASHBOARD_ADDR"); v != "" {
		c.DashboardAddr = v
	}
	if v := os.Getenv("SIGMA_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}
