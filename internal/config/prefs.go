package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"hub-service/internal/types"
)

// Prefs is the operator-controlled subset persisted across restarts.
type Prefs struct {
	Mode             types.Mode `yaml:"mode"`
	TelemetryAddress string     `yaml:"telemetry_address"`
	MotorSpeed       float64    `yaml:"motor_speed"`
}

// DefaultPrefs returns the preferences used when no state file exists.
func DefaultPrefs() Prefs {
	return Prefs{
		Mode:             types.ModeDemo,
		TelemetryAddress: "10.40.68.2",
		MotorSpeed:       0.5,
	}
}

// PrefStore loads and saves preferences at a fixed path. Failures are
// reported but callers treat them as non-fatal and fall back to defaults.
type PrefStore struct {
	Path string
}

func (s *PrefStore) Load() (Prefs, error) {
	p := DefaultPrefs()
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return p, err
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return DefaultPrefs(), fmt.Errorf("parse %s: %w", s.Path, err)
	}
	if _, err := types.ParseMode(string(p.Mode)); err != nil {
		p.Mode = types.ModeDemo
	}
	return p, nil
}

func (s *PrefStore) Save(p Prefs) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	if err := os.WriteFile(s.Path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", s.Path, err)
	}
	return nil
}
