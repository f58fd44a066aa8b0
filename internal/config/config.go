// YAML profile loader with CUE validation integration
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Observations describes a telemetry generation run.
type Observations struct {
	PerUnit            int    `yaml:"observations_per_unit,omitempty"`
	Devices            int    `yaml:"devices,omitempty"`
	Days               int    `yaml:"days,omitempty"`
	StartDate          string `yaml:"start_date,omitempty"`
	Resolution         string `yaml:"resolution,omitempty"`
	DisableSuppression bool   `yaml:"disable_suppression,omitempty"`
	PathPrefix         string `yaml:"path_prefix,omitempty"`
}

// Complete reports whether all four required generator inputs are set.
func (o Observations) Complete() bool {
	return o.PerUnit > 0 && o.Devices > 0 && o.Days > 0 && o.StartDate != ""
}

// Vessels describes a fleet simulation run.
type Vessels struct {
	Boats    int     `yaml:"boats,omitempty"`
	BaseLat  float64 `yaml:"base_lat,omitempty"`
	BaseLon  float64 `yaml:"base_lon,omitempty"`
	RadiusNM float64 `yaml:"radius_nm,omitempty"`
	Steps    int     `yaml:"steps,omitempty"`
	Interval string  `yaml:"interval,omitempty"`
}

// IntervalDuration parses the step interval. An empty interval is zero.
func (v Vessels) IntervalDuration() (time.Duration, error) {
	if v.Interval == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v.Interval)
	if err != nil {
		return 0, fmt.Errorf("invalid vessel interval %q: %w", v.Interval, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid vessel interval %q: must not be negative", v.Interval)
	}
	return d, nil
}

// Profile is the root configuration of a named fixture preset.
type Profile struct {
	Name         string        `yaml:"name,omitempty"`
	Description  string        `yaml:"description,omitempty"`
	Seed         int64         `yaml:"seed,omitempty"`
	Observations *Observations `yaml:"observations,omitempty"`
	Vessels      *Vessels      `yaml:"vessels,omitempty"`
}

// Load reads a YAML profile and validates it against the CUE schema.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	return Parse(path, data)
}

// Parse validates and decodes profile bytes. filename is used in error messages.
func Parse(filename string, data []byte) (*Profile, error) {
	if err := ValidateWithCue(filename, data); err != nil {
		return nil, err
	}
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse profile: %w", err)
	}
	if p.Vessels != nil {
		if _, err := p.Vessels.IntervalDuration(); err != nil {
			return nil, err
		}
	}
	return &p, nil
}
