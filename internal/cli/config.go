package cli

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/JetBrains-Research/KotlinMemoryModelResearch/internal/engine"
)

// Duration wraps time.Duration with YAML support for strings like "30s".
type Duration time.Duration

// UnmarshalYAML parses a Go duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// FileConfig is the YAML shape of a harness configuration file. All fields
// are optional pointers so that an absent key leaves the catalog's suggested
// value untouched.
type FileConfig struct {
	Iterations      *int      `yaml:"iterations"`
	Cores           []int     `yaml:"cores"`
	Seed            *uint32   `yaml:"seed"`
	JitterMaxSpins  *int      `yaml:"jitter_max_spins"`
	ScanJitterSpins *int      `yaml:"scan_jitter_spins"`
	CheckEvery      *int      `yaml:"check_every"`
	TrialTimeout    *Duration `yaml:"trial_timeout"`
	SettleDelay     *Duration `yaml:"settle_delay"`
	FailFast        *bool     `yaml:"fail_fast"`
	MaxEvidence     *int      `yaml:"max_evidence"`
	AllowUnpinned   *bool     `yaml:"allow_unpinned"`
	TraceEvidence   *bool     `yaml:"trace_evidence"`
}

// LoadFileConfig reads and parses a YAML configuration file. Unknown keys
// are rejected so a typo does not silently fall back to a default.
func LoadFileConfig(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var fc FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return &fc, nil
}

// Apply overlays the file's set fields onto a base configuration.
func (fc *FileConfig) Apply(cfg engine.Config) engine.Config {
	if fc.Iterations != nil {
		cfg.Iterations = *fc.Iterations
	}
	if fc.Cores != nil {
		cfg.Cores = fc.Cores
	}
	if fc.Seed != nil {
		cfg.Seed = *fc.Seed
	}
	if fc.JitterMaxSpins != nil {
		cfg.JitterMaxSpins = *fc.JitterMaxSpins
	}
	if fc.ScanJitterSpins != nil {
		cfg.ScanJitterSpins = *fc.ScanJitterSpins
	}
	if fc.CheckEvery != nil {
		cfg.CheckEvery = *fc.CheckEvery
	}
	if fc.TrialTimeout != nil {
		cfg.TrialTimeout = time.Duration(*fc.TrialTimeout)
	}
	if fc.SettleDelay != nil {
		cfg.SettleDelay = time.Duration(*fc.SettleDelay)
	}
	if fc.FailFast != nil {
		cfg.FailFast = *fc.FailFast
	}
	if fc.MaxEvidence != nil {
		cfg.MaxEvidence = *fc.MaxEvidence
	}
	if fc.AllowUnpinned != nil {
		cfg.AllowUnpinned = *fc.AllowUnpinned
	}
	if fc.TraceEvidence != nil {
		cfg.TraceEvidence = *fc.TraceEvidence
	}
	return cfg
}
