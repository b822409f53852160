package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JetBrains-Research/KotlinMemoryModelResearch/internal/engine"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "harness.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFileConfigAppliesSetFields(t *testing.T) {
	path := writeConfig(t, `
iterations: 50000
seed: 129
cores: [0, 2]
trial_timeout: 5s
fail_fast: true
trace_evidence: true
`)
	fc, err := LoadFileConfig(path)
	require.NoError(t, err)

	base := engine.Config{Iterations: 1000, Seed: 65, SettleDelay: time.Millisecond}
	cfg := fc.Apply(base)

	assert.Equal(t, 50000, cfg.Iterations)
	assert.Equal(t, uint32(129), cfg.Seed)
	assert.Equal(t, []int{0, 2}, cfg.Cores)
	assert.Equal(t, 5*time.Second, cfg.TrialTimeout)
	assert.True(t, cfg.FailFast)
	assert.True(t, cfg.TraceEvidence)

	// Absent keys keep the base values.
	assert.Equal(t, time.Millisecond, cfg.SettleDelay)
	assert.Zero(t, cfg.MaxEvidence)
}

func TestLoadFileConfigRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, "iteratons: 100\n")
	_, err := LoadFileConfig(path)
	assert.Error(t, err)
}

func TestLoadFileConfigMissingFile(t *testing.T) {
	_, err := LoadFileConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestApplyEmptyConfigIsIdentity(t *testing.T) {
	base := engine.Config{Iterations: 2000, Seed: 65, FailFast: true}
	cfg := (&FileConfig{}).Apply(base)
	assert.Equal(t, base, cfg)
}
