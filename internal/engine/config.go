package engine

import "time"

// Defaults applied by Config.withDefaults. The settle delay and check
// cadence follow the original reproduction programs.
const (
	DefaultJitterMaxSpins  = 4096
	DefaultScanJitterSpins = 8
	DefaultCheckEvery      = 50
	DefaultTrialTimeout    = 30 * time.Second
	DefaultSettleDelay     = 10 * time.Millisecond
	DefaultMaxEvidence     = 16
)

// Config is the harness configuration for one run.
type Config struct {
	// Iterations is the trial budget. Required, > 0.
	Iterations int

	// Cores assigns one distinct logical core per worker. Nil assigns
	// cores 0..n-1.
	Cores []int

	// Seed is the master seed; trial i derives its seed as Seed + i, so
	// any failing trial is reproducible by re-seeding.
	Seed uint32

	// JitterMaxSpins bounds the random spin of jitter ops that do not
	// carry their own bound.
	JitterMaxSpins int

	// ScanJitterSpins bounds the small per-iteration spin inside scan
	// ops, widening the interleaving distribution the way the originals
	// used microsecond sleeps.
	ScanJitterSpins int

	// CheckEvery is the default coherence-check cadence for scan-read ops
	// that do not carry their own.
	CheckEvery int

	// TrialTimeout is the wall-clock deadline for one trial's
	// ready-to-joined span. Expiry aborts the whole run.
	TrialTimeout time.Duration

	// SettleDelay is the pause between the last ready signal and the go
	// broadcast, letting affinity changes settle.
	SettleDelay time.Duration

	// FailFast stops the run at the first forbidden outcome.
	FailFast bool

	// MaxEvidence caps retained violation records. The run keeps counting
	// violations past the cap; only the records are dropped.
	MaxEvidence int

	// AllowUnpinned downgrades pinning failures to unpinned execution
	// with a warning instead of a harness fault.
	AllowUnpinned bool

	// TraceEvidence attaches the full per-variable value trace to each
	// evidence record.
	TraceEvidence bool
}

func (c Config) withDefaults() Config {
	if c.JitterMaxSpins == 0 {
		c.JitterMaxSpins = DefaultJitterMaxSpins
	}
	if c.ScanJitterSpins == 0 {
		c.ScanJitterSpins = DefaultScanJitterSpins
	}
	if c.CheckEvery == 0 {
		c.CheckEvery = DefaultCheckEvery
	}
	if c.TrialTimeout == 0 {
		c.TrialTimeout = DefaultTrialTimeout
	}
	if c.SettleDelay == 0 {
		c.SettleDelay = DefaultSettleDelay
	}
	if c.MaxEvidence == 0 {
		c.MaxEvidence = DefaultMaxEvidence
	}
	return c
}
