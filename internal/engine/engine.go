package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/JetBrains-Research/KotlinMemoryModelResearch/internal/litmus"
	"github.com/JetBrains-Research/KotlinMemoryModelResearch/internal/sched"
	"github.com/JetBrains-Research/KotlinMemoryModelResearch/internal/state"
)

// goldenGamma separates per-worker seed streams derived from one trial seed.
const goldenGamma = 0x9e3779b9

// Engine is the litmus-test trial driver.
//
// One Engine owns one test, one trial state, and one recorder; concurrent
// runs of different tests each build their own Engine and share nothing.
type Engine struct {
	test   *litmus.Test
	cfg    Config
	prog   [][]compiledOp
	cores  []int
	state  *state.State
	rec    *recorder
	tokens TokenGenerator
}

// Option configures an Engine beyond its Config.
type Option func(*Engine)

// WithTokenGenerator overrides the run-token generator. Tests use a fixed
// generator for deterministic report output.
func WithTokenGenerator(g TokenGenerator) Option {
	return func(e *Engine) { e.tokens = g }
}

// New validates the test and configuration and builds an engine.
// All configuration defects surface here, before any trial runs.
func New(test *litmus.Test, cfg Config, opts ...Option) (*Engine, error) {
	if err := test.Validate(); err != nil {
		return nil, newConfigError("invalid test: %v", err)
	}
	cfg = cfg.withDefaults()
	if cfg.Iterations <= 0 {
		return nil, newConfigError("iterations must be positive, got %d", cfg.Iterations)
	}
	if cfg.MaxEvidence < 0 {
		return nil, newConfigError("evidence cap must not be negative, got %d", cfg.MaxEvidence)
	}

	cores, err := resolveCores(cfg, len(test.Workers))
	if err != nil {
		return nil, err
	}

	e := &Engine{
		test:   test,
		cfg:    cfg,
		prog:   compile(test),
		cores:  cores,
		state:  state.New(test),
		rec:    newRecorder(test, cfg.MaxEvidence),
		tokens: UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// resolveCores produces the per-worker core assignment. Distinctness and
// availability are enforced only when pinning is mandatory: with unpinned
// fallback allowed, a refused or nonsensical pin degrades at run time
// instead of failing the configuration.
func resolveCores(cfg Config, workers int) ([]int, error) {
	cores := cfg.Cores
	if cores == nil {
		cores = make([]int, workers)
		for i := range cores {
			cores[i] = i
		}
	}
	if len(cores) != workers {
		return nil, newConfigError("%d workers but %d core assignments", workers, len(cores))
	}
	if cfg.AllowUnpinned {
		return cores, nil
	}
	avail := sched.LogicalCores()
	seen := make(map[int]bool, len(cores))
	for w, c := range cores {
		if c < 0 || c >= avail {
			return nil, newConfigError("worker %d assigned core %d but only %d cores are available", w, c, avail)
		}
		if seen[c] {
			return nil, newConfigError("core %d assigned to more than one worker", c)
		}
		seen[c] = true
	}
	return cores, nil
}

// Run executes the configured number of trials and returns the run report.
//
// The report is always returned, possibly partial: on a harness fault it
// carries the histogram gathered so far, status HarnessFault, and the error
// is returned alongside. A forbidden outcome is not an error; it sets the
// ViolationFound status and is described by the evidence records.
//
// Trials are never retried. A trial either completes within its deadline or
// the whole run aborts as a harness fault.
func (e *Engine) Run(ctx context.Context) (*litmus.RunReport, error) {
	report := &litmus.RunReport{
		RunID:  e.tokens.Generate(),
		Test:   e.test.Name,
		Status: litmus.StatusCompleted,
		Seed:   e.cfg.Seed,
	}
	slog.Info("run starting",
		"run", report.RunID,
		"test", e.test.Name,
		"iterations", e.cfg.Iterations,
		"seed", e.cfg.Seed,
		"cores", e.cores,
	)

	for i := 0; i < e.cfg.Iterations; i++ {
		if err := ctx.Err(); err != nil {
			return e.fault(report, i, fmt.Errorf("run cancelled: %w", err))
		}
		seed := e.trialSeed(i)
		e.state.Reset(seed)

		results, err := e.runTrial(ctx, i, seed)
		if err != nil {
			return e.fault(report, i, err)
		}

		outcome := gather(e.test, results)
		class := e.rec.record(outcome)
		report.Trials++
		slog.Debug("trial finished",
			"trial", i,
			"outcome", outcome.Key(),
			"class", class.String(),
			"sink", e.state.SinkSum(),
		)

		violation := class == litmus.Forbidden ||
			(class == litmus.Unexpected && e.test.Outcomes.ClosedWorld)
		if violation {
			report.Status = litmus.StatusViolationFound
			e.rec.retain(litmus.Evidence{
				Trial:          i,
				Seed:           seed,
				Outcome:        outcome,
				Key:            outcome.Key(),
				Classification: class.String(),
				Vars:           e.evidenceTrace(),
			})
			slog.Warn("forbidden outcome witnessed",
				"trial", i,
				"seed", seed,
				"outcome", outcome.Key(),
				"class", class.String(),
			)
			if e.cfg.FailFast {
				break
			}
		}
	}

	report.Histogram = e.rec.histogram()
	report.Forbidden = e.rec.forbidden
	report.Unexpected = e.rec.unexpected
	report.Evidence = e.rec.evidence
	slog.Info("run finished",
		"run", report.RunID,
		"status", string(report.Status),
		"trials", report.Trials,
		"forbidden", report.Forbidden,
		"unexpected", report.Unexpected,
	)
	return report, nil
}

// ReplayTrial re-runs a single trial with the exact seed trial index i had
// in a full run, without touching the recorder. The scripted per-trial
// random choices are identical to the original trial; the true interleaving
// may still differ, so the witnessed outcome can legitimately vary.
func (e *Engine) ReplayTrial(ctx context.Context, i int) (litmus.Outcome, map[string][]int64, error) {
	if i < 0 {
		return nil, nil, newConfigError("trial index must not be negative, got %d", i)
	}
	seed := e.trialSeed(i)
	e.state.Reset(seed)
	results, err := e.runTrial(ctx, i, seed)
	if err != nil {
		return nil, nil, err
	}
	return gather(e.test, results), e.state.Snapshot(), nil
}

// TrialSeed exposes the seed derivation for trial i.
func (e *Engine) TrialSeed(i int) uint32 { return e.trialSeed(i) }

func (e *Engine) trialSeed(i int) uint32 { return e.cfg.Seed + uint32(i) }

func workerSeed(trialSeed uint32, w int) uint32 {
	return trialSeed + uint32(w+1)*goldenGamma
}

func (e *Engine) evidenceTrace() map[string][]int64 {
	if !e.cfg.TraceEvidence {
		return nil
	}
	return e.state.Snapshot()
}

func (e *Engine) fault(report *litmus.RunReport, trial int, err error) (*litmus.RunReport, error) {
	report.Status = litmus.StatusHarnessFault
	report.Fault = err.Error()
	report.Histogram = e.rec.histogram()
	report.Forbidden = e.rec.forbidden
	report.Unexpected = e.rec.unexpected
	report.Evidence = e.rec.evidence
	slog.Error("harness fault", "trial", trial, "error", err)
	return report, err
}

// gather assembles the canonical outcome tuple from the workers' result
// slots, in fixed worker order.
func gather(t *litmus.Test, results [][]int64) litmus.Outcome {
	outcome := make(litmus.Outcome, 0, t.RegisterCount())
	for w := range t.Workers {
		outcome = append(outcome, results[w]...)
	}
	return outcome
}
