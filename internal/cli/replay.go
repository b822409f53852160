package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/JetBrains-Research/KotlinMemoryModelResearch/internal/catalog"
	"github.com/JetBrains-Research/KotlinMemoryModelResearch/internal/engine"
	"github.com/JetBrains-Research/KotlinMemoryModelResearch/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Seed          uint32
	AllowUnpinned bool
	Database      string
	RunID         string

	// Tokens overrides the run-token generator (for testing).
	Tokens engine.TokenGenerator
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <test> <trial>",
		Short: "Re-run a single trial with its original seed",
		Long: `Re-run one trial of a catalogued test. The trial seed is re-derived from
the master seed (catalog default, --seed, or the seed recorded for a stored
run with --db and --run), so the scripted per-trial random choices repeat
exactly. The true thread interleaving can still differ, so a violation may
or may not reappear on any given replay.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			trial, err := strconv.Atoi(args[1])
			if err != nil {
				return WrapExitError(ExitCommandError, "trial index must be an integer", err)
			}
			return replayTrial(opts, args[0], trial, cmd)
		},
	}

	cmd.Flags().Uint32Var(&opts.Seed, "seed", 0, "master seed override")
	cmd.Flags().BoolVar(&opts.AllowUnpinned, "allow-unpinned", false, "run unpinned when affinity is refused")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database of stored runs")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "stored run to take the master seed from (requires --db)")

	return cmd
}

func replayTrial(opts *ReplayOptions, name string, trial int, cmd *cobra.Command) error {
	entry, err := catalog.Get(name)
	if err != nil {
		return WrapExitError(ExitCommandError, "unknown test", err)
	}

	cfg := entry.Config
	if cmd.Flags().Changed("seed") {
		cfg.Seed = opts.Seed
	}
	if opts.AllowUnpinned {
		cfg.AllowUnpinned = true
	}

	if opts.RunID != "" {
		if opts.Database == "" {
			return NewExitError(ExitCommandError, "--run requires --db")
		}
		seed, err := storedSeed(opts.Database, opts.RunID, name)
		if err != nil {
			return WrapExitError(ExitCommandError, "load stored run", err)
		}
		cfg.Seed = seed
	}

	engOpts := []engine.Option{}
	if opts.Tokens != nil {
		engOpts = append(engOpts, engine.WithTokenGenerator(opts.Tokens))
	}
	eng, err := engine.New(entry.Test, cfg, engOpts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	outcome, vars, err := eng.ReplayTrial(ctx, trial)
	if err != nil {
		return WrapExitError(ExitCommandError, "replay failed", err)
	}
	class := entry.Test.Outcomes.Classify(outcome)

	out := cmd.OutOrStdout()
	if opts.Format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"test":           name,
			"trial":          trial,
			"seed":           eng.TrialSeed(trial),
			"outcome":        outcome,
			"key":            outcome.Key(),
			"classification": class.String(),
			"vars":           vars,
		})
	}

	fmt.Fprintf(out, "test:    %s\n", name)
	fmt.Fprintf(out, "trial:   %d\n", trial)
	fmt.Fprintf(out, "seed:    %d\n", eng.TrialSeed(trial))
	fmt.Fprintf(out, "outcome: {%s} (%s)\n", outcome.Key(), class.String())
	names := make([]string, 0, len(vars))
	for v := range vars {
		names = append(names, v)
	}
	sort.Strings(names)
	for _, v := range names {
		fmt.Fprintf(out, "  %s = %v\n", v, vars[v])
	}
	return nil
}

// storedSeed reads a stored run's master seed, checking that the run
// replayed the same test the user named.
func storedSeed(dbPath, runID, test string) (uint32, error) {
	st, err := store.Open(dbPath)
	if err != nil {
		return 0, err
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	report, err := st.GetReport(context.Background(), runID)
	if err != nil {
		return 0, err
	}
	if report.Test != test {
		return 0, fmt.Errorf("run %s executed test %q, not %q", runID, report.Test, test)
	}
	return report.Seed, nil
}
