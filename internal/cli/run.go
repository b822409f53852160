package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/JetBrains-Research/KotlinMemoryModelResearch/internal/catalog"
	"github.com/JetBrains-Research/KotlinMemoryModelResearch/internal/engine"
	"github.com/JetBrains-Research/KotlinMemoryModelResearch/internal/litmus"
	"github.com/JetBrains-Research/KotlinMemoryModelResearch/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Iterations    int
	Seed          uint32
	Cores         []int
	Timeout       time.Duration
	Settle        time.Duration
	FailFast      bool
	Evidence      int
	AllowUnpinned bool
	ClosedWorld   bool
	Trace         bool
	ConfigPath    string
	Database      string

	// Tokens overrides the run-token generator (for testing).
	Tokens engine.TokenGenerator
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <test>",
		Short: "Run a catalogued litmus test",
		Long: `Run one litmus test from the catalog for many trials and classify each
witnessed outcome against the test's oracle.

Flags override the catalog's suggested configuration; a YAML config file
(--config) is applied first, explicit flags last.

Example:
  litmus run store-buffering-sc --iterations 500000
  litmus run publication --db ./litmus.db --fail-fast --trace`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTest(opts, args[0], cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Iterations, "iterations", 0, "trial budget (0 keeps the catalog default)")
	cmd.Flags().Uint32Var(&opts.Seed, "seed", 0, "master seed (0 keeps the catalog default)")
	cmd.Flags().IntSliceVar(&opts.Cores, "cores", nil, "logical core per worker, e.g. --cores 0,2")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "per-trial deadline")
	cmd.Flags().DurationVar(&opts.Settle, "settle", 0, "delay between ready and go")
	cmd.Flags().BoolVar(&opts.FailFast, "fail-fast", false, "stop at the first forbidden outcome")
	cmd.Flags().IntVar(&opts.Evidence, "evidence", 0, "max retained violation records")
	cmd.Flags().BoolVar(&opts.AllowUnpinned, "allow-unpinned", false, "run unpinned when affinity is refused")
	cmd.Flags().BoolVar(&opts.ClosedWorld, "closed-world", false, "treat unexpected outcomes as violations")
	cmd.Flags().BoolVar(&opts.Trace, "trace", false, "attach per-variable traces to evidence")
	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "path to YAML config file")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database for report persistence")

	return cmd
}

func runTest(opts *RunOptions, name string, cmd *cobra.Command) error {
	entry, err := catalog.Get(name)
	if err != nil {
		return WrapExitError(ExitCommandError, "unknown test", err)
	}

	cfg, err := resolveConfig(opts, entry.Config, cmd)
	if err != nil {
		return err
	}
	if opts.ClosedWorld {
		entry.Test.Outcomes.ClosedWorld = true
	}

	engOpts := []engine.Option{}
	if opts.Tokens != nil {
		engOpts = append(engOpts, engine.WithTokenGenerator(opts.Tokens))
	}
	eng, err := engine.New(entry.Test, cfg, engOpts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	report, runErr := eng.Run(ctx)

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if report != nil {
		if err := formatter.RenderReport(report); err != nil {
			return WrapExitError(ExitCommandError, "render report", err)
		}
		if opts.Database != "" {
			if err := persistReport(report, opts.Database); err != nil {
				return WrapExitError(ExitCommandError, "persist report", err)
			}
		}
	}

	if runErr != nil {
		return WrapExitError(ExitCommandError, "harness fault", runErr)
	}
	if report.Status == litmus.StatusViolationFound {
		return NewExitError(ExitViolation, "forbidden outcome witnessed")
	}
	return nil
}

// resolveConfig layers configuration sources: catalog suggestion, then the
// YAML file, then explicit flags.
func resolveConfig(opts *RunOptions, cfg engine.Config, cmd *cobra.Command) (engine.Config, error) {
	if opts.ConfigPath != "" {
		fc, err := LoadFileConfig(opts.ConfigPath)
		if err != nil {
			return cfg, WrapExitError(ExitCommandError, "load config", err)
		}
		cfg = fc.Apply(cfg)
	}

	if opts.Iterations > 0 {
		cfg.Iterations = opts.Iterations
	}
	if cmd.Flags().Changed("seed") {
		cfg.Seed = opts.Seed
	}
	if opts.Cores != nil {
		cfg.Cores = opts.Cores
	}
	if opts.Timeout > 0 {
		cfg.TrialTimeout = opts.Timeout
	}
	if opts.Settle > 0 {
		cfg.SettleDelay = opts.Settle
	}
	if opts.FailFast {
		cfg.FailFast = true
	}
	if opts.Evidence > 0 {
		cfg.MaxEvidence = opts.Evidence
	}
	if opts.AllowUnpinned {
		cfg.AllowUnpinned = true
	}
	if opts.Trace {
		cfg.TraceEvidence = true
	}
	return cfg, nil
}

func persistReport(report *litmus.RunReport, path string) error {
	st, err := store.Open(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	if err := st.SaveReport(context.Background(), report); err != nil {
		return err
	}
	slog.Info("report persisted", "run", report.RunID, "db", path)
	return nil
}

// signalContext derives a context cancelled by SIGINT/SIGTERM, so a long
// run can be interrupted and still report a clean harness fault.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, aborting run", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()
	return ctx, cancel
}
