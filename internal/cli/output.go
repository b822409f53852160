package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/JetBrains-Research/KotlinMemoryModelResearch/internal/litmus"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Run completed, no forbidden outcome
	ExitViolation    = 1 // A forbidden outcome was witnessed
	ExitCommandError = 2 // Command error (bad flags, unknown test, harness fault)
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error. Nil means success;
// anything that is not an ExitError counts as a command error.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitCommandError
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// RenderReport writes a run report in the configured format. JSON emits
// the report verbatim; text renders a summary with the histogram sorted
// by canonical outcome key so output is stable across runs.
func (f *OutputFormatter) RenderReport(r *litmus.RunReport) error {
	if f.Format == "json" {
		enc := json.NewEncoder(f.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}

	fmt.Fprintf(f.Writer, "run:     %s\n", r.RunID)
	fmt.Fprintf(f.Writer, "test:    %s\n", r.Test)
	fmt.Fprintf(f.Writer, "status:  %s\n", r.Status)
	fmt.Fprintf(f.Writer, "seed:    %d\n", r.Seed)
	fmt.Fprintf(f.Writer, "trials:  %d\n", r.Trials)
	if r.Fault != "" {
		fmt.Fprintf(f.Writer, "fault:   %s\n", r.Fault)
	}

	keys := make([]string, 0, len(r.Histogram))
	for k := range r.Histogram {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintln(f.Writer, "outcomes:")
	for _, k := range keys {
		fmt.Fprintf(f.Writer, "  {%s}: %d\n", k, r.Histogram[k])
	}

	if r.Forbidden > 0 || r.Unexpected > 0 {
		fmt.Fprintf(f.Writer, "forbidden:  %d\n", r.Forbidden)
		fmt.Fprintf(f.Writer, "unexpected: %d\n", r.Unexpected)
	}
	for _, ev := range r.Evidence {
		fmt.Fprintf(f.Writer, "evidence: trial=%d seed=%d outcome={%s} class=%s\n",
			ev.Trial, ev.Seed, ev.Key, ev.Classification)
		if ev.Vars != nil {
			names := make([]string, 0, len(ev.Vars))
			for name := range ev.Vars {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintf(f.Writer, "  %s = %v\n", name, ev.Vars[name])
			}
		}
	}
	return nil
}
