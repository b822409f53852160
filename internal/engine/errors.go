package engine

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes harness errors. A ViolationFound result is not an
// error: it is reported through the RunReport status.
type ErrorCode string

const (
	// ErrCodeConfig marks configuration defects detected before any trial
	// runs: bad iteration counts, core assignments that exceed or collide
	// on available cores, overlapping outcome oracles.
	ErrCodeConfig ErrorCode = "CONFIG_INVALID"

	// ErrCodeAffinity marks a pinning request the platform refused, when
	// the caller did not allow unpinned fallback. Unpinned workers make
	// timing-sensitive races far less likely to be exercised, so the
	// downgrade must be explicit.
	ErrCodeAffinity ErrorCode = "AFFINITY_UNAVAILABLE"

	// ErrCodeTimeout marks a trial that failed to join within its
	// deadline. Always fatal to the run: a hang is either a deadlock in
	// the construct under test or a harness bug, and neither may be
	// reported as "no violation observed".
	ErrCodeTimeout ErrorCode = "TRIAL_TIMEOUT"
)

// HarnessError is a structured harness failure with a machine-readable code.
type HarnessError struct {
	Code    ErrorCode
	Message string

	// Trial is the trial index for trial-scoped errors, -1 otherwise.
	Trial int

	// Err is the underlying cause, if any.
	Err error
}

func (e *HarnessError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Trial >= 0 {
		msg = fmt.Sprintf("%s (trial %d)", msg, e.Trial)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *HarnessError) Unwrap() error { return e.Err }

func newConfigError(format string, args ...any) *HarnessError {
	return &HarnessError{Code: ErrCodeConfig, Message: fmt.Sprintf(format, args...), Trial: -1}
}

func newAffinityError(worker, core int, err error) *HarnessError {
	return &HarnessError{
		Code:    ErrCodeAffinity,
		Message: fmt.Sprintf("worker %d could not be pinned to core %d", worker, core),
		Trial:   -1,
		Err:     err,
	}
}

func newTimeoutError(trial int, message string) *HarnessError {
	return &HarnessError{Code: ErrCodeTimeout, Message: message, Trial: trial}
}

func codeIs(err error, code ErrorCode) bool {
	var he *HarnessError
	return errors.As(err, &he) && he.Code == code
}

// IsConfigError reports whether err is a configuration error.
func IsConfigError(err error) bool { return codeIs(err, ErrCodeConfig) }

// IsAffinityError reports whether err is an affinity failure.
func IsAffinityError(err error) bool { return codeIs(err, ErrCodeAffinity) }

// IsTimeoutError reports whether err is a trial timeout.
func IsTimeoutError(err error) bool { return codeIs(err, ErrCodeTimeout) }
