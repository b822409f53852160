// Package sched queries CPU topology and pins the calling thread to a
// logical core. Pinning is the Go counterpart of the original harness's
// pthread_setaffinity_np: workers on distinct cores are what make
// timing-sensitive interleavings reachable at all.
package sched

import (
	"errors"
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
)

// ErrAffinityUnsupported is returned by Pin on platforms without thread
// affinity control. Callers decide whether unpinned execution is acceptable.
var ErrAffinityUnsupported = errors.New("thread affinity is not supported on this platform")

// LogicalCores returns the number of logical cores available to the process.
// Falls back to runtime.NumCPU when the platform query fails.
func LogicalCores() int {
	n, err := cpu.Counts(true)
	if err != nil || n < 1 {
		return runtime.NumCPU()
	}
	return n
}
