//go:build linux

package sched

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Pin binds the calling thread to the given logical core. The caller must
// have locked the goroutine to its OS thread first (runtime.LockOSThread),
// otherwise the affinity lands on an arbitrary thread.
func Pin(core int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(core)
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return fmt.Errorf("sched_setaffinity(core %d): %w", core, err)
	}
	return nil
}
