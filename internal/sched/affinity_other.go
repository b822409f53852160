//go:build !linux

package sched

// Pin reports ErrAffinityUnsupported: only Linux exposes per-thread
// affinity control to unprivileged processes.
func Pin(core int) error {
	return ErrAffinityUnsupported
}
