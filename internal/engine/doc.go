// Package engine executes litmus tests and verifies their outcomes.
//
// The engine is the harness core: a trial driver that, for a configured
// number of iterations, resets the shared state from a derived trial seed,
// runs one trial through the thread coordinator (real OS threads pinned to
// distinct cores, released together through a two-phase rendezvous), and
// feeds the witnessed outcome to the recorder, which classifies it against
// the test's allowed/forbidden oracle and keeps the histogram and violation
// evidence.
//
// Thread-safety model:
//   - New() and Run() are called from one controlling goroutine.
//   - Worker goroutines touch only the trial state and their own PRNG and
//     result slot; the controller reads result slots strictly after the
//     per-trial join.
//   - The recorder is mutated only by the controlling goroutine.
package engine
