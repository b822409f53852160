// Package state owns the mutable shared memory region under test: the
// declared shared variables plus the scratch bookkeeping workers use during
// a trial (visited-index flags, last-scan snapshots, change counters, and
// per-worker sink slots that keep jitter loops observably used).
//
// The write windows never overlap: Reset runs strictly before the trial
// barrier, worker bodies run strictly after it, and the driver reads final
// values only after every worker has joined.
package state

import (
	"sync"
	"sync/atomic"

	"github.com/JetBrains-Research/KotlinMemoryModelResearch/internal/litmus"
	"github.com/JetBrains-Research/KotlinMemoryModelResearch/internal/mt"
)

// sinkStride spaces worker sink slots one cache line apart so sink folding
// in one worker does not bounce the line under another worker's slot.
const sinkStride = 8

type variable struct {
	decl litmus.VarDecl
	vals []int64
	mu   sync.Mutex
}

// State is the trial state for one harness instance. Allocated once, reset
// between trials, shared by that instance's workers only.
type State struct {
	vars []variable

	// Per (worker, variable) scratch. Each slice is touched by exactly
	// one worker during a trial; Reset reinitializes all of them.
	visited  [][][]bool
	lastScan [][][]int64
	changed  [][][]int32

	sinks []int64
}

// New allocates state for a validated test.
func New(t *litmus.Test) *State {
	s := &State{
		vars:     make([]variable, len(t.Vars)),
		visited:  make([][][]bool, len(t.Workers)),
		lastScan: make([][][]int64, len(t.Workers)),
		changed:  make([][][]int32, len(t.Workers)),
		sinks:    make([]int64, len(t.Workers)*sinkStride),
	}
	for i, decl := range t.Vars {
		n := decl.Len
		if n == 0 {
			n = 1
		}
		s.vars[i] = variable{decl: decl, vals: make([]int64, n)}
	}
	for w := range t.Workers {
		s.visited[w] = make([][]bool, len(t.Vars))
		s.lastScan[w] = make([][]int64, len(t.Vars))
		s.changed[w] = make([][]int32, len(t.Vars))
		for i, decl := range t.Vars {
			if decl.Len > 0 {
				s.visited[w][i] = make([]bool, decl.Len)
				s.lastScan[w][i] = make([]int64, decl.Len)
				s.changed[w][i] = make([]int32, decl.Len)
			}
		}
	}
	return s
}

// Reset overwrites every shared variable and every scratch slot with fresh
// trial-specific values drawn from a generator keyed by seed. It is a pure
// function of the seed: resetting twice with the same seed yields identical
// subsequent reads, regardless of what the prior trial did. Must complete
// before any worker's timed section starts; the coordinator's barrier
// enforces that.
func (s *State) Reset(seed uint32) {
	rng := mt.New(seed)
	for i := range s.vars {
		v := &s.vars[i]
		for e := range v.vals {
			if v.decl.Randomize {
				v.vals[e] = int64(rng.Next())
			} else {
				v.vals[e] = v.decl.Init
			}
		}
	}
	for w := range s.visited {
		for i := range s.visited[w] {
			if s.visited[w][i] == nil {
				continue
			}
			for e := range s.visited[w][i] {
				s.visited[w][i][e] = false
				s.changed[w][i][e] = 0
			}
			copy(s.lastScan[w][i], s.vars[i].vals)
		}
	}
	for i := range s.sinks {
		s.sinks[i] = 0
	}
}

// Read loads element elem of variable v, routed by the declared discipline.
// held marks that the caller already holds the variable's lock via an
// explicit lock op, so lock-protected access goes straight to memory.
func (s *State) Read(v, elem int, held bool) int64 {
	va := &s.vars[v]
	switch {
	case va.decl.Discipline.Atomic():
		return atomic.LoadInt64(&va.vals[elem])
	case va.decl.Discipline == litmus.DisciplineLocked && !held:
		va.mu.Lock()
		r := va.vals[elem]
		va.mu.Unlock()
		return r
	default:
		return va.vals[elem]
	}
}

// Write stores val to element elem of variable v, routed by discipline.
func (s *State) Write(v, elem int, val int64, held bool) {
	va := &s.vars[v]
	switch {
	case va.decl.Discipline.Atomic():
		atomic.StoreInt64(&va.vals[elem], val)
	case va.decl.Discipline == litmus.DisciplineLocked && !held:
		va.mu.Lock()
		va.vals[elem] = val
		va.mu.Unlock()
	default:
		va.vals[elem] = val
	}
}

// Add performs a read-modify-write on element elem of variable v. Atomic
// disciplines use a single atomic add; lock-protected ones hold the mutex
// across the whole update; plain ones perform a genuinely non-atomic
// load-add-store, which is exactly the window mutual-exclusion tests probe.
func (s *State) Add(v, elem int, delta int64, held bool) int64 {
	va := &s.vars[v]
	switch {
	case va.decl.Discipline.Atomic():
		return atomic.AddInt64(&va.vals[elem], delta)
	case va.decl.Discipline == litmus.DisciplineLocked && !held:
		va.mu.Lock()
		va.vals[elem] += delta
		r := va.vals[elem]
		va.mu.Unlock()
		return r
	default:
		r := va.vals[elem] + delta
		va.vals[elem] = r
		return r
	}
}

// Lock acquires the mutex of lock-protected variable v.
func (s *State) Lock(v int) { s.vars[v].mu.Lock() }

// Unlock releases the mutex of lock-protected variable v.
func (s *State) Unlock(v int) { s.vars[v].mu.Unlock() }

// Visited returns worker w's already-touched flags for array variable v.
// The slice is private to that worker for the duration of the trial.
func (s *State) Visited(w, v int) []bool { return s.visited[w][v] }

// LastScan returns worker w's last-seen-value snapshot of array variable v,
// used by coherence checks.
func (s *State) LastScan(w, v int) []int64 { return s.lastScan[w][v] }

// Changed returns worker w's per-index change counters for array variable v.
func (s *State) Changed(w, v int) []int32 { return s.changed[w][v] }

// AddSink folds delta into worker w's sink slot. Sinks exist so jitter spins
// and scan-read folds are observably used; the driver inspects them after
// the join.
func (s *State) AddSink(w int, delta int64) {
	s.sinks[w*sinkStride] += delta
}

// SinkSum returns the sum of all worker sinks. Called only after the join.
func (s *State) SinkSum() int64 {
	var sum int64
	for w := 0; w*sinkStride < len(s.sinks); w++ {
		sum += s.sinks[w*sinkStride]
	}
	return sum
}

// Snapshot copies the current value of every variable, keyed by name.
// Called only between trials (after join, before the next reset), so plain
// reads are safe for every discipline.
func (s *State) Snapshot() map[string][]int64 {
	snap := make(map[string][]int64, len(s.vars))
	for i := range s.vars {
		v := &s.vars[i]
		out := make([]int64, len(v.vals))
		copy(out, v.vals)
		snap[v.decl.Name] = out
	}
	return snap
}
