// Package catalog ships ready-made litmus tests with suggested harness
// configurations: the classic store-buffering and message-passing shapes,
// a plain-publication check, the mutual-exclusion collision test, and the
// reader/writer coherence scan the harness was originally built to
// reproduce.
package catalog

import (
	"fmt"
	"sort"

	"github.com/JetBrains-Research/KotlinMemoryModelResearch/internal/engine"
	"github.com/JetBrains-Research/KotlinMemoryModelResearch/internal/litmus"
)

// Entry pairs a litmus test with the configuration its numbers were tuned
// for. Callers may override any config field.
type Entry struct {
	Name   string
	Test   *litmus.Test
	Config engine.Config
}

// mutexRounds is the per-worker increment count in the mutual-exclusion
// tests; the winner must observe 2*mutexRounds.
const mutexRounds = 2000

// Publication is the two-worker plain publication check: one worker writes
// 5 to a plain zero-initialized scalar, the other reads it. Only 0 and 5
// may ever be observed; the oracle is closed-world, so a torn or
// out-of-thin-air value fails the run.
func Publication() *litmus.Test {
	return &litmus.Test{
		Name:        "publication",
		Description: "plain write of 5 against a concurrent read; only {0,5} may be observed",
		Vars: []litmus.VarDecl{
			{Name: "x", Discipline: litmus.DisciplinePlain},
		},
		Workers: []litmus.WorkerSpec{
			{Name: "writer", Ops: []litmus.Op{
				litmus.Jitter(0),
				litmus.Write("x", 5),
			}},
			{Name: "reader", Registers: 1, Ops: []litmus.Op{
				litmus.Jitter(0),
				litmus.Read("x", 0),
			}},
		},
		Outcomes: litmus.OutcomeSet{
			Allowed:     []litmus.Outcome{{0}, {5}},
			ClosedWorld: true,
		},
	}
}

// StoreBuffering is the classic two-variable exchange: each worker stores 1
// to its own variable and then loads the other. Under weak ordering both
// loads may read 0; under sequential consistency the (0,0) outcome is
// mechanically unreachable and the oracle forbids it.
func StoreBuffering(d litmus.Discipline) *litmus.Test {
	t := &litmus.Test{
		Name:        "store-buffering",
		Description: fmt.Sprintf("store buffering with %s variables", d),
		Vars: []litmus.VarDecl{
			{Name: "x", Discipline: d},
			{Name: "y", Discipline: d},
		},
		Workers: []litmus.WorkerSpec{
			{Name: "left", Registers: 1, Ops: []litmus.Op{
				litmus.Jitter(0),
				litmus.Write("x", 1),
				litmus.Read("y", 0),
			}},
			{Name: "right", Registers: 1, Ops: []litmus.Op{
				litmus.Jitter(0),
				litmus.Write("y", 1),
				litmus.Read("x", 0),
			}},
		},
		Outcomes: litmus.OutcomeSet{
			Allowed: []litmus.Outcome{{0, 1}, {1, 0}, {1, 1}},
		},
	}
	if d == litmus.DisciplineSeqCst {
		t.Name = "store-buffering-sc"
		t.Outcomes.Forbidden = []litmus.Outcome{{0, 0}}
	} else {
		t.Outcomes.Allowed = append(t.Outcomes.Allowed, litmus.Outcome{0, 0})
	}
	return t
}

// MessagePassing publishes plain data behind a flag. When the flag carries
// at least acquire/release ordering, observing the flag set while reading
// stale data is forbidden.
func MessagePassing(d litmus.Discipline) *litmus.Test {
	t := &litmus.Test{
		Name:        "message-passing",
		Description: fmt.Sprintf("plain data published behind a %s flag", d),
		Vars: []litmus.VarDecl{
			{Name: "data", Discipline: litmus.DisciplinePlain},
			{Name: "flag", Discipline: d},
		},
		Workers: []litmus.WorkerSpec{
			{Name: "producer", Ops: []litmus.Op{
				litmus.Jitter(0),
				litmus.Write("data", 42),
				litmus.Write("flag", 1),
			}},
			{Name: "consumer", Registers: 2, Ops: []litmus.Op{
				litmus.Jitter(0),
				litmus.Read("flag", 0),
				litmus.Read("data", 1),
			}},
		},
		Outcomes: litmus.OutcomeSet{
			AllowedIf: []litmus.Predicate{{
				Name:  "any",
				Match: func(litmus.Outcome) bool { return true },
			}},
		},
	}
	if d == litmus.DisciplineAcqRel || d == litmus.DisciplineSeqCst {
		t.Name = "message-passing-rel"
		t.Outcomes.ForbiddenIf = []litmus.Predicate{{
			Name: "stale-data-after-flag",
			Match: func(o litmus.Outcome) bool {
				return o[0] == 1 && o[1] != 42
			},
		}}
	}
	return t
}

// MutualExclusion increments one counter from two workers and has each
// worker read the counter after its own increments. With a lock-protected
// counter the last finisher always observes the full total; a plain counter
// loses updates in the unsynchronized read-modify-write window, which the
// oracle classifies as the forbidden double-increment collision.
func MutualExclusion(locked bool) *litmus.Test {
	d := litmus.DisciplinePlain
	name := "mutual-exclusion-broken"
	desc := "racy plain increments; lost updates are the expected violation"
	if locked {
		d = litmus.DisciplineLocked
		name = "mutual-exclusion"
		desc = "lock-protected increments; the winner must observe the full total"
	}
	total := int64(2 * mutexRounds)
	return &litmus.Test{
		Name:        name,
		Description: desc,
		Vars: []litmus.VarDecl{
			{Name: "counter", Discipline: d},
		},
		Workers: []litmus.WorkerSpec{
			{Name: "left", Registers: 1, Ops: []litmus.Op{
				litmus.Jitter(0),
				litmus.AddN("counter", 1, mutexRounds),
				litmus.Read("counter", 0),
			}},
			{Name: "right", Registers: 1, Ops: []litmus.Op{
				litmus.Jitter(0),
				litmus.AddN("counter", 1, mutexRounds),
				litmus.Read("counter", 0),
			}},
		},
		Outcomes: litmus.OutcomeSet{
			AllowedIf: []litmus.Predicate{{
				Name: "winner-sees-total",
				Match: func(o litmus.Outcome) bool {
					return o[0] == total || o[1] == total
				},
			}},
			ForbiddenIf: []litmus.Predicate{{
				Name: "lost-update",
				Match: func(o litmus.Outcome) bool {
					return o[0] < total && o[1] < total
				},
			}},
		},
	}
}

// ReaderWriter is the generalized form of the original reproduction
// program: a writer scan-writes random values into distinct random indices
// of a randomized plain array while a reader scan-reads distinct random
// indices, rescanning the whole array on a cadence. An index observed
// changing twice within one trial window is a coherence anomaly; with a
// single writer that never writes an index twice, any anomaly means a racy
// load was rematerialized.
func ReaderWriter() *litmus.Test {
	const (
		valsLen   = 4096
		scanIters = 2048
	)
	return &litmus.Test{
		Name:        "reader-writer",
		Description: "randomized scan writer vs coherence-checking scan reader over a plain array",
		Vars: []litmus.VarDecl{
			{Name: "vals", Discipline: litmus.DisciplinePlain, Len: valsLen, Randomize: true},
		},
		Workers: []litmus.WorkerSpec{
			{Name: "reader", Registers: 1, Ops: []litmus.Op{
				litmus.ScanRead("vals", scanIters, 50, 0),
			}},
			{Name: "writer", Ops: []litmus.Op{
				litmus.ScanWrite("vals", scanIters),
			}},
		},
		Outcomes: litmus.OutcomeSet{
			AllowedIf: []litmus.Predicate{{
				Name:  "coherent",
				Match: func(o litmus.Outcome) bool { return o[0] == 0 },
			}},
			ForbiddenIf: []litmus.Predicate{{
				Name:  "changed-twice-in-window",
				Match: func(o litmus.Outcome) bool { return o[0] > 0 },
			}},
		},
	}
}

// All returns every catalog entry, sorted by name.
func All() []Entry {
	entries := []Entry{
		{Test: Publication(), Config: engine.Config{Iterations: 100000, Seed: 65}},
		{Test: StoreBuffering(litmus.DisciplinePlain), Config: engine.Config{Iterations: 200000, Seed: 65}},
		{Test: StoreBuffering(litmus.DisciplineSeqCst), Config: engine.Config{Iterations: 200000, Seed: 65}},
		{Test: MessagePassing(litmus.DisciplinePlain), Config: engine.Config{Iterations: 200000, Seed: 65}},
		{Test: MessagePassing(litmus.DisciplineAcqRel), Config: engine.Config{Iterations: 200000, Seed: 65}},
		{Test: MutualExclusion(true), Config: engine.Config{Iterations: 2000, Seed: 65}},
		{Test: MutualExclusion(false), Config: engine.Config{Iterations: 2000, Seed: 65}},
		{Test: ReaderWriter(), Config: engine.Config{Iterations: 1000, Seed: 65}},
	}
	for i := range entries {
		entries[i].Name = entries[i].Test.Name
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries
}

// Get returns the named entry.
func Get(name string) (Entry, error) {
	for _, e := range All() {
		if e.Name == name {
			return e, nil
		}
	}
	return Entry{}, fmt.Errorf("unknown litmus test %q (try: %v)", name, Names())
}

// Names returns the sorted catalog test names.
func Names() []string {
	all := All()
	names := make([]string, len(all))
	for i, e := range all {
		names[i] = e.Name
	}
	return names
}
