package engine

import (
	"github.com/JetBrains-Research/KotlinMemoryModelResearch/internal/litmus"
	"github.com/JetBrains-Research/KotlinMemoryModelResearch/internal/mt"
	"github.com/JetBrains-Research/KotlinMemoryModelResearch/internal/state"
)

// compiledOp is an Op with the variable name resolved to its index, so the
// timed section never does string lookups.
type compiledOp struct {
	kind       litmus.OpKind
	varIdx     int
	dst        int
	src        int
	fromReg    bool
	value      int64
	iters      int
	checkEvery int
	repeat     int
}

// compile resolves every worker's ops against the test's variable table.
// The test validated already, so lookups cannot fail.
func compile(t *litmus.Test) [][]compiledOp {
	prog := make([][]compiledOp, len(t.Workers))
	for w, spec := range t.Workers {
		ops := make([]compiledOp, len(spec.Ops))
		for i, op := range spec.Ops {
			repeat := op.Repeat
			if repeat == 0 {
				repeat = 1
			}
			ops[i] = compiledOp{
				kind:       op.Kind,
				varIdx:     t.VarIndex(op.Var),
				dst:        op.Dst,
				src:        op.Src,
				fromReg:    op.FromReg,
				value:      op.Value,
				iters:      op.Iters,
				checkEvery: op.CheckEvery,
				repeat:     repeat,
			}
		}
		prog[w] = ops
	}
	return prog
}

// worker interprets one compiled op sequence during a trial's timed section.
// It owns its PRNG and registers; the only cross-thread synchronization it
// performs is what its ops explicitly request (lock acquisition, or the
// ordering of its atomic accesses).
type worker struct {
	id   int
	ops  []compiledOp
	st   *state.State
	rng  *mt.Twister
	cfg  *Config
	regs []int64
	held map[int]bool
}

func newWorker(id int, ops []compiledOp, registers int, st *state.State, rng *mt.Twister, cfg *Config) *worker {
	return &worker{
		id:   id,
		ops:  ops,
		st:   st,
		rng:  rng,
		cfg:  cfg,
		regs: make([]int64, registers),
		held: make(map[int]bool),
	}
}

func (w *worker) run() {
	for _, op := range w.ops {
		for r := 0; r < op.repeat; r++ {
			w.exec(op)
		}
	}
}

func (w *worker) exec(op compiledOp) {
	switch op.kind {
	case litmus.OpBind:
		w.regs[op.dst] = op.value
	case litmus.OpRead:
		w.regs[op.dst] = w.st.Read(op.varIdx, 0, w.held[op.varIdx])
	case litmus.OpWrite:
		val := op.value
		if op.fromReg {
			val = w.regs[op.src]
		}
		w.st.Write(op.varIdx, 0, val, w.held[op.varIdx])
	case litmus.OpAdd:
		w.st.Add(op.varIdx, 0, op.value, w.held[op.varIdx])
	case litmus.OpLock:
		w.st.Lock(op.varIdx)
		w.held[op.varIdx] = true
	case litmus.OpUnlock:
		w.held[op.varIdx] = false
		w.st.Unlock(op.varIdx)
	case litmus.OpJitter:
		bound := op.iters
		if bound == 0 {
			bound = w.cfg.JitterMaxSpins
		}
		w.spin(bound)
	case litmus.OpScanWrite:
		w.scanWrite(op)
	case litmus.OpScanRead:
		w.scanRead(op)
	}
}

// spin busy-waits a random number of iterations in [0, bound], folding the
// counter into the worker's sink so the loop has an observable result and
// cannot be eliminated.
func (w *worker) spin(bound int) {
	spins := w.rng.IndexIn(bound + 1)
	var acc int64
	for i := 0; i < spins; i++ {
		acc += int64(i ^ spins)
	}
	w.st.AddSink(w.id, acc+int64(spins))
}

// nextIndex draws a random array index not yet touched this trial,
// re-drawing until it finds one, exactly like the original scan loops.
func (w *worker) nextIndex(op compiledOp, n int) int {
	visited := w.st.Visited(w.id, op.varIdx)
	idx := w.rng.IndexIn(n)
	for visited[idx] {
		idx = w.rng.IndexIn(n)
	}
	visited[idx] = true
	return idx
}

func (w *worker) scanWrite(op compiledOp) {
	n := len(w.st.Visited(w.id, op.varIdx))
	held := w.held[op.varIdx]
	for i := 0; i < op.iters; i++ {
		idx := w.nextIndex(op, n)
		w.st.Write(op.varIdx, idx, int64(w.rng.Next()), held)
		w.spin(w.cfg.ScanJitterSpins)
	}
}

func (w *worker) scanRead(op compiledOp) {
	n := len(w.st.Visited(w.id, op.varIdx))
	held := w.held[op.varIdx]
	cadence := op.checkEvery
	if cadence == 0 {
		cadence = w.cfg.CheckEvery
	}
	var fold int64
	var anomalies int64
	for i := 0; i < op.iters; i++ {
		idx := w.nextIndex(op, n)
		v := w.st.Read(op.varIdx, idx, held)
		fold = (v + v - 1) + (fold-1+v)*v
		if i%cadence == 0 {
			anomalies += w.checkCoherence(op, n, held)
		}
		w.spin(w.cfg.ScanJitterSpins)
	}
	w.st.AddSink(w.id, fold)
	w.regs[op.dst] += anomalies
}

// checkCoherence rescans the array against the last-seen snapshot. A cell
// whose value differs from the snapshot has changed once since the previous
// scan; a cell observed changing a second time within one trial window is a
// coherence anomaly (the original "UB was caught" condition, which a racy
// rematerialized load can produce even with a single writer that never
// writes an index twice).
func (w *worker) checkCoherence(op compiledOp, n int, held bool) int64 {
	last := w.st.LastScan(w.id, op.varIdx)
	changed := w.st.Changed(w.id, op.varIdx)
	var anomalies int64
	for i := 0; i < n; i++ {
		v := w.st.Read(op.varIdx, i, held)
		if v != last[i] {
			changed[i]++
			if changed[i] > 1 {
				anomalies++
			}
			last[i] = v
		}
	}
	return anomalies
}
