package litmus

import "fmt"

// Discipline is the declared access discipline of a shared variable.
//
// Go's sync/atomic provides sequentially consistent operations only, so the
// relaxed and acquire-release disciplines are realized with stronger ordering
// than declared. That direction is sound for a violation harness: any
// forbidden outcome observed under the stronger realization is also forbidden
// under the declared discipline.
type Discipline int

const (
	// DisciplinePlain is an ordinary load/store with no atomicity or
	// ordering guarantee. Plain accesses compile to unsynchronized slice
	// reads and writes; they are the usual subject under test.
	DisciplinePlain Discipline = iota

	// DisciplineRelaxed is an atomic access with relaxed declared ordering.
	DisciplineRelaxed

	// DisciplineAcqRel is an atomic access with acquire (loads) and
	// release (stores) declared ordering.
	DisciplineAcqRel

	// DisciplineSeqCst is a sequentially consistent atomic access.
	DisciplineSeqCst

	// DisciplineLocked protects every access with the variable's mutex,
	// unless the worker holds the lock explicitly via a Lock op.
	DisciplineLocked
)

// Atomic reports whether the discipline is realized with sync/atomic.
func (d Discipline) Atomic() bool {
	return d == DisciplineRelaxed || d == DisciplineAcqRel || d == DisciplineSeqCst
}

func (d Discipline) String() string {
	switch d {
	case DisciplinePlain:
		return "plain"
	case DisciplineRelaxed:
		return "atomic-relaxed"
	case DisciplineAcqRel:
		return "atomic-acquire-release"
	case DisciplineSeqCst:
		return "atomic-seq-cst"
	case DisciplineLocked:
		return "lock-protected"
	default:
		return fmt.Sprintf("discipline(%d)", int(d))
	}
}

// VarDecl declares one shared memory location under test.
//
// Len == 0 declares a scalar; Len > 0 declares an array whose elements all
// share the declared discipline. The location is allocated once per harness
// instance and overwritten on every trial reset.
type VarDecl struct {
	// Name identifies the variable in worker ops. Must be unique.
	Name string

	// Discipline routes every access to this variable.
	Discipline Discipline

	// Len is the element count for arrays, 0 for scalars.
	Len int

	// Init is the per-trial reset value. Ignored when Randomize is set.
	Init int64

	// Randomize fills the variable with trial-seeded pseudo-random values
	// on reset instead of Init. Used by coherence-scan tests so stale
	// cross-trial values cannot masquerade as same-trial reads.
	Randomize bool
}

// WorkerSpec is one thread's program: an ordered op sequence plus the number
// of local registers whose final values form the worker's slice of the
// outcome tuple.
//
// The op sequence is immutable across trials; only captured register values
// vary.
type WorkerSpec struct {
	// Name labels the worker in logs and reports.
	Name string

	// Registers is the number of outcome-visible locals (r0..rN-1).
	// May be zero for pure writers.
	Registers int

	// Ops is the program executed during the trial's timed section.
	Ops []Op
}

// Test is a complete litmus test: shared variables, worker programs, and the
// outcome oracle.
type Test struct {
	Name        string
	Description string
	Vars        []VarDecl
	Workers     []WorkerSpec
	Outcomes    OutcomeSet
}

// RegisterCount returns the total number of outcome-visible registers across
// all workers, i.e. the length of every Outcome this test produces.
func (t *Test) RegisterCount() int {
	n := 0
	for _, w := range t.Workers {
		n += w.Registers
	}
	return n
}

// VarIndex returns the index of the named variable, or -1.
func (t *Test) VarIndex(name string) int {
	for i, v := range t.Vars {
		if v.Name == name {
			return i
		}
	}
	return -1
}

// Validate checks the test for programming-time defects: unknown variable
// references, register indices out of range, lock ops on variables that are
// not lock-protected, scan ops on scalars, and an overlapping outcome oracle.
// A test must validate before the engine will accept it.
func (t *Test) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("test has no name")
	}
	if len(t.Workers) == 0 {
		return fmt.Errorf("test %s: no workers", t.Name)
	}
	seen := make(map[string]bool, len(t.Vars))
	for _, v := range t.Vars {
		if v.Name == "" {
			return fmt.Errorf("test %s: variable with empty name", t.Name)
		}
		if seen[v.Name] {
			return fmt.Errorf("test %s: duplicate variable %q", t.Name, v.Name)
		}
		seen[v.Name] = true
		if v.Len < 0 {
			return fmt.Errorf("test %s: variable %q has negative length", t.Name, v.Name)
		}
	}
	for wi, w := range t.Workers {
		if w.Registers < 0 {
			return fmt.Errorf("test %s: worker %d has negative register count", t.Name, wi)
		}
		for oi, op := range w.Ops {
			if err := t.validateOp(w, op); err != nil {
				return fmt.Errorf("test %s: worker %d op %d: %w", t.Name, wi, oi, err)
			}
		}
	}
	regs := t.RegisterCount()
	for _, o := range t.Outcomes.Allowed {
		if len(o) != regs {
			return fmt.Errorf("test %s: allowed outcome %s has %d values, want %d", t.Name, o.Key(), len(o), regs)
		}
	}
	for _, o := range t.Outcomes.Forbidden {
		if len(o) != regs {
			return fmt.Errorf("test %s: forbidden outcome %s has %d values, want %d", t.Name, o.Key(), len(o), regs)
		}
	}
	if err := t.Outcomes.Validate(); err != nil {
		return fmt.Errorf("test %s: %w", t.Name, err)
	}
	return nil
}

func (t *Test) validateOp(w WorkerSpec, op Op) error {
	if op.Repeat < 0 {
		return fmt.Errorf("%s: negative repeat", op.Kind)
	}
	checkVar := func(wantArray bool) (VarDecl, error) {
		i := t.VarIndex(op.Var)
		if i < 0 {
			return VarDecl{}, fmt.Errorf("%s: unknown variable %q", op.Kind, op.Var)
		}
		v := t.Vars[i]
		if wantArray && v.Len == 0 {
			return v, fmt.Errorf("%s: variable %q is a scalar, want array", op.Kind, op.Var)
		}
		if !wantArray && v.Len > 0 {
			return v, fmt.Errorf("%s: variable %q is an array, want scalar", op.Kind, op.Var)
		}
		return v, nil
	}
	checkDst := func() error {
		if op.Dst < 0 || op.Dst >= w.Registers {
			return fmt.Errorf("%s: register r%d out of range (worker has %d)", op.Kind, op.Dst, w.Registers)
		}
		return nil
	}
	switch op.Kind {
	case OpBind:
		return checkDst()
	case OpRead:
		if _, err := checkVar(false); err != nil {
			return err
		}
		return checkDst()
	case OpWrite:
		if _, err := checkVar(false); err != nil {
			return err
		}
		if op.FromReg && (op.Src < 0 || op.Src >= w.Registers) {
			return fmt.Errorf("%s: source register r%d out of range", op.Kind, op.Src)
		}
		return nil
	case OpAdd:
		_, err := checkVar(false)
		return err
	case OpLock, OpUnlock:
		v, err := checkVar(false)
		if err != nil {
			return err
		}
		if v.Discipline != DisciplineLocked {
			return fmt.Errorf("%s: variable %q is %s, not lock-protected", op.Kind, op.Var, v.Discipline)
		}
		return nil
	case OpJitter:
		if op.Iters < 0 {
			return fmt.Errorf("%s: negative spin bound", op.Kind)
		}
		return nil
	case OpScanWrite:
		v, err := checkVar(true)
		if err != nil {
			return err
		}
		if op.Iters <= 0 || op.Iters > v.Len {
			return fmt.Errorf("%s: %d iterations over array %q of length %d", op.Kind, op.Iters, op.Var, v.Len)
		}
		return nil
	case OpScanRead:
		v, err := checkVar(true)
		if err != nil {
			return err
		}
		if op.Iters <= 0 || op.Iters > v.Len {
			return fmt.Errorf("%s: %d iterations over array %q of length %d", op.Kind, op.Iters, op.Var, v.Len)
		}
		return checkDst()
	default:
		return fmt.Errorf("unknown op kind %d", int(op.Kind))
	}
}
